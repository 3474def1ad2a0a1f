package ttmodel

import (
	"fmt"
	"slices"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/diagnostics"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
)

// Decision is a course placement settled by the main model, fixed in the room model
type Decision struct {
	Slot  *model.CourseSlot
	Tutor *model.TutorID
	Room  *model.RoomID
}

// Env is what a rule contributes to: the snapshot it reads, the model it writes into and the variables
type Env struct {
	Snapshot *snapshot.Snapshot
	Model    *milp.Model
	Vars     *Vars
	Warnings *diagnostics.Collector
	Settings Settings
	Stage    Stage
	Decided  map[model.CourseID]Decision // Room stage only

	busyDays     map[busyKey]milp.LinExpr
	tutorCourses map[ownerKey][]*model.Course
	groupCourses map[ownerKey][]*model.Course
}

type ownerKey struct {
	period model.PeriodID
	owner  uint64
}

type busyKey struct {
	group bool
	owner uint64
	date  time.Time
	half  model.HalfDay
}

const linkKind = "Link"

// NewMainEnv creates the sched, assigned and located variables of every compatible combination together with
// their link constraints: a course is scheduled at most once, tutors and rooms only go along with a slot.
func NewMainEnv(snap *snapshot.Snapshot, settings Settings, warnings *diagnostics.Collector) *Env {
	env := newEnv(snap, milp.NewModel("main"), settings, warnings, MainStage)
	locate := settings.RoomMode == PreAssign

	for _, course := range snap.Courses() {
		once := milp.LinExpr{}
		for _, slot := range snap.CompatibleSlots(course) {
			sched := env.Vars.newSched(env.Model, slot, course.Id)
			once.AddTerm(sched, 1)

			tutors := milp.LinExpr{}
			for _, tutor := range snap.PossibleTutors(course) {
				tutors.AddTerm(env.Vars.newAssigned(env.Model, slot, course.Id, tutor), 1)
			}
			if !tutors.IsConstant() {
				env.Model.AddConstraint(tutors.Minus(milp.Expr(sched)), milp.LessEqual, 0, env.linkTag("tutor", course, slot))
			}

			if !locate {
				continue
			}
			rooms := milp.LinExpr{}
			for _, room := range snap.PossibleRooms(course) {
				rooms.AddTerm(env.Vars.newLocated(env.Model, slot, course.Id, room), 1)
			}
			if !rooms.IsConstant() {
				env.Model.AddConstraint(rooms.Minus(milp.Expr(sched)), milp.LessEqual, 0, env.linkTag("room", course, slot))
			}
		}
		env.Model.AddConstraint(once, milp.LessEqual, 1, milp.Tag{Kind: linkKind, Detail: fmt.Sprintf("course %v once", course.Id)})
	}
	return env
}

// NewRoomEnv creates the located variables of the decided courses needing a room, each at its decided slot
func NewRoomEnv(snap *snapshot.Snapshot, settings Settings, warnings *diagnostics.Collector, decided map[model.CourseID]Decision) *Env {
	env := newEnv(snap, milp.NewModel("rooms"), settings, warnings, RoomStage)
	env.Decided = decided

	for _, course := range snap.Courses() {
		decision, ok := decided[course.Id]
		if !ok || !snap.NeedsRoom(course) {
			continue
		}
		rooms := milp.LinExpr{}
		for _, room := range snap.PossibleRooms(course) {
			rooms.AddTerm(env.Vars.newLocated(env.Model, decision.Slot, course.Id, room), 1)
		}
		env.Model.AddConstraint(rooms, milp.LessEqual, 1, env.linkTag("room", course, decision.Slot))
	}
	return env
}

func newEnv(snap *snapshot.Snapshot, m *milp.Model, settings Settings, warnings *diagnostics.Collector, stage Stage) *Env {
	if warnings == nil {
		warnings = diagnostics.NewCollector()
	}
	return &Env{
		Snapshot:     snap,
		Model:        m,
		Vars:         newVars(),
		Warnings:     warnings,
		Settings:     settings,
		Stage:        stage,
		busyDays:     make(map[busyKey]milp.LinExpr),
		tutorCourses: make(map[ownerKey][]*model.Course),
		groupCourses: make(map[ownerKey][]*model.Course),
	}
}

func (env *Env) linkTag(what string, course *model.Course, slot *model.CourseSlot) milp.Tag {
	return milp.Tag{Kind: linkKind, Detail: fmt.Sprintf("%v of course %v at %v", what, course.Id, slot)}
}

//** Decision expressions

// SchedExpr is 1 when the course is scheduled at the slot. It is a constant in the room stage.
func (env *Env) SchedExpr(slot *model.CourseSlot, course *model.Course) milp.LinExpr {
	if env.Stage == RoomStage {
		if decision, ok := env.Decided[course.Id]; ok && decision.Slot.Index == slot.Index {
			return milp.Constant(1)
		}
		return milp.Constant(0)
	}
	if v, ok := env.Vars.Sched(slot.Index, course.Id); ok {
		return milp.Expr(v)
	}
	return milp.LinExpr{}
}

// CourseSchedExpr is 1 when the course is scheduled at all
func (env *Env) CourseSchedExpr(course *model.Course) milp.LinExpr {
	expr := milp.LinExpr{}
	for _, slot := range env.Snapshot.CompatibleSlots(course) {
		expr.AddExpr(env.SchedExpr(slot, course), 1)
	}
	return expr
}

// AssignedExpr is 1 when the tutor gives the course at the slot
func (env *Env) AssignedExpr(slot *model.CourseSlot, course *model.Course, tutor model.TutorID) milp.LinExpr {
	if env.Stage == RoomStage {
		decision, ok := env.Decided[course.Id]
		if ok && decision.Slot.Index == slot.Index && decision.Tutor != nil && *decision.Tutor == tutor {
			return milp.Constant(1)
		}
		return milp.Constant(0)
	}
	if v, ok := env.Vars.Assigned(slot.Index, course.Id, tutor); ok {
		return milp.Expr(v)
	}
	return milp.LinExpr{}
}

// CourseAssignedExpr sums the assigned variables of a course at a slot
func (env *Env) CourseAssignedExpr(slot *model.CourseSlot, course *model.Course) milp.LinExpr {
	expr := milp.LinExpr{}
	for _, tutor := range env.Snapshot.PossibleTutors(course) {
		expr.AddExpr(env.AssignedExpr(slot, course, tutor), 1)
	}
	return expr
}

// LocatedExpr is 1 when the course is located in the room at the slot, always 0 when rooms are not decided
func (env *Env) LocatedExpr(slot *model.CourseSlot, course *model.Course, room model.RoomID) milp.LinExpr {
	if v, ok := env.Vars.Located(slot.Index, course.Id, room); ok {
		return milp.Expr(v)
	}
	return milp.LinExpr{}
}

// Locates checks whether the current model decides rooms
func (env *Env) Locates() bool {
	return env.Stage == RoomStage || env.Settings.RoomMode == PreAssign
}

// PresenceExpr is 1 when the tutor attends the course at the slot, as its tutor or as a supplementary tutor.
// A supplementary tutor attends whenever the course runs, whoever gives it.
func (env *Env) PresenceExpr(slot *model.CourseSlot, course *model.Course, tutor model.TutorID) milp.LinExpr {
	if slices.Contains(course.SuppTutors, tutor) {
		return env.SchedExpr(slot, course)
	}
	return env.AssignedExpr(slot, course, tutor)
}

//** Owners' courses

// TutorCourses returns the courses of a period the tutor may attend, possible or supplementary tutor
func (env *Env) TutorCourses(period model.PeriodID, tutor model.TutorID) []*model.Course {
	key := ownerKey{period: period, owner: uint64(tutor)}
	if courses, ok := env.tutorCourses[key]; ok {
		return courses
	}
	courses := env.Snapshot.CoursesOfTutor(period, tutor)
	for _, course := range env.Snapshot.SuppCoursesOfTutor(period, tutor) {
		if !slices.Contains(courses, course) {
			courses = append(courses, course)
		}
	}
	env.tutorCourses[key] = courses
	return courses
}

// GroupCourses returns the courses of a period a basic group attends
func (env *Env) GroupCourses(period model.PeriodID, basic model.GroupID) []*model.Course {
	key := ownerKey{period: period, owner: uint64(basic)}
	if courses, ok := env.groupCourses[key]; ok {
		return courses
	}
	courses := env.Snapshot.CoursesOfBasicGroup(period, basic)
	env.groupCourses[key] = courses
	return courses
}

//** Aggregations

// TutorExpr sums the tutor's presence over the slots accepted by the filter
func (env *Env) TutorExpr(tutor model.TutorID, courses []*model.Course, accept func(*model.CourseSlot) bool) milp.LinExpr {
	expr := milp.LinExpr{}
	for _, course := range courses {
		for _, slot := range env.Snapshot.CompatibleSlots(course) {
			if accept(slot) {
				expr.AddExpr(env.PresenceExpr(slot, course, tutor), 1)
			}
		}
	}
	return expr
}

// TutorAt sums the tutor's presence over the slots running at an instant
func (env *Env) TutorAt(period model.PeriodID, tutor model.TutorID, instant snapshot.Instant) milp.LinExpr {
	return env.TutorExpr(tutor, env.TutorCourses(period, tutor), func(slot *model.CourseSlot) bool {
		return snapshot.Covers(slot, instant)
	})
}

// TutorMinutes sums the tutor's teaching minutes on a date
func (env *Env) TutorMinutes(period model.PeriodID, tutor model.TutorID, date time.Time) milp.LinExpr {
	expr := milp.LinExpr{}
	for _, course := range env.TutorCourses(period, tutor) {
		for _, slot := range env.Snapshot.CompatibleSlots(course) {
			if slot.Date.Equal(date) {
				expr.AddExpr(env.PresenceExpr(slot, course, tutor), float64(slot.Duration))
			}
		}
	}
	return expr
}

// GroupExpr sums the scheduling of a basic group's courses over the slots accepted by the filter
func (env *Env) GroupExpr(courses []*model.Course, accept func(*model.CourseSlot) bool) milp.LinExpr {
	expr := milp.LinExpr{}
	for _, course := range courses {
		for _, slot := range env.Snapshot.CompatibleSlots(course) {
			if accept(slot) {
				expr.AddExpr(env.SchedExpr(slot, course), 1)
			}
		}
	}
	return expr
}

func onDay(date time.Time, half model.HalfDay, settings model.TimeSettings) func(*model.CourseSlot) bool {
	return func(slot *model.CourseSlot) bool {
		return slot.Date.Equal(date) && (half == model.AllDay || settings.HalfDayOf(slot.Start) == half)
	}
}

// TutorBusyDay is an indicator of the tutor teaching on the date (or half-day)
func (env *Env) TutorBusyDay(period model.PeriodID, tutor model.TutorID, date time.Time, half model.HalfDay) milp.LinExpr {
	key := busyKey{owner: uint64(tutor), date: date, half: half}
	return env.busyIndicator(key, func() milp.LinExpr {
		return env.TutorExpr(tutor, env.TutorCourses(period, tutor), onDay(date, half, env.Snapshot.Settings))
	}, fmt.Sprintf("IBD(%v,%v,%v)", tutor, date.Format(model.DateLayout), half))
}

// GroupBusyDay is an indicator of the basic group having a course on the date (or half-day)
func (env *Env) GroupBusyDay(period model.PeriodID, basic model.GroupID, date time.Time, half model.HalfDay) milp.LinExpr {
	key := busyKey{group: true, owner: uint64(basic), date: date, half: half}
	return env.busyIndicator(key, func() milp.LinExpr {
		return env.GroupExpr(env.GroupCourses(period, basic), onDay(date, half, env.Snapshot.Settings))
	}, fmt.Sprintf("GBD(%v,%v,%v)", basic, date.Format(model.DateLayout), half))
}

// Indicators are created once, on first use. A constant sum yields a constant indicator.
func (env *Env) busyIndicator(key busyKey, sum func() milp.LinExpr, name string) milp.LinExpr {
	if indicator, ok := env.busyDays[key]; ok {
		return milp.Sum(indicator) // Expressions share their terms, callers get a copy
	}
	expr := sum()
	indicator := milp.Constant(0)
	if expr.IsConstant() {
		if expr.Constant() > 0 {
			indicator = milp.Constant(1)
		}
	} else {
		_, bound := env.Model.Bounds(expr)
		indicator = milp.Expr(env.Model.AddFloor(expr, 1, bound, name, milp.Tag{Kind: "BusyDay", Detail: name}))
	}
	env.busyDays[key] = indicator
	return milp.Sum(indicator)
}

//** Helpers

// Tag builds the diagnostic tag of a rule's constraint
func Tag(kind, rule string, format string, args ...any) milp.Tag {
	return milp.Tag{Kind: kind, Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

func (env *Env) Warn(rule, kind, format string, args ...any) {
	env.Warnings.Warn(rule, kind, format, args...)
}
