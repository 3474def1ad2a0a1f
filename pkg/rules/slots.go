package rules

import (
	"errors"
	"slices"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
)

// Forbids (or penalizes) the scheduling of the scope's courses at the rejected slots
func rejectSlots(c contribution, scope Scope, rejected func(*model.CourseSlot) bool, reason string) {
	for _, course := range scope.Courses {
		for _, slot := range c.env.Snapshot.CompatibleSlots(course) {
			if rejected(slot) {
				c.forbid(c.env.SchedExpr(slot, course), slotOwner(slot), "course %v %v at %v", course.Id, reason, slot)
			}
		}
	}
}

func onWeekdays(weekdays []time.Weekday, slot *model.CourseSlot) bool {
	return len(weekdays) == 0 || slices.Contains(weekdays, slot.Weekday())
}

//** LimitStartTimeChoices

// LimitStartTimeChoices only lets the courses in scope start at some times, on some weekdays when given
type LimitStartTimeChoices struct {
	Base              `mapstructure:",squash"`
	AllowedStartTimes []int
	Weekdays          []string

	weekdays []time.Weekday
}

func (*LimitStartTimeChoices) Kind() string {
	return KindLimitStartTimeChoices
}

func (rule *LimitStartTimeChoices) validate() (err error) {
	if len(rule.AllowedStartTimes) == 0 {
		return errors.New("AllowedStartTimes must not be empty")
	}
	rule.weekdays, err = parseWeekdays(rule.Weekdays)
	return err
}

func (rule *LimitStartTimeChoices) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *LimitStartTimeChoices) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *LimitStartTimeChoices) contribute(c contribution, scope Scope) {
	rejectSlots(c, scope, func(slot *model.CourseSlot) bool {
		return onWeekdays(rule.weekdays, slot) && !slices.Contains(rule.AllowedStartTimes, slot.Start)
	}, "disallowed start")
}

//** AvoidStartTimes

// AvoidStartTimes keeps the courses in scope from starting at some times, on some weekdays when given
type AvoidStartTimes struct {
	Base       `mapstructure:",squash"`
	StartTimes []int
	Weekdays   []string

	weekdays []time.Weekday
}

func (*AvoidStartTimes) Kind() string {
	return KindAvoidStartTimes
}

func (rule *AvoidStartTimes) validate() (err error) {
	if len(rule.StartTimes) == 0 {
		return errors.New("StartTimes must not be empty")
	}
	rule.weekdays, err = parseWeekdays(rule.Weekdays)
	return err
}

func (rule *AvoidStartTimes) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *AvoidStartTimes) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *AvoidStartTimes) contribute(c contribution, scope Scope) {
	rejectSlots(c, scope, func(slot *model.CourseSlot) bool {
		return onWeekdays(rule.weekdays, slot) && slices.Contains(rule.StartTimes, slot.Start)
	}, "avoided start")
}

//** NoCourseOnDay

// NoCourseOnDay keeps the courses in scope off a weekday, or off one of its half-days
type NoCourseOnDay struct {
	Base    `mapstructure:",squash"`
	Weekday string
	HalfDay string

	weekday time.Weekday
	half    model.HalfDay
}

func (*NoCourseOnDay) Kind() string {
	return KindNoCourseOnDay
}

func (rule *NoCourseOnDay) validate() (err error) {
	if rule.weekday, err = parseWeekday(rule.Weekday); err != nil {
		return err
	}
	rule.half, err = parseHalfDay(rule.HalfDay)
	return err
}

func (rule *NoCourseOnDay) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *NoCourseOnDay) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *NoCourseOnDay) contribute(c contribution, scope Scope) {
	rejectSlots(c, scope, func(slot *model.CourseSlot) bool {
		return slot.Weekday() == rule.weekday && (rule.half == model.AllDay || c.env.Snapshot.HalfDayOf(slot) == rule.half)
	}, "off day")
}

// Unavailabilities returns the day (or half-day) of the period the subject cannot teach or attend.
// Only rules filtering on tutors and groups alone make whole days unavailable to someone.
func (rule *NoCourseOnDay) Unavailabilities(snap *snapshot.Snapshot, subject Subject, period model.PeriodID) []model.Slot {
	filter := rule.Filter
	if len(filter.Modules)+len(filter.TrainPrograms)+len(filter.CourseTypes)+len(filter.Rooms)+len(filter.Courses) > 0 {
		return nil
	}
	if subject.Tutor != nil && (len(filter.Groups) > 0 || !in(filter.Tutors, *subject.Tutor)) {
		return nil
	}
	if subject.Group != nil && (len(filter.Tutors) > 0 || !in(filter.BasicGroups(snap), *subject.Group)) {
		return nil
	}
	dates := lo.Filter(snap.WorkingDates(period), func(date time.Time, _ int) bool { return date.Weekday() == rule.weekday })
	return lo.Map(dates, func(date time.Time, _ int) model.Slot { return halfDaySlot(snap.Settings, date, rule.half) })
}

//** LunchBreak

// LunchBreak keeps a free window of MinLength minutes between Start and End on every day, for the tutors
// in scope or for the basic groups in scope. Start and End default to the department's lunch hours.
type LunchBreak struct {
	Base      `mapstructure:",squash"`
	Start     int
	End       int
	MinLength int
	ForTutors bool
}

func (*LunchBreak) Kind() string {
	return KindLunchBreak
}

func (rule *LunchBreak) validate() error {
	if rule.MinLength < 0 || rule.Start < 0 || rule.End < 0 {
		return errNegative("Start, End and MinLength")
	}
	return nil
}

func (rule *LunchBreak) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *LunchBreak) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

// windows returns the candidate breaks of a date
func (rule *LunchBreak) windows(settings model.TimeSettings, date time.Time) []model.Slot {
	start, end := rule.Start, rule.End
	if start == 0 && end == 0 {
		start, end = settings.LunchStart, settings.LunchFinish
	}
	length := lo.Ternary(rule.MinLength > 0, rule.MinLength, end-start)
	step := lo.Ternary(settings.SlotStep > 0, settings.SlotStep, 15)
	windows := []model.Slot{}
	for t := start; length > 0 && t+length <= end; t += step {
		windows = append(windows, model.Slot{Date: date, Start: t, Duration: length})
	}
	return windows
}

func (rule *LunchBreak) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	if len(rule.windows(snap.Settings, time.Time{})) == 0 {
		warn(c.env, rule, "no break window fits, rule ignored")
		return
	}

	busyAt := func(window model.Slot) func(*model.CourseSlot) bool {
		return func(slot *model.CourseSlot) bool { return slot.Overlaps(window) }
	}
	for _, date := range snap.WorkingDates(scope.Period) {
		windows := rule.windows(snap.Settings, date)
		day := date.Format(model.DateLayout)
		if rule.ForTutors {
			for _, tutor := range scope.Tutors {
				courses := c.env.TutorCourses(scope.Period, tutor)
				rule.keepOneFree(c, windows, func(window model.Slot) milp.LinExpr {
					return c.env.TutorExpr(tutor, courses, busyAt(window))
				}, tutorOwner(tutor), "tutor %v on %v", tutor, day)
			}
			continue
		}
		for _, basic := range scope.Groups {
			courses := c.env.GroupCourses(scope.Period, basic)
			rule.keepOneFree(c, windows, func(window model.Slot) milp.LinExpr {
				return c.env.GroupExpr(courses, busyAt(window))
			}, groupOwner(basic), "group %v on %v", basic, day)
		}
	}
}

func (rule *LunchBreak) keepOneFree(c contribution, windows []model.Slot, occupation func(model.Slot) milp.LinExpr, owner owner, format string, args ...any) {
	busy := milp.LinExpr{}
	for _, window := range windows {
		busy = busy.Plus(exceeds(c.env, occupation(window), 1, "busy "+window.String(), c.tag(format, args...)))
	}
	if busy.IsConstant() && busy.Constant() < float64(len(windows)) {
		return
	}
	c.atMost(busy, float64(len(windows)-1), owner, format, args...)
}

//** BreakAroundCourseType

// BreakAroundCourseType keeps MinBreak minutes between the courses of a type and the other courses of a group
type BreakAroundCourseType struct {
	Base       `mapstructure:",squash"`
	CourseType model.CourseTypeID
	MinBreak   int
}

func (*BreakAroundCourseType) Kind() string {
	return KindBreakAroundCourseType
}

func (rule *BreakAroundCourseType) validate() error {
	if rule.MinBreak <= 0 {
		return errors.New("MinBreak must be positive")
	}
	return nil
}

func (rule *BreakAroundCourseType) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *BreakAroundCourseType) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

// tooClose checks whether a slot starts or ends less than the break away from the other, without overlapping
func (rule *BreakAroundCourseType) tooClose(a, b *model.CourseSlot) bool {
	if !a.SameDate(b.Slot) || a.Overlaps(b.Slot) {
		return false
	}
	return (b.Start >= a.End() && b.Start < a.End()+rule.MinBreak) || (a.Start >= b.End() && a.Start < b.End()+rule.MinBreak)
}

func (rule *BreakAroundCourseType) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	for _, basic := range scope.Groups {
		typed, others := lo.FilterReject(c.env.GroupCourses(scope.Period, basic), func(course *model.Course, _ int) bool {
			return course.Type == rule.CourseType
		})
		if len(typed) == 0 || len(others) == 0 {
			continue
		}
		byType := lo.GroupBy(others, func(course *model.Course) model.CourseTypeID { return course.Type })
		otherTypes := lo.Keys(byType)
		slices.Sort(otherTypes)

		for _, a := range snap.CompatibleSlots(typed[0]) {
			typedAt := c.env.GroupExpr(typed, func(slot *model.CourseSlot) bool { return slot == a })
			if typedAt.IsConstant() {
				continue
			}
			for _, courseType := range otherTypes {
				courses := byType[courseType]
				for _, b := range snap.CompatibleSlots(courses[0]) {
					if !rule.tooClose(a, b) {
						continue
					}
					otherAt := c.env.GroupExpr(courses, func(slot *model.CourseSlot) bool { return slot == b })
					c.atMost(typedAt.Plus(otherAt), 1, groupOwner(basic), "group %v break between %v and %v", basic, a, b)
				}
			}
		}
	}
}
