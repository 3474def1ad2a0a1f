package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

// NoRoom is the room option standing for a remote (visio) course
const NoRoom model.RoomID = 0

type Options struct {
	Periods       []model.PeriodID
	TrainPrograms []model.TrainProgramID // Empty stands for every training program
	SlotStep      int                    // When positive, start times are every step from the day start
	Visio         bool                   // Whether "no room" is a valid room choice
}

// Busy is a time interval blocked by a committed booking this run cannot move
type Busy struct {
	Slot   model.Slot
	Reason string
}

// Instant is a moment at which simultaneity is checked
type Instant struct {
	Date   time.Time
	Minute int
}

func (instant Instant) String() string {
	return fmt.Sprintf("%v %v", instant.Date.Format(model.DateLayout), model.FormatMinutes(instant.Minute))
}

// Snapshot indexes everything a run needs, it is never mutated once built
type Snapshot struct {
	Input    model.Input
	Settings model.TimeSettings
	Options  Options
	Periods  []model.Period

	workingDates map[model.PeriodID][]time.Time
	holidays     map[time.Time]bool

	courses       []*model.Course
	courseById    map[model.CourseID]*model.Course
	coursesByPer  map[model.PeriodID][]*model.Course
	courseTypes   map[model.CourseTypeID]model.CourseType
	modules       map[model.ModuleID]model.Module
	allowedStarts map[int][]int // By duration

	slots             []*model.CourseSlot
	slotsByPeriodType map[model.PeriodID]map[model.CourseTypeID][]*model.CourseSlot
	slotsByPeriod     map[model.PeriodID][]*model.CourseSlot
	slotsByDate       map[time.Time][]*model.CourseSlot
	instants          map[model.PeriodID][]Instant

	possibleTutors map[model.CourseID][]model.TutorID
	possibleRooms  map[model.CourseID][]model.RoomID
	tutors         map[model.TutorID]*model.Tutor

	groups
	rooms

	fixedSlots map[uint64]*model.CourseSlot
	tutorBusy  map[model.TutorID][]Busy
	roomBusy   map[model.RoomID][]Busy // By basic room
	groupBusy  map[model.GroupID][]Busy // By basic group
}

// Build computes every index at once. It fails with a *model.ConfigurationError on unusable data.
func Build(input model.Input, options Options) (*Snapshot, error) {
	snapshot := &Snapshot{
		Input:    input,
		Settings: input.Department.TimeSettings,
		Options:  options,
	}

	builders := []func() error{
		snapshot.buildPeriods,
		snapshot.buildCourses,
		snapshot.buildGroups,
		snapshot.buildRooms,
		snapshot.buildSlots,
		snapshot.buildTutors,
		snapshot.buildPossibleRooms,
		snapshot.buildBusy,
	}
	for _, build := range builders {
		if err := build(); err != nil {
			return nil, fmt.Errorf("cannot build snapshot of %v: %w", input.Department.Abbrev, err)
		}
	}

	glog.Infof("snapshot of %v: %d periods, %d courses, %d course slots, %d tutors, %d basic groups, %d rooms",
		input.Department.Abbrev, len(snapshot.Periods), len(snapshot.courses), len(snapshot.slots),
		len(snapshot.tutors), len(snapshot.basicGroups), len(snapshot.roomById))
	return snapshot, nil
}

func (snapshot *Snapshot) buildPeriods() error {
	snapshot.workingDates = make(map[model.PeriodID][]time.Time)
	snapshot.holidays = make(map[time.Time]bool)
	for _, holiday := range snapshot.Input.Holidays {
		if holiday.Department == "" || holiday.Department == snapshot.Input.Department.Abbrev {
			snapshot.holidays[model.DateOf(holiday.Date)] = true
		}
	}

	for _, id := range lo.Uniq(snapshot.Options.Periods) {
		period, ok := snapshot.Input.Period(id)
		if !ok {
			return model.NewConfigurationError(fmt.Sprintf("period %v", id), "unknown period")
		}
		if period.End.Before(period.Start) {
			return model.NewConfigurationError(fmt.Sprintf("period %v", id), "ends on %v before starting on %v",
				period.End.Format(model.DateLayout), period.Start.Format(model.DateLayout))
		}
		snapshot.Periods = append(snapshot.Periods, period)
		snapshot.workingDates[id] = lo.Filter(period.Dates(), func(date time.Time, _ int) bool {
			return snapshot.Settings.IsWorkingDay(date.Weekday()) && !snapshot.holidays[date]
		})
	}
	slices.SortFunc(snapshot.Periods, func(a, b model.Period) int { return a.Start.Compare(b.Start) })
	return nil
}

func (snapshot *Snapshot) buildCourses() error {
	snapshot.courseTypes = lo.KeyBy(snapshot.Input.CourseTypes, func(courseType model.CourseType) model.CourseTypeID { return courseType.Id })
	snapshot.modules = lo.KeyBy(snapshot.Input.Modules, func(module model.Module) model.ModuleID { return module.Id })

	snapshot.courseById = make(map[model.CourseID]*model.Course)
	snapshot.coursesByPer = make(map[model.PeriodID][]*model.Course)
	for i := range snapshot.Input.Courses {
		course := &snapshot.Input.Courses[i]
		if _, ok := snapshot.workingDates[course.Period]; !ok {
			continue
		}
		module, ok := snapshot.modules[course.Module]
		if !ok {
			return model.NewConfigurationError(fmt.Sprintf("course %v", course.Id), "unknown module %v", course.Module)
		}
		if len(snapshot.Options.TrainPrograms) > 0 && !slices.Contains(snapshot.Options.TrainPrograms, module.TrainProgram) {
			continue
		}
		if _, ok := snapshot.courseTypes[course.Type]; !ok {
			return model.NewConfigurationError(fmt.Sprintf("course %v", course.Id), "unknown course type %v", course.Type)
		}
		snapshot.courses = append(snapshot.courses, course)
		snapshot.courseById[course.Id] = course
		snapshot.coursesByPer[course.Period] = append(snapshot.coursesByPer[course.Period], course)
	}
	slices.SortFunc(snapshot.courses, func(a, b *model.Course) int { return cmp.Compare(a.Id, b.Id) })
	return nil
}

//** Courses

// Courses returns the in-scope courses sorted by id
func (snapshot *Snapshot) Courses() []*model.Course {
	return snapshot.courses
}

func (snapshot *Snapshot) CoursesOf(period model.PeriodID) []*model.Course {
	return snapshot.coursesByPer[period]
}

// Course returns an in-scope course
func (snapshot *Snapshot) Course(id model.CourseID) (*model.Course, bool) {
	course, ok := snapshot.courseById[id]
	return course, ok
}

func (snapshot *Snapshot) CourseType(id model.CourseTypeID) model.CourseType {
	return snapshot.courseTypes[id]
}

func (snapshot *Snapshot) Duration(course *model.Course) int {
	return snapshot.courseTypes[course.Type].Duration
}

func (snapshot *Snapshot) Module(id model.ModuleID) model.Module {
	return snapshot.modules[id]
}

func (snapshot *Snapshot) TrainProgramOf(course *model.Course) model.TrainProgramID {
	return snapshot.modules[course.Module].TrainProgram
}

//** Periods

func (snapshot *Snapshot) WorkingDates(period model.PeriodID) []time.Time {
	return snapshot.workingDates[period]
}

func (snapshot *Snapshot) IsHoliday(date time.Time) bool {
	return snapshot.holidays[model.DateOf(date)]
}

func (snapshot *Snapshot) Period(id model.PeriodID) (model.Period, bool) {
	return lo.Find(snapshot.Periods, func(period model.Period) bool { return period.Id == id })
}

// PeriodOf returns the in-scope period holding a date
func (snapshot *Snapshot) PeriodOf(date time.Time) (model.Period, bool) {
	return lo.Find(snapshot.Periods, func(period model.Period) bool { return period.Contains(date) })
}
