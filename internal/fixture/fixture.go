// Package fixture builds small department inputs for tests
package fixture

import (
	"fmt"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
)

const Department = "INFO"

// Monday is the single date of the default period
var Monday = time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)

const (
	CM model.CourseTypeID = 1
	TD model.CourseTypeID = 2
)

// DefaultStarts are the allowed starts of one-hour courses: 08:00, 10:00 and 14:00
var DefaultStarts = []int{8 * 60, 10 * 60, 14 * 60}

type Builder struct {
	Input model.Input
}

// New returns a department with one period made of a single Monday, one training program, one module,
// one tutor, one basic group and two one-hour course types
func New() *Builder {
	return &Builder{Input: model.Input{
		Department: model.Department{
			Abbrev: Department,
			Name:   "Informatique",
			TimeSettings: model.TimeSettings{
				DayStart:                  8 * 60,
				DayFinish:                 18 * 60,
				LunchStart:                12 * 60,
				LunchFinish:               13 * 60,
				Days:                      []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
				SlotStep:                  15,
				DefaultPreferenceDuration: 6 * 60,
			},
		},
		Periods:       []model.Period{{Id: 1, Name: "w36", Department: Department, Start: Monday, End: Monday}},
		TrainPrograms: []model.TrainProgram{{Id: 1, Abbrev: "BUT1", Department: Department}},
		CourseTypes: []model.CourseType{
			{Id: CM, Name: "CM", Department: Department, Duration: 60},
			{Id: TD, Name: "TD", Department: Department, Duration: 60},
		},
		StartTimeRules: []model.StartTimeRule{{Department: Department, Duration: 60, AllowedStartTimes: DefaultStarts}},
		Modules:        []model.Module{{Id: 1, Abbrev: "ALGO", TrainProgram: 1, Tutors: []model.TutorID{1}}},
		Tutors:         []model.Tutor{{Id: 1, Username: "AB", Departments: []string{Department}}},
		Groups:         []model.Group{{Id: 1, Name: "G1", TrainProgram: 1}},
	}}
}

// Week replaces the default period by a Monday to Sunday week
func (b *Builder) Week() *Builder {
	b.Input.Periods[0].End = Monday.AddDate(0, 0, 6)
	return b
}

// Period adds a week-long period starting weeks after the default one
func (b *Builder) Period(id model.PeriodID, weeks int) *Builder {
	start := Monday.AddDate(0, 0, 7*weeks)
	b.Input.Periods = append(b.Input.Periods, model.Period{
		Id: id, Name: fmt.Sprintf("p%v", id), Department: Department, Start: start, End: start.AddDate(0, 0, 6),
	})
	return b
}

type CourseOption func(*model.Course)

func WithTutor(tutor model.TutorID) CourseOption {
	return func(course *model.Course) { course.Tutor = &tutor }
}

func WithPossibleTutors(tutors ...model.TutorID) CourseOption {
	return func(course *model.Course) { course.PossibleTutors = tutors }
}

func WithSuppTutors(tutors ...model.TutorID) CourseOption {
	return func(course *model.Course) { course.SuppTutors = tutors }
}

func WithGroups(groups ...model.GroupID) CourseOption {
	return func(course *model.Course) { course.Groups = groups }
}

func WithType(courseType model.CourseTypeID) CourseOption {
	return func(course *model.Course) { course.Type = courseType }
}

func WithPeriod(period model.PeriodID) CourseOption {
	return func(course *model.Course) { course.Period = period }
}

func WithModule(module model.ModuleID) CourseOption {
	return func(course *model.Course) { course.Module = module }
}

func WithRoomType(roomType model.RoomTypeID) CourseOption {
	return func(course *model.Course) { course.RoomType = &roomType }
}

func WithRoom(room model.RoomID) CourseOption {
	return func(course *model.Course) { course.Room = &room }
}

// Course adds a CM course of the default module and period, given to group 1
func (b *Builder) Course(id model.CourseID, options ...CourseOption) *Builder {
	course := model.Course{Id: id, Type: CM, Module: 1, Period: 1, Groups: []model.GroupID{1}}
	for _, option := range options {
		option(&course)
	}
	b.Input.Courses = append(b.Input.Courses, course)
	return b
}

// Courses adds n courses numbered from 1
func (b *Builder) Courses(n int, options ...CourseOption) *Builder {
	for i := range n {
		b.Course(model.CourseID(i+1), options...)
	}
	return b
}

func (b *Builder) Tutor(tutor model.Tutor) *Builder {
	b.Input.Tutors = append(b.Input.Tutors, tutor)
	return b
}

// Availability declares a tutor's value over an interval of a date
func (b *Builder) Availability(tutor model.TutorID, date time.Time, start, duration, value int) *Builder {
	for i := range b.Input.Tutors {
		if b.Input.Tutors[i].Id == tutor {
			b.Input.Tutors[i].Availabilities = append(b.Input.Tutors[i].Availabilities,
				model.Availability{Date: date, Start: start, Duration: duration, Value: value})
		}
	}
	return b
}

func (b *Builder) Group(group model.Group) *Builder {
	b.Input.Groups = append(b.Input.Groups, group)
	return b
}

func (b *Builder) Room(room model.Room) *Builder {
	b.Input.Rooms = append(b.Input.Rooms, room)
	return b
}

func (b *Builder) RoomType(roomType model.RoomType) *Builder {
	b.Input.RoomTypes = append(b.Input.RoomTypes, roomType)
	return b
}

// RoomUnavailable declares a room unavailable over an interval of a date
func (b *Builder) RoomUnavailable(room model.RoomID, date time.Time, start, duration int) *Builder {
	for i := range b.Input.Rooms {
		if b.Input.Rooms[i].Id == room {
			b.Input.Rooms[i].Unavailabilities = append(b.Input.Rooms[i].Unavailabilities,
				model.Availability{Date: date, Start: start, Duration: duration, Value: 0})
		}
	}
	return b
}

func (b *Builder) Fixed(fixed model.FixedCourse) *Builder {
	b.Input.FixedCourses = append(b.Input.FixedCourses, fixed)
	return b
}

func (b *Builder) Dependency(dependency model.Dependency) *Builder {
	b.Input.Dependencies = append(b.Input.Dependencies, dependency)
	return b
}

func (b *Builder) Pivot(pivot model.Pivot) *Builder {
	b.Input.Pivots = append(b.Input.Pivots, pivot)
	return b
}

func (b *Builder) Holiday(date time.Time) *Builder {
	b.Input.Holidays = append(b.Input.Holidays, model.Holiday{Date: date, Department: Department})
	return b
}

// Hard returns a nil weight
func Hard() *int {
	return nil
}

func Weight(weight int) *int {
	return &weight
}

// Rule adds a rule instance, its identifier is derived from its kind and position
func (b *Builder) Rule(kind string, weight *int, params map[string]any) *Builder {
	b.Input.Rules = append(b.Input.Rules, model.RawRule{
		Id:     fmt.Sprintf("%v-%d", kind, len(b.Input.Rules)+1),
		Kind:   kind,
		Weight: weight,
		Params: params,
	})
	return b
}

func (b *Builder) Schedule(scheduled ...model.ScheduledCourse) *Builder {
	b.Input.Schedules = append(b.Input.Schedules, scheduled...)
	return b
}

func (b *Builder) Build() model.Input {
	return b.Input
}
