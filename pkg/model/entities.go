package model

import (
	"slices"
	"time"
)

type (
	PeriodID       uint64
	CourseID       uint64
	CourseTypeID   uint64
	ModuleID       uint64
	TrainProgramID uint64
	TutorID        uint64
	GroupID        uint64
	RoomID         uint64
	RoomTypeID     uint64
)

const (
	MaxAvailability     = 8 // Highest preference value a tutor can declare
	DefaultAvailability = 5 // Value of any undeclared tutor time
	UndesiredThreshold  = 2 // Values in [1, UndesiredThreshold] are undesired
)

type HalfDay int

const (
	AllDay HalfDay = iota
	Morning
	Afternoon
)

func (h HalfDay) String() string {
	switch h {
	case Morning:
		return "AM"
	case Afternoon:
		return "PM"
	}
	return "day"
}

// TimeSettings holds the department's daily opening hours, in minutes since midnight.
type TimeSettings struct {
	DayStart                  int
	DayFinish                 int
	LunchStart                int
	LunchFinish               int
	Days                      []time.Weekday
	SlotStep                  int // Granularity of availability slots
	DefaultPreferenceDuration int // Preferred teaching time of a busy day
}

func (settings TimeSettings) IsWorkingDay(day time.Weekday) bool {
	return slices.Contains(settings.Days, day)
}

// Returns the half-day a start time belongs to
func (settings TimeSettings) HalfDayOf(start int) HalfDay {
	if start < settings.LunchStart {
		return Morning
	}
	return Afternoon
}

type Department struct {
	Abbrev       string
	Name         string
	TimeSettings TimeSettings
}

// Period is the atomic time bucket a run optimizes, usually a week.
type Period struct {
	Id         PeriodID
	Name       string
	Department string
	Start      time.Time // First date (inclusive)
	End        time.Time // Last date (inclusive)
}

func (period Period) Contains(date time.Time) bool {
	date = DateOf(date)
	return !date.Before(DateOf(period.Start)) && !date.After(DateOf(period.End))
}

// Dates returns every calendar date of the period
func (period Period) Dates() []time.Time {
	dates := make([]time.Time, 0, 7)
	for date := DateOf(period.Start); !date.After(DateOf(period.End)); date = date.AddDate(0, 0, 1) {
		dates = append(dates, date)
	}
	return dates
}

type TrainProgram struct {
	Id         TrainProgramID
	Abbrev     string
	Department string
}

type CourseType struct {
	Id         CourseTypeID
	Name       string
	Department string
	Duration   int
}

// StartTimeRule declares the allowed start times of every course of a given duration.
type StartTimeRule struct {
	Department        string
	Duration          int
	AllowedStartTimes []int
}

type Module struct {
	Id           ModuleID
	Abbrev       string
	TrainProgram TrainProgramID
	Tutors       []TutorID // Per-module tutors list
}

type Course struct {
	Id             CourseID
	Type           CourseTypeID
	Module         ModuleID
	Period         PeriodID
	Groups         []GroupID
	Tutor          *TutorID  // Explicit tutor
	PossibleTutors []TutorID // Explicit per-course tutors list
	SuppTutors     []TutorID // Supplementary tutors attending the course
	RoomType       *RoomTypeID
	Room           *RoomID // Pre-assigned room
}

// Repartition states how many courses of a module and course type a tutor gives in a period.
type Repartition struct {
	Module     ModuleID
	CourseType CourseTypeID
	Period     PeriodID
	Tutor      TutorID
	Count      int
}

type Availability struct {
	Date     time.Time
	Start    int
	Duration int
	Value    int
}

func (availability Availability) Slot() Slot {
	return Slot{Date: DateOf(availability.Date), Start: availability.Start, Duration: availability.Duration}
}

type Tutor struct {
	Id               TutorID
	Username         string
	Status           string
	Departments      []string
	MaxMinutesPerDay int // 0 stands for unbounded
	MinMinutesPerDay int
	Availabilities   []Availability
}

// Group is either a structural group (tree-shaped through Parents) or a transversal one.
type Group struct {
	Id           GroupID
	Name         string
	TrainProgram TrainProgramID
	Transversal  bool
	Parents      []GroupID // Structural parents
	Conflicting  []GroupID // Structural groups a transversal group conflicts with
	Parallel     []GroupID // Transversal groups a transversal group may run in parallel with
}

type RoomType struct {
	Id         RoomTypeID
	Name       string
	Department string
	Members    []RoomID
}

type Room struct {
	Id               RoomID
	Name             string
	Departments      []string
	Subrooms         []RoomID
	Unavailabilities []Availability
}

// FixedCourse is a committed booking that this run cannot move.
type FixedCourse struct {
	Id         uint64
	Department string
	Period     PeriodID
	Type       CourseTypeID
	Weekday    time.Weekday
	Start      int
	Duration   int
	Tutor      *TutorID
	Room       *RoomID
	Groups     []GroupID
}

type Dependency struct {
	Id         uint64
	Course1    CourseID
	Course2    CourseID
	Successive bool // Course2 must start right when Course1 ends
	NotSameDay bool
	DayGap     int // Minimal number of days between both courses
}

type Pivot struct {
	Id         uint64
	Pivot      CourseID
	Others     []CourseID
	After      bool // Others are scheduled after the pivot if true, before otherwise
	NotSameDay bool
}

type Holiday struct {
	Date       time.Time
	Department string // Empty stands for every department
}

// ScheduledCourse is one committed placement fact of a schedule version.
type ScheduledCourse struct {
	Course   CourseID
	Period   PeriodID
	Version  int
	Date     time.Time
	Start    int
	Duration int
	Tutor    *TutorID
	Room     *RoomID
}

func (scheduled ScheduledCourse) Slot() Slot {
	return Slot{Date: DateOf(scheduled.Date), Start: scheduled.Start, Duration: scheduled.Duration}
}
