package store

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"gorm.io/datatypes"
)

//** Tables

type departmentRecord struct {
	Abbrev   string `gorm:"primaryKey"`
	Name     string `gorm:"not null"`
	Settings datatypes.JSON
}

type periodRecord struct {
	Id         model.PeriodID `gorm:"primaryKey;autoIncrement:false"`
	Department string         `gorm:"index;not null"`
	Name       string
	Start      time.Time
	End        time.Time
}

type trainProgramRecord struct {
	Id         model.TrainProgramID `gorm:"primaryKey;autoIncrement:false"`
	Department string               `gorm:"index;not null"`
	Abbrev     string
}

type courseTypeRecord struct {
	Id         model.CourseTypeID `gorm:"primaryKey;autoIncrement:false"`
	Department string             `gorm:"index;not null"`
	Name       string
	Duration   int
}

type startTimeRuleRecord struct {
	ID                uint   `gorm:"primaryKey"`
	Department        string `gorm:"index;not null"`
	Duration          int
	AllowedStartTimes datatypes.JSON
}

type moduleRecord struct {
	Id           model.ModuleID `gorm:"primaryKey;autoIncrement:false"`
	Department   string         `gorm:"index;not null"`
	Abbrev       string
	TrainProgram model.TrainProgramID
	Tutors       datatypes.JSON
}

type courseRecord struct {
	Id             model.CourseID `gorm:"primaryKey;autoIncrement:false"`
	Department     string         `gorm:"index;not null"`
	Type           model.CourseTypeID
	Module         model.ModuleID
	Period         model.PeriodID `gorm:"index"`
	Groups         datatypes.JSON
	Tutor          *model.TutorID
	PossibleTutors datatypes.JSON
	SuppTutors     datatypes.JSON
	RoomType       *model.RoomTypeID
	Room           *model.RoomID
}

type repartitionRecord struct {
	ID         uint   `gorm:"primaryKey"`
	Department string `gorm:"index;not null"`
	Module     model.ModuleID
	CourseType model.CourseTypeID
	Period     model.PeriodID
	Tutor      model.TutorID
	Count      int
}

// Tutors and rooms may work for several departments
type tutorRecord struct {
	Id               model.TutorID `gorm:"primaryKey;autoIncrement:false"`
	Username         string        `gorm:"unique;not null"`
	Status           string
	Departments      datatypes.JSON
	MaxMinutesPerDay int
	MinMinutesPerDay int
	Availabilities   datatypes.JSON
}

type groupRecord struct {
	Id           model.GroupID `gorm:"primaryKey;autoIncrement:false"`
	Department   string        `gorm:"index;not null"`
	Name         string
	TrainProgram model.TrainProgramID
	Transversal  bool
	Parents      datatypes.JSON
	Conflicting  datatypes.JSON
	Parallel     datatypes.JSON
}

type roomTypeRecord struct {
	Id         model.RoomTypeID `gorm:"primaryKey;autoIncrement:false"`
	Department string           `gorm:"index;not null"`
	Name       string
	Members    datatypes.JSON
}

type roomRecord struct {
	Id               model.RoomID `gorm:"primaryKey;autoIncrement:false"`
	Name             string
	Departments      datatypes.JSON
	Subrooms         datatypes.JSON
	Unavailabilities datatypes.JSON
}

type fixedCourseRecord struct {
	Id         uint64         `gorm:"primaryKey;autoIncrement:false"`
	Department string         `gorm:"index"`
	Period     model.PeriodID `gorm:"index"`
	Type       model.CourseTypeID
	Weekday    time.Weekday
	Start      int
	Duration   int
	Tutor      *model.TutorID
	Room       *model.RoomID
	Groups     datatypes.JSON
}

type dependencyRecord struct {
	Id         uint64 `gorm:"primaryKey;autoIncrement:false"`
	Department string `gorm:"index;not null"`
	Course1    model.CourseID
	Course2    model.CourseID
	Successive bool
	NotSameDay bool
	DayGap     int
}

type pivotRecord struct {
	Id         uint64 `gorm:"primaryKey;autoIncrement:false"`
	Department string `gorm:"index;not null"`
	Pivot      model.CourseID
	Others     datatypes.JSON
	After      bool
	NotSameDay bool
}

type holidayRecord struct {
	ID         uint `gorm:"primaryKey"`
	Date       time.Time
	Department string `gorm:"index"` // Empty stands for every department
}

type ruleRecord struct {
	Id         string `gorm:"primaryKey"`
	Department string `gorm:"index;not null"`
	Kind       string `gorm:"not null"`
	Weight     *int
	Comment    string
	Periods    datatypes.JSON
	Active     *bool
	Params     datatypes.JSON
}

type scheduledCourseRecord struct {
	ID       uint           `gorm:"primaryKey"`
	Course   model.CourseID `gorm:"uniqueIndex:idx_fact;not null"`
	Period   model.PeriodID `gorm:"uniqueIndex:idx_fact;index:idx_version;not null"`
	Version  int            `gorm:"uniqueIndex:idx_fact;index:idx_version;not null"`
	Date     time.Time
	Start    int
	Duration int
	Tutor    *model.TutorID
	Room     *model.RoomID
}

func tables() []any {
	return []any{
		&departmentRecord{}, &periodRecord{}, &trainProgramRecord{}, &courseTypeRecord{}, &startTimeRuleRecord{},
		&moduleRecord{}, &courseRecord{}, &repartitionRecord{}, &tutorRecord{}, &groupRecord{}, &roomTypeRecord{},
		&roomRecord{}, &fixedCourseRecord{}, &dependencyRecord{}, &pivotRecord{}, &holidayRecord{}, &ruleRecord{},
		&scheduledCourseRecord{},
	}
}

//** JSON columns

func encode(value any) datatypes.JSON {
	bytes, err := json.Marshal(value)
	if err != nil {
		log.Panicf("cannot encode column value %v: %v", value, err)
	}
	return datatypes.JSON(bytes)
}

// columns decodes JSON columns, keeping the first error
type columns struct {
	err error
}

func column[T any](c *columns, table string, data datatypes.JSON) T {
	var value T
	if len(data) == 0 || c.err != nil {
		return value
	}
	if err := json.Unmarshal(data, &value); err != nil {
		c.err = fmt.Errorf("malformed column of %v: %w", table, err)
	}
	return value
}

//** Conversions

func scheduledRecord(scheduled model.ScheduledCourse) scheduledCourseRecord {
	return scheduledCourseRecord{
		Course:   scheduled.Course,
		Period:   scheduled.Period,
		Version:  scheduled.Version,
		Date:     model.DateOf(scheduled.Date),
		Start:    scheduled.Start,
		Duration: scheduled.Duration,
		Tutor:    scheduled.Tutor,
		Room:     scheduled.Room,
	}
}

func (record scheduledCourseRecord) scheduled() model.ScheduledCourse {
	return model.ScheduledCourse{
		Course:   record.Course,
		Period:   record.Period,
		Version:  record.Version,
		Date:     model.DateOf(record.Date),
		Start:    record.Start,
		Duration: record.Duration,
		Tutor:    record.Tutor,
		Room:     record.Room,
	}
}

func (record ruleRecord) raw(c *columns) model.RawRule {
	return model.RawRule{
		Id:         record.Id,
		Kind:       record.Kind,
		Department: record.Department,
		Weight:     record.Weight,
		Comment:    record.Comment,
		Periods:    column[[]model.PeriodID](c, "rules", record.Periods),
		Active:     record.Active,
		Params:     column[map[string]any](c, "rules", record.Params),
	}
}
