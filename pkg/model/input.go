package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// RawRule is a persisted constraint instance before being decoded into its concrete kind
type RawRule struct {
	Id         string
	Kind       string
	Department string
	Weight     *int // nil stands for a hard rule
	Comment    string
	Periods    []PeriodID // Empty stands for every period
	Active     *bool
	Params     map[string]any
}

func (rule RawRule) IsActive() bool {
	return rule.Active == nil || *rule.Active
}

// Input is everything a run may read from the persistence layer for one department
type Input struct {
	Department     Department
	Periods        []Period
	TrainPrograms  []TrainProgram
	CourseTypes    []CourseType
	StartTimeRules []StartTimeRule
	Modules        []Module
	Courses        []Course
	Repartitions   []Repartition
	Tutors         []Tutor
	Groups         []Group
	RoomTypes      []RoomType
	Rooms          []Room
	FixedCourses   []FixedCourse
	Dependencies   []Dependency
	Pivots         []Pivot
	Holidays       []Holiday
	Rules          []RawRule
	Schedules      []ScheduledCourse // Previously committed versions
}

func InputFromJson(file string) (Input, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return Input{}, fmt.Errorf("cannot read input file: %w", err)
	}
	var inputJson map[string]any
	if err = json.Unmarshal(bytes, &inputJson); err != nil {
		return Input{}, err
	}
	return DecodeInput(inputJson)
}

// DecodeInput maps a generic document (decoded JSON, YAML...) onto an Input
func DecodeInput(document map[string]any) (Input, error) {
	var input Input
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(DateLayout),
		),
		Result: &input,
	})
	if err != nil {
		return Input{}, err
	}
	if err := decoder.Decode(document); err != nil {
		return Input{}, fmt.Errorf("cannot decode input: %w", err)
	}
	return input, nil
}

func (input Input) Period(id PeriodID) (Period, bool) {
	return lo.Find(input.Periods, func(period Period) bool { return period.Id == id })
}

// Returns the committed facts of one schedule version for a period
func (input Input) Schedule(period PeriodID, version int) []ScheduledCourse {
	return lo.Filter(input.Schedules, func(scheduled ScheduledCourse, _ int) bool {
		return scheduled.Period == period && scheduled.Version == version
	})
}
