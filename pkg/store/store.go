// Package store persists department inputs and schedule versions with gorm, on postgres or sqlite.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// Open connects to postgres when the DSN looks like a postgres one, to a sqlite file otherwise, and
// migrates the schema
func Open(dsn string) (*Store, error) {
	var dialector gorm.Dialector
	if isPostgres(dsn) {
		dialector = postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		})
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return New(db)
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=")
}

// New wraps an open connection and migrates the schema
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(tables()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

func (store *Store) DB() *gorm.DB {
	return store.db
}

func create[T any](tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Create(&records).Error
}

func upsert[T any](tx *gorm.DB, records []T) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&records).Error
}

//** Input

// Save replaces everything the store holds for the input's department. Tutors and rooms are shared by
// departments and only upserted. The input's schedules are written version by version.
func (store *Store) Save(ctx context.Context, input model.Input) error {
	department := input.Department.Abbrev
	err := store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsert(tx, []departmentRecord{{Abbrev: department, Name: input.Department.Name, Settings: encode(input.Department.TimeSettings)}}); err != nil {
			return err
		}

		scoped := []any{
			&periodRecord{}, &trainProgramRecord{}, &courseTypeRecord{}, &startTimeRuleRecord{}, &moduleRecord{},
			&courseRecord{}, &repartitionRecord{}, &groupRecord{}, &roomTypeRecord{}, &fixedCourseRecord{},
			&dependencyRecord{}, &pivotRecord{}, &holidayRecord{}, &ruleRecord{},
		}
		for _, table := range scoped {
			if err := tx.Where("department = ?", department).Delete(table).Error; err != nil {
				return err
			}
		}

		inserts := []func() error{
			func() error {
				return create(tx, lo.Map(input.Periods, func(period model.Period, _ int) periodRecord {
					return periodRecord{Id: period.Id, Department: department, Name: period.Name, Start: model.DateOf(period.Start), End: model.DateOf(period.End)}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.TrainPrograms, func(program model.TrainProgram, _ int) trainProgramRecord {
					return trainProgramRecord{Id: program.Id, Department: department, Abbrev: program.Abbrev}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.CourseTypes, func(courseType model.CourseType, _ int) courseTypeRecord {
					return courseTypeRecord{Id: courseType.Id, Department: department, Name: courseType.Name, Duration: courseType.Duration}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.StartTimeRules, func(rule model.StartTimeRule, _ int) startTimeRuleRecord {
					return startTimeRuleRecord{Department: department, Duration: rule.Duration, AllowedStartTimes: encode(rule.AllowedStartTimes)}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Modules, func(module model.Module, _ int) moduleRecord {
					return moduleRecord{Id: module.Id, Department: department, Abbrev: module.Abbrev, TrainProgram: module.TrainProgram, Tutors: encode(module.Tutors)}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Courses, func(course model.Course, _ int) courseRecord {
					return courseRecord{
						Id: course.Id, Department: department, Type: course.Type, Module: course.Module, Period: course.Period,
						Groups: encode(course.Groups), Tutor: course.Tutor, PossibleTutors: encode(course.PossibleTutors),
						SuppTutors: encode(course.SuppTutors), RoomType: course.RoomType, Room: course.Room,
					}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Repartitions, func(repartition model.Repartition, _ int) repartitionRecord {
					return repartitionRecord{Department: department, Module: repartition.Module, CourseType: repartition.CourseType,
						Period: repartition.Period, Tutor: repartition.Tutor, Count: repartition.Count}
				}))
			},
			func() error {
				return upsert(tx, lo.Map(input.Tutors, func(tutor model.Tutor, _ int) tutorRecord {
					return tutorRecord{
						Id: tutor.Id, Username: tutor.Username, Status: tutor.Status, Departments: encode(tutor.Departments),
						MaxMinutesPerDay: tutor.MaxMinutesPerDay, MinMinutesPerDay: tutor.MinMinutesPerDay, Availabilities: encode(tutor.Availabilities),
					}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Groups, func(group model.Group, _ int) groupRecord {
					return groupRecord{
						Id: group.Id, Department: department, Name: group.Name, TrainProgram: group.TrainProgram, Transversal: group.Transversal,
						Parents: encode(group.Parents), Conflicting: encode(group.Conflicting), Parallel: encode(group.Parallel),
					}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.RoomTypes, func(roomType model.RoomType, _ int) roomTypeRecord {
					return roomTypeRecord{Id: roomType.Id, Department: department, Name: roomType.Name, Members: encode(roomType.Members)}
				}))
			},
			func() error {
				return upsert(tx, lo.Map(input.Rooms, func(room model.Room, _ int) roomRecord {
					return roomRecord{Id: room.Id, Name: room.Name, Departments: encode(room.Departments), Subrooms: encode(room.Subrooms),
						Unavailabilities: encode(room.Unavailabilities)}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.FixedCourses, func(fixed model.FixedCourse, _ int) fixedCourseRecord {
					return fixedCourseRecord{
						Id: fixed.Id, Department: lo.CoalesceOrEmpty(fixed.Department, department), Period: fixed.Period, Type: fixed.Type,
						Weekday: fixed.Weekday, Start: fixed.Start, Duration: fixed.Duration, Tutor: fixed.Tutor, Room: fixed.Room, Groups: encode(fixed.Groups),
					}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Dependencies, func(dependency model.Dependency, _ int) dependencyRecord {
					return dependencyRecord{Id: dependency.Id, Department: department, Course1: dependency.Course1, Course2: dependency.Course2,
						Successive: dependency.Successive, NotSameDay: dependency.NotSameDay, DayGap: dependency.DayGap}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Pivots, func(pivot model.Pivot, _ int) pivotRecord {
					return pivotRecord{Id: pivot.Id, Department: department, Pivot: pivot.Pivot, Others: encode(pivot.Others),
						After: pivot.After, NotSameDay: pivot.NotSameDay}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Holidays, func(holiday model.Holiday, _ int) holidayRecord {
					return holidayRecord{Date: model.DateOf(holiday.Date), Department: lo.CoalesceOrEmpty(holiday.Department, department)}
				}))
			},
			func() error {
				return create(tx, lo.Map(input.Rules, func(rule model.RawRule, _ int) ruleRecord {
					return ruleRecord{Id: lo.CoalesceOrEmpty(rule.Id, uuid.NewString()), Department: department, Kind: rule.Kind, Weight: rule.Weight, Comment: rule.Comment,
						Periods: encode(rule.Periods), Active: rule.Active, Params: encode(rule.Params)}
				}))
			},
		}
		for _, insert := range inserts {
			if err := insert(); err != nil {
				return err
			}
		}

		versions := lo.GroupBy(input.Schedules, func(scheduled model.ScheduledCourse) int { return scheduled.Version })
		for version, facts := range versions {
			if err := replace(tx, version, lo.GroupBy(facts, func(scheduled model.ScheduledCourse) model.PeriodID { return scheduled.Period })); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot save department %v: %w", department, err)
	}
	glog.Infof("saved department %v: %d courses, %d rules", department, len(input.Courses), len(input.Rules))
	return nil
}

func (store *Store) LoadInput(ctx context.Context, department string) (model.Input, error) {
	db := store.db.WithContext(ctx)
	var departmentRow departmentRecord
	if err := db.First(&departmentRow, "abbrev = ?", department).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Input{}, fmt.Errorf("unknown department %q", department)
	} else if err != nil {
		return model.Input{}, err
	}

	var (
		periods       []periodRecord
		trainPrograms []trainProgramRecord
		courseTypes   []courseTypeRecord
		startTimes    []startTimeRuleRecord
		modules       []moduleRecord
		courses       []courseRecord
		repartitions  []repartitionRecord
		tutors        []tutorRecord
		groups        []groupRecord
		roomTypes     []roomTypeRecord
		rooms         []roomRecord
		fixed         []fixedCourseRecord
		dependencies  []dependencyRecord
		pivots        []pivotRecord
		holidays      []holidayRecord
		rules         []ruleRecord
	)
	scoped := db.Where("department = ?", department).Session(&gorm.Session{})
	queries := []*gorm.DB{
		scoped.Order("id").Find(&periods),
		scoped.Order("id").Find(&trainPrograms),
		scoped.Order("id").Find(&courseTypes),
		scoped.Order("id").Find(&startTimes),
		scoped.Order("id").Find(&modules),
		scoped.Order("id").Find(&courses),
		scoped.Order("id").Find(&repartitions),
		db.Order("id").Find(&tutors),
		scoped.Order("id").Find(&groups),
		scoped.Order("id").Find(&roomTypes),
		db.Order("id").Find(&rooms),
		scoped.Order("id").Find(&dependencies),
		scoped.Order("id").Find(&pivots),
		db.Where("department = ? OR department = ''", department).Order("date").Find(&holidays),
		scoped.Order("id").Find(&rules),
	}
	for _, query := range queries {
		if query.Error != nil {
			return model.Input{}, fmt.Errorf("cannot load department %v: %w", department, query.Error)
		}
	}
	// Bookings of every department weigh on the department's periods
	periodIds := lo.Map(periods, func(period periodRecord, _ int) model.PeriodID { return period.Id })
	if len(periodIds) > 0 {
		if err := db.Where("period IN ?", periodIds).Order("id").Find(&fixed).Error; err != nil {
			return model.Input{}, fmt.Errorf("cannot load department %v: %w", department, err)
		}
	}

	c := &columns{}
	input := model.Input{
		Department: model.Department{Abbrev: departmentRow.Abbrev, Name: departmentRow.Name,
			TimeSettings: column[model.TimeSettings](c, "departments", departmentRow.Settings)},
		Periods: lo.Map(periods, func(record periodRecord, _ int) model.Period {
			return model.Period{Id: record.Id, Name: record.Name, Department: record.Department, Start: model.DateOf(record.Start), End: model.DateOf(record.End)}
		}),
		TrainPrograms: lo.Map(trainPrograms, func(record trainProgramRecord, _ int) model.TrainProgram {
			return model.TrainProgram{Id: record.Id, Abbrev: record.Abbrev, Department: record.Department}
		}),
		CourseTypes: lo.Map(courseTypes, func(record courseTypeRecord, _ int) model.CourseType {
			return model.CourseType{Id: record.Id, Name: record.Name, Department: record.Department, Duration: record.Duration}
		}),
		StartTimeRules: lo.Map(startTimes, func(record startTimeRuleRecord, _ int) model.StartTimeRule {
			return model.StartTimeRule{Department: record.Department, Duration: record.Duration,
				AllowedStartTimes: column[[]int](c, "start time rules", record.AllowedStartTimes)}
		}),
		Modules: lo.Map(modules, func(record moduleRecord, _ int) model.Module {
			return model.Module{Id: record.Id, Abbrev: record.Abbrev, TrainProgram: record.TrainProgram,
				Tutors: column[[]model.TutorID](c, "modules", record.Tutors)}
		}),
		Courses: lo.Map(courses, func(record courseRecord, _ int) model.Course {
			return model.Course{
				Id: record.Id, Type: record.Type, Module: record.Module, Period: record.Period,
				Groups: column[[]model.GroupID](c, "courses", record.Groups), Tutor: record.Tutor,
				PossibleTutors: column[[]model.TutorID](c, "courses", record.PossibleTutors),
				SuppTutors:     column[[]model.TutorID](c, "courses", record.SuppTutors),
				RoomType:       record.RoomType, Room: record.Room,
			}
		}),
		Repartitions: lo.Map(repartitions, func(record repartitionRecord, _ int) model.Repartition {
			return model.Repartition{Module: record.Module, CourseType: record.CourseType, Period: record.Period, Tutor: record.Tutor, Count: record.Count}
		}),
		Groups: lo.Map(groups, func(record groupRecord, _ int) model.Group {
			return model.Group{
				Id: record.Id, Name: record.Name, TrainProgram: record.TrainProgram, Transversal: record.Transversal,
				Parents:     column[[]model.GroupID](c, "groups", record.Parents),
				Conflicting: column[[]model.GroupID](c, "groups", record.Conflicting),
				Parallel:    column[[]model.GroupID](c, "groups", record.Parallel),
			}
		}),
		RoomTypes: lo.Map(roomTypes, func(record roomTypeRecord, _ int) model.RoomType {
			return model.RoomType{Id: record.Id, Name: record.Name, Department: record.Department,
				Members: column[[]model.RoomID](c, "room types", record.Members)}
		}),
		Rooms: lo.Map(rooms, func(record roomRecord, _ int) model.Room {
			return model.Room{
				Id: record.Id, Name: record.Name,
				Departments:      column[[]string](c, "rooms", record.Departments),
				Subrooms:         column[[]model.RoomID](c, "rooms", record.Subrooms),
				Unavailabilities: column[[]model.Availability](c, "rooms", record.Unavailabilities),
			}
		}),
		FixedCourses: lo.Map(fixed, func(record fixedCourseRecord, _ int) model.FixedCourse {
			return model.FixedCourse{
				Id: record.Id, Department: record.Department, Period: record.Period, Type: record.Type, Weekday: record.Weekday,
				Start: record.Start, Duration: record.Duration, Tutor: record.Tutor, Room: record.Room,
				Groups: column[[]model.GroupID](c, "fixed courses", record.Groups),
			}
		}),
		Dependencies: lo.Map(dependencies, func(record dependencyRecord, _ int) model.Dependency {
			return model.Dependency{Id: record.Id, Course1: record.Course1, Course2: record.Course2,
				Successive: record.Successive, NotSameDay: record.NotSameDay, DayGap: record.DayGap}
		}),
		Pivots: lo.Map(pivots, func(record pivotRecord, _ int) model.Pivot {
			return model.Pivot{Id: record.Id, Pivot: record.Pivot, Others: column[[]model.CourseID](c, "pivots", record.Others),
				After: record.After, NotSameDay: record.NotSameDay}
		}),
		Holidays: lo.Map(holidays, func(record holidayRecord, _ int) model.Holiday {
			return model.Holiday{Date: model.DateOf(record.Date), Department: record.Department}
		}),
		Rules: lo.Map(rules, func(record ruleRecord, _ int) model.RawRule { return record.raw(c) }),
	}
	input.Tutors = departmentTutors(c, department, tutors, input)
	if c.err != nil {
		return model.Input{}, fmt.Errorf("cannot load department %v: %w", department, c.err)
	}
	return input, nil
}

// departmentTutors keeps the tutors working for the department or referenced by its courses
func departmentTutors(c *columns, department string, records []tutorRecord, input model.Input) []model.Tutor {
	referenced := lo.FlatMap(input.Courses, func(course model.Course, _ int) []model.TutorID {
		tutors := append(slices.Clone(course.PossibleTutors), course.SuppTutors...)
		if course.Tutor != nil {
			tutors = append(tutors, *course.Tutor)
		}
		return tutors
	})
	referenced = append(referenced, lo.FlatMap(input.Modules, func(module model.Module, _ int) []model.TutorID { return module.Tutors })...)
	referenced = append(referenced, lo.Map(input.Repartitions, func(repartition model.Repartition, _ int) model.TutorID { return repartition.Tutor })...)

	tutors := lo.Map(records, func(record tutorRecord, _ int) model.Tutor {
		return model.Tutor{
			Id: record.Id, Username: record.Username, Status: record.Status,
			Departments:      column[[]string](c, "tutors", record.Departments),
			MaxMinutesPerDay: record.MaxMinutesPerDay, MinMinutesPerDay: record.MinMinutesPerDay,
			Availabilities:   column[[]model.Availability](c, "tutors", record.Availabilities),
		}
	})
	return lo.Filter(tutors, func(tutor model.Tutor, _ int) bool {
		return slices.Contains(tutor.Departments, department) || slices.Contains(referenced, tutor.Id)
	})
}

//** Schedules

func (store *Store) NextVersion(ctx context.Context, periods []model.PeriodID) (int, error) {
	var result struct{ Max *int }
	err := store.db.WithContext(ctx).Model(&scheduledCourseRecord{}).
		Where("period IN ?", periods).
		Select("MAX(version) AS max").
		Scan(&result).Error
	if err != nil {
		return 0, err
	}
	if result.Max == nil {
		return 0, nil
	}
	return *result.Max + 1, nil
}

func (store *Store) LoadSchedule(ctx context.Context, period model.PeriodID, version int) ([]model.ScheduledCourse, error) {
	var records []scheduledCourseRecord
	err := store.db.WithContext(ctx).
		Where("period = ? AND version = ?", period, version).
		Order("course").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(records, func(record scheduledCourseRecord, _ int) model.ScheduledCourse { return record.scheduled() }), nil
}

// ReplaceSchedule runs in a single transaction: a failure leaves every period's version untouched
func (store *Store) ReplaceSchedule(ctx context.Context, version int, schedules map[model.PeriodID][]model.ScheduledCourse) error {
	return store.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replace(tx, version, schedules)
	})
}

func replace(tx *gorm.DB, version int, schedules map[model.PeriodID][]model.ScheduledCourse) error {
	periods := lo.Keys(schedules)
	slices.Sort(periods)
	for _, period := range periods {
		if err := tx.Where("period = ? AND version = ?", period, version).Delete(&scheduledCourseRecord{}).Error; err != nil {
			return err
		}
		records := lo.Map(schedules[period], func(scheduled model.ScheduledCourse, _ int) scheduledCourseRecord {
			scheduled.Period, scheduled.Version = period, version
			return scheduledRecord(scheduled)
		})
		if err := create(tx, records); err != nil {
			return err
		}
	}
	return nil
}
