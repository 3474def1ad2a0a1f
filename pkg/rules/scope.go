package rules

import (
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/samber/lo"
)

// Predicate is a composable condition evaluated against the snapshot
type Predicate[T any] func(T) bool

func Always[T any]() Predicate[T] {
	return func(T) bool { return true }
}

// All holds when every predicate holds
func All[T any](predicates ...Predicate[T]) Predicate[T] {
	return func(value T) bool {
		for _, predicate := range predicates {
			if !predicate(value) {
				return false
			}
		}
		return true
	}
}

// Any holds when some predicate holds
func Any[T any](predicates ...Predicate[T]) Predicate[T] {
	return func(value T) bool {
		for _, predicate := range predicates {
			if predicate(value) {
				return true
			}
		}
		return false
	}
}

func Not[T any](predicate Predicate[T]) Predicate[T] {
	return func(value T) bool { return !predicate(value) }
}

// Filter narrows what a rule touches, an empty list does not filter
type Filter struct {
	Tutors        []model.TutorID
	Groups        []model.GroupID
	Modules       []model.ModuleID
	TrainPrograms []model.TrainProgramID
	CourseTypes   []model.CourseTypeID
	Rooms         []model.RoomID
	Courses       []model.CourseID
}

// Scope is what a rule applies to on one period
type Scope struct {
	Period  model.PeriodID
	Courses []*model.Course
	Tutors  []model.TutorID
	Groups  []model.GroupID // Basic groups
	Rooms   []model.RoomID
}

func (scope Scope) IsEmpty() bool {
	return len(scope.Courses) == 0
}

// in holds when the list is empty or contains the value
func in[T comparable](values []T, value T) bool {
	return len(values) == 0 || slices.Contains(values, value)
}

func intersects[T comparable](values []T, others []T) bool {
	return len(values) == 0 || lo.Some(values, others)
}

// BasicGroups returns the basic groups the filter's groups concern, nil when groups are not filtered
func (filter Filter) BasicGroups(snap *snapshot.Snapshot) []model.GroupID {
	if len(filter.Groups) == 0 {
		return nil
	}
	return lo.Uniq(lo.FlatMap(filter.Groups, func(id model.GroupID, _ int) []model.GroupID { return snap.BasicGroupsOf(id) }))
}

// CoursePredicate holds for the courses the filter keeps
func (filter Filter) CoursePredicate(snap *snapshot.Snapshot) Predicate[*model.Course] {
	basics := filter.BasicGroups(snap)
	predicates := []Predicate[*model.Course]{
		func(course *model.Course) bool { return in(filter.Courses, course.Id) },
		func(course *model.Course) bool { return in(filter.Modules, course.Module) },
		func(course *model.Course) bool { return in(filter.CourseTypes, course.Type) },
		func(course *model.Course) bool { return in(filter.TrainPrograms, snap.TrainProgramOf(course)) },
		func(course *model.Course) bool {
			return intersects(filter.Tutors, append(slices.Clone(snap.PossibleTutors(course)), course.SuppTutors...))
		},
		func(course *model.Course) bool {
			return len(filter.Groups) == 0 || lo.Some(basics, snap.BasicGroupsOfCourse(course)) ||
				lo.Some(filter.Groups, course.Groups)
		},
		func(course *model.Course) bool { return intersects(filter.Rooms, snap.PossibleRooms(course)) },
	}
	return All(predicates...)
}

// Scope applies the filter to a period's courses, then narrows their tutors, basic groups and rooms
func (filter Filter) Scope(snap *snapshot.Snapshot, period model.PeriodID) Scope {
	predicate := filter.CoursePredicate(snap)
	courses := lo.Filter(snap.CoursesOf(period), func(course *model.Course, _ int) bool { return predicate(course) })

	tutors := lo.Uniq(lo.FlatMap(courses, func(course *model.Course, _ int) []model.TutorID {
		return append(slices.Clone(snap.PossibleTutors(course)), course.SuppTutors...)
	}))
	tutors = lo.Filter(tutors, func(tutor model.TutorID, _ int) bool { return in(filter.Tutors, tutor) })

	basics := filter.BasicGroups(snap)
	groups := lo.Uniq(lo.FlatMap(courses, func(course *model.Course, _ int) []model.GroupID { return snap.BasicGroupsOfCourse(course) }))
	groups = lo.Filter(groups, func(group model.GroupID, _ int) bool { return in(basics, group) })

	rooms := lo.Uniq(lo.FlatMap(courses, func(course *model.Course, _ int) []model.RoomID { return snap.PossibleRooms(course) }))
	rooms = lo.Filter(rooms, func(room model.RoomID, _ int) bool { return in(filter.Rooms, room) })

	slices.Sort(tutors)
	slices.Sort(groups)
	slices.Sort(rooms)
	return Scope{Period: period, Courses: courses, Tutors: tutors, Groups: groups, Rooms: rooms}
}
