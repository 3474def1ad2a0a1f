package snapshot

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

func (snapshot *Snapshot) buildTutors() error {
	snapshot.tutors = make(map[model.TutorID]*model.Tutor)
	for i := range snapshot.Input.Tutors {
		snapshot.tutors[snapshot.Input.Tutors[i].Id] = &snapshot.Input.Tutors[i]
	}

	snapshot.possibleTutors = make(map[model.CourseID][]model.TutorID)
	for _, course := range snapshot.courses {
		possible := snapshot.resolveTutors(course)
		for _, tutor := range append(slices.Clone(possible), course.SuppTutors...) {
			if _, ok := snapshot.tutors[tutor]; !ok {
				return model.NewConfigurationError(fmt.Sprintf("course %v", course.Id), "unknown tutor %v", tutor)
			}
		}
		snapshot.possibleTutors[course.Id] = possible
	}
	return nil
}

// Possible tutors by priority: explicit tutor, per-course list, period repartition, module tutors
func (snapshot *Snapshot) resolveTutors(course *model.Course) []model.TutorID {
	sorted := func(tutors []model.TutorID) []model.TutorID {
		tutors = lo.Uniq(tutors)
		slices.Sort(tutors)
		return tutors
	}

	if course.Tutor != nil {
		return []model.TutorID{*course.Tutor}
	}
	if len(course.PossibleTutors) > 0 {
		return sorted(course.PossibleTutors)
	}
	repartition := lo.FilterMap(snapshot.Input.Repartitions, func(repartition model.Repartition, _ int) (model.TutorID, bool) {
		return repartition.Tutor, repartition.Module == course.Module && repartition.CourseType == course.Type &&
			repartition.Period == course.Period && repartition.Count > 0
	})
	if len(repartition) > 0 {
		return sorted(repartition)
	}
	return sorted(slices.Clone(snapshot.modules[course.Module].Tutors))
}

// PossibleTutors returns the tutors that may give a course, empty when it needs none
func (snapshot *Snapshot) PossibleTutors(course *model.Course) []model.TutorID {
	return snapshot.possibleTutors[course.Id]
}

func (snapshot *Snapshot) Tutor(id model.TutorID) (*model.Tutor, bool) {
	tutor, ok := snapshot.tutors[id]
	return tutor, ok
}

// Tutors returns the tutors involved in some in-scope course, sorted
func (snapshot *Snapshot) Tutors() []model.TutorID {
	tutors := lo.Uniq(lo.FlatMap(snapshot.courses, func(course *model.Course, _ int) []model.TutorID {
		return append(slices.Clone(snapshot.possibleTutors[course.Id]), course.SuppTutors...)
	}))
	slices.Sort(tutors)
	return tutors
}

// CoursesOfTutor returns the courses of a period a tutor may give
func (snapshot *Snapshot) CoursesOfTutor(period model.PeriodID, tutor model.TutorID) []*model.Course {
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		return slices.Contains(snapshot.possibleTutors[course.Id], tutor)
	})
}

// SuppCoursesOfTutor returns the courses of a period a tutor attends as a supplementary tutor
func (snapshot *Snapshot) SuppCoursesOfTutor(period model.PeriodID, tutor model.TutorID) []*model.Course {
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		return slices.Contains(course.SuppTutors, tutor)
	})
}

// RequiredCoursesOfTutor returns the courses of a period only this tutor can give
func (snapshot *Snapshot) RequiredCoursesOfTutor(period model.PeriodID, tutor model.TutorID) []*model.Course {
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		possible := snapshot.possibleTutors[course.Id]
		return (len(possible) == 1 && possible[0] == tutor) || slices.Contains(course.SuppTutors, tutor)
	})
}

// Availability returns a tutor's availability value over a slot: the minimum value declared over it,
// the default value counting for any undeclared part
func (snapshot *Snapshot) Availability(tutor model.TutorID, slot model.Slot) int {
	declared, ok := snapshot.tutors[tutor]
	if !ok {
		return model.DefaultAvailability
	}
	return availabilityValue(declared.Availabilities, slot)
}

func availabilityValue(availabilities []model.Availability, slot model.Slot) int {
	overlapping := lo.Filter(availabilities, func(availability model.Availability, _ int) bool {
		return availability.Slot().Overlaps(slot)
	})
	if len(overlapping) == 0 {
		return model.DefaultAvailability
	}

	value := lo.MinBy(overlapping, func(a, b model.Availability) bool { return a.Value < b.Value }).Value
	slices.SortFunc(overlapping, func(a, b model.Availability) int { return cmp.Compare(a.Start, b.Start) })
	covered := slot.Start
	for _, availability := range overlapping {
		if availability.Start > covered {
			break
		}
		covered = max(covered, availability.Slot().End())
	}
	if covered < slot.End() {
		value = min(value, model.DefaultAvailability)
	}
	return value
}

// Undesired checks whether an availability value is only reluctantly accepted
func Undesired(value int) bool {
	return value > 0 && value <= model.UndesiredThreshold
}
