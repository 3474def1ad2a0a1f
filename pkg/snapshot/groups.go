package snapshot

import (
	"fmt"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

type groups struct {
	groupById    map[model.GroupID]model.Group
	basicGroups  []model.GroupID
	ancestors    map[model.GroupID][]model.GroupID // Structural groups, each including itself
	basicOf      map[model.GroupID][]model.GroupID // Basic groups a group concerns
	transversals map[model.GroupID][]model.GroupID // Transversal groups touching a basic group
}

func (snapshot *Snapshot) buildGroups() error {
	snapshot.groupById = lo.KeyBy(snapshot.Input.Groups, func(group model.Group) model.GroupID { return group.Id })
	snapshot.ancestors = make(map[model.GroupID][]model.GroupID)
	snapshot.basicOf = make(map[model.GroupID][]model.GroupID)
	snapshot.transversals = make(map[model.GroupID][]model.GroupID)

	isParent := map[model.GroupID]bool{}
	for _, group := range snapshot.Input.Groups {
		if group.Transversal {
			continue
		}
		for _, parent := range group.Parents {
			if _, ok := snapshot.groupById[parent]; !ok {
				return model.NewConfigurationError(fmt.Sprintf("group %v", group.Name), "unknown parent %v", parent)
			}
			isParent[parent] = true
		}
	}

	for _, group := range snapshot.Input.Groups {
		if group.Transversal {
			continue
		}
		ancestors, err := snapshot.collectAncestors(group.Id, map[model.GroupID]bool{})
		if err != nil {
			return err
		}
		snapshot.ancestors[group.Id] = ancestors
		if !isParent[group.Id] {
			snapshot.basicGroups = append(snapshot.basicGroups, group.Id)
		}
	}
	slices.Sort(snapshot.basicGroups)

	for _, basic := range snapshot.basicGroups {
		for _, ancestor := range snapshot.ancestors[basic] {
			snapshot.basicOf[ancestor] = append(snapshot.basicOf[ancestor], basic)
		}
	}

	for _, group := range snapshot.Input.Groups {
		if !group.Transversal {
			continue
		}
		basics := lo.Uniq(lo.FlatMap(group.Conflicting, func(id model.GroupID, _ int) []model.GroupID { return snapshot.basicOf[id] }))
		slices.Sort(basics)
		snapshot.basicOf[group.Id] = basics
		for _, basic := range basics {
			snapshot.transversals[basic] = append(snapshot.transversals[basic], group.Id)
		}
	}
	for basic := range snapshot.transversals {
		slices.Sort(snapshot.transversals[basic])
	}
	return nil
}

func (snapshot *Snapshot) collectAncestors(id model.GroupID, visiting map[model.GroupID]bool) ([]model.GroupID, error) {
	if visiting[id] {
		return nil, model.NewConfigurationError(fmt.Sprintf("group %v", snapshot.groupById[id].Name), "cyclic group hierarchy")
	}
	visiting[id] = true
	defer delete(visiting, id)

	result := []model.GroupID{id}
	for _, parent := range snapshot.groupById[id].Parents {
		ancestors, err := snapshot.collectAncestors(parent, visiting)
		if err != nil {
			return nil, err
		}
		result = append(result, ancestors...)
	}
	result = lo.Uniq(result)
	slices.Sort(result)
	return result, nil
}

func (snapshot *Snapshot) Group(id model.GroupID) (model.Group, bool) {
	group, ok := snapshot.groupById[id]
	return group, ok
}

// BasicGroups returns the leaf structural groups, sorted
func (snapshot *Snapshot) BasicGroups() []model.GroupID {
	return snapshot.basicGroups
}

// BasicGroupsOf returns the basic groups a group concerns: its structural descendants, or for a
// transversal group those of the structural groups it conflicts with
func (snapshot *Snapshot) BasicGroupsOf(id model.GroupID) []model.GroupID {
	return snapshot.basicOf[id]
}

// Ancestors returns a structural group together with its structural ancestors
func (snapshot *Snapshot) Ancestors(id model.GroupID) []model.GroupID {
	return snapshot.ancestors[id]
}

// TransversalGroupsOf returns the transversal groups conflicting with a basic group
func (snapshot *Snapshot) TransversalGroupsOf(basic model.GroupID) []model.GroupID {
	return snapshot.transversals[basic]
}

func (snapshot *Snapshot) IsTransversal(id model.GroupID) bool {
	return snapshot.groupById[id].Transversal
}

// Parallel checks whether two transversal groups may have courses at the same time
func (snapshot *Snapshot) Parallel(a, b model.GroupID) bool {
	return slices.Contains(snapshot.groupById[a].Parallel, b) || slices.Contains(snapshot.groupById[b].Parallel, a)
}

// BasicGroupsOfCourse returns every basic group that attends a course
func (snapshot *Snapshot) BasicGroupsOfCourse(course *model.Course) []model.GroupID {
	basics := lo.Uniq(lo.FlatMap(course.Groups, func(id model.GroupID, _ int) []model.GroupID { return snapshot.basicOf[id] }))
	slices.Sort(basics)
	return basics
}

// StructuralCoursesOf returns the courses of a period given to a basic group or to one of its ancestors
func (snapshot *Snapshot) StructuralCoursesOf(period model.PeriodID, basic model.GroupID) []*model.Course {
	ancestors := snapshot.ancestors[basic]
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		return lo.SomeBy(course.Groups, func(id model.GroupID) bool {
			return !snapshot.IsTransversal(id) && slices.Contains(ancestors, id)
		})
	})
}

// GroupCourses returns the courses of a period given to exactly this group
func (snapshot *Snapshot) GroupCourses(period model.PeriodID, id model.GroupID) []*model.Course {
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		return slices.Contains(course.Groups, id)
	})
}

// CoursesOfBasicGroup returns every course of a period a basic group attends, transversal ones included
func (snapshot *Snapshot) CoursesOfBasicGroup(period model.PeriodID, basic model.GroupID) []*model.Course {
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		return slices.Contains(snapshot.BasicGroupsOfCourse(course), basic)
	})
}
