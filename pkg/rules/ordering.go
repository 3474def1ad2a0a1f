package rules

import (
	"errors"
	"fmt"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

//** SimultaneousCourses

// SimultaneousCourses starts the listed courses at the same time. Courses sharing a tutor or a group
// cannot be simultaneous and make the rule ignored.
type SimultaneousCourses struct {
	Base `mapstructure:",squash"`
}

func (*SimultaneousCourses) Kind() string {
	return KindSimultaneousCourses
}

func (rule *SimultaneousCourses) validate() error {
	if len(lo.Uniq(rule.Courses)) < 2 {
		return errors.New("at least two distinct Courses are required")
	}
	return nil
}

func (rule *SimultaneousCourses) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *SimultaneousCourses) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *SimultaneousCourses) compatible(snap *snapshot.Snapshot, courses []*model.Course) error {
	if len(courses) != len(lo.Uniq(rule.Courses)) {
		return fmt.Errorf("courses %v are not all part of period %v", rule.Courses, courses[0].Period)
	}
	for i, a := range courses {
		for _, b := range courses[i+1:] {
			if a.Tutor != nil && b.Tutor != nil && *a.Tutor == *b.Tutor {
				return fmt.Errorf("courses %v and %v share tutor %v", a.Id, b.Id, *a.Tutor)
			}
			if lo.Some(snap.BasicGroupsOfCourse(a), snap.BasicGroupsOfCourse(b)) {
				return fmt.Errorf("courses %v and %v share a group", a.Id, b.Id)
			}
		}
	}
	return nil
}

func (rule *SimultaneousCourses) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	if err := rule.compatible(snap, scope.Courses); err != nil {
		warn(c.env, rule, "rule ignored: %v", err)
		return
	}

	startsAt := func(course *model.Course, instant snapshot.Instant) milp.LinExpr {
		return c.env.GroupExpr([]*model.Course{course}, func(slot *model.CourseSlot) bool {
			return slot.Date.Equal(instant.Date) && slot.Start == instant.Minute
		})
	}
	first := scope.Courses[0]
	for _, other := range scope.Courses[1:] {
		for _, instant := range snap.Instants(scope.Period) {
			difference := startsAt(first, instant).Minus(startsAt(other, instant))
			if difference.IsConstant() {
				continue
			}
			rowTag := c.tag("courses %v and %v at %v", first.Id, other.Id, instant)
			if c.hard() {
				c.env.Model.AddConstraint(difference, milp.Equal, 0, rowTag)
				continue
			}
			apart := milp.Expr(c.env.Model.NewBool(rowTag.Detail))
			c.env.Model.AddConstraint(difference.Minus(apart), milp.LessEqual, 0, rowTag)
			c.env.Model.AddConstraint(difference.Plus(apart), milp.GreaterEqual, 0, rowTag)
			c.cost(genericOwner, apart)
		}
	}
}

//** Precedence

// precedence keeps the second course out of the slots conflicting with the first one's slot
func precedence(c contribution, first, second *model.Course, conflicts func(a, b *model.CourseSlot) bool, format string, args ...any) {
	snap := c.env.Snapshot
	for _, a := range snap.CompatibleSlots(first) {
		firstAt := c.env.SchedExpr(a, first)
		conflicting := milp.LinExpr{}
		for _, b := range snap.CompatibleSlots(second) {
			if conflicts(a, b) {
				conflicting.AddExpr(c.env.SchedExpr(b, second), 1)
			}
		}
		if conflicting.IsConstant() || firstAt.IsConstant() {
			continue
		}
		detail := fmt.Sprintf(format, args...)
		rowTag := c.tag("%v at %v", detail, a)
		both := firstAt.Plus(conflicting)
		if c.hard() {
			c.env.Model.AddConstraint(both, milp.LessEqual, 1, rowTag)
			continue
		}
		c.cost(genericOwner, exceeds(c.env, both, 2, rowTag.Detail, rowTag))
	}
}

// sequence returns a conflict function for a course that must end before the other starts
func sequence(notSameDay bool) func(a, b *model.CourseSlot) bool {
	return func(a, b *model.CourseSlot) bool {
		return !a.Before(b.Slot) || (notSameDay && a.SameDate(b.Slot))
	}
}

//** Dependency

// Dependency enforces the declared precedences between courses whose first course is in scope
type Dependency struct {
	Base `mapstructure:",squash"`
}

func (*Dependency) Kind() string {
	return KindDependency
}

func (rule *Dependency) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *Dependency) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *Dependency) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	inScope := lo.SliceToMap(scope.Courses, func(course *model.Course) (model.CourseID, bool) { return course.Id, true })
	for _, dependency := range snap.Input.Dependencies {
		if !inScope[dependency.Course1] {
			continue
		}
		if dependency.Course1 == dependency.Course2 {
			warn(c.env, rule, "dependency %v links course %v to itself", dependency.Id, dependency.Course1)
			continue
		}
		first, _ := snap.Course(dependency.Course1)
		second, ok := snap.Course(dependency.Course2)
		if !ok {
			glog.V(1).Infof("dependency %v: course %v is not part of the run", dependency.Id, dependency.Course2)
			continue
		}
		precedence(c, first, second, dependencyConflicts(dependency), "dependency %v", dependency.Id)
	}
}

func dependencyConflicts(dependency model.Dependency) func(a, b *model.CourseSlot) bool {
	ordered := sequence(dependency.NotSameDay)
	return func(a, b *model.CourseSlot) bool {
		switch {
		case ordered(a, b):
			return true
		case dependency.DayGap > 0 && model.DaysBetween(a.Date, b.Date) < dependency.DayGap:
			return true
		case dependency.Successive && !(a.SameDate(b.Slot) && a.End() == b.Start):
			return true
		}
		return false
	}
}

//** Pivot

// Pivot schedules a set of courses all after (or all before) a pivot course in scope
type Pivot struct {
	Base `mapstructure:",squash"`
}

func (*Pivot) Kind() string {
	return KindPivot
}

func (rule *Pivot) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *Pivot) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *Pivot) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	inScope := lo.SliceToMap(scope.Courses, func(course *model.Course) (model.CourseID, bool) { return course.Id, true })
	for _, pivot := range snap.Input.Pivots {
		if !inScope[pivot.Pivot] {
			continue
		}
		center, _ := snap.Course(pivot.Pivot)
		for _, id := range pivot.Others {
			other, ok := snap.Course(id)
			if !ok || id == pivot.Pivot {
				continue
			}
			if pivot.After {
				precedence(c, center, other, sequence(pivot.NotSameDay), "pivot %v before %v", pivot.Id, id)
			} else {
				precedence(c, other, center, sequence(pivot.NotSameDay), "pivot %v after %v", pivot.Id, id)
			}
		}
	}
}
