package rules

import (
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
)

// ScheduleAllCourses schedules every course exactly once
type ScheduleAllCourses struct {
	Base `mapstructure:",squash"`
}

func (*ScheduleAllCourses) Kind() string {
	return KindScheduleAllCourses
}

func (rule *ScheduleAllCourses) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *ScheduleAllCourses) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *ScheduleAllCourses) contribute(c contribution, scope Scope) {
	for _, course := range scope.Courses {
		c.equal(c.env.CourseSchedExpr(course), 1, genericOwner, "course %v", course.Id)
	}
}

// AssignAllCourses gives a tutor to every scheduled course that has possible tutors
type AssignAllCourses struct {
	Base `mapstructure:",squash"`
}

func (*AssignAllCourses) Kind() string {
	return KindAssignAllCourses
}

func (rule *AssignAllCourses) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *AssignAllCourses) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *AssignAllCourses) contribute(c contribution, scope Scope) {
	for _, course := range scope.Courses {
		if len(c.env.Snapshot.PossibleTutors(course)) == 0 {
			continue
		}
		for _, slot := range c.env.Snapshot.CompatibleSlots(course) {
			assigned := c.env.CourseAssignedExpr(slot, course).Minus(c.env.SchedExpr(slot, course))
			c.equal(assigned, 0, genericOwner, "course %v at %v", course.Id, slot)
		}
	}
}

// LocateAllCourses gives a room to every scheduled course needing one
type LocateAllCourses struct {
	Base `mapstructure:",squash"`
}

func (*LocateAllCourses) Kind() string {
	return KindLocateAllCourses
}

func (*LocateAllCourses) Target() Target {
	return RoomTarget
}

func (rule *LocateAllCourses) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *LocateAllCourses) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *LocateAllCourses) contribute(c contribution, scope Scope) {
	for _, course := range scope.Courses {
		if !c.env.Snapshot.NeedsRoom(course) {
			continue
		}
		for _, slot := range c.env.Snapshot.CompatibleSlots(course) {
			located := milp.LinExpr{}
			for _, room := range c.env.Snapshot.PossibleRooms(course) {
				located.AddExpr(c.env.LocatedExpr(slot, course, room), 1)
			}
			c.equal(located.Minus(c.env.SchedExpr(slot, course)), 0, genericOwner, "course %v at %v", course.Id, slot)
		}
	}
}
