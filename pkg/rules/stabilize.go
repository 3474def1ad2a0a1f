package rules

import (
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
)

// Stabilize keeps the courses in scope where a previous schedule version placed them: same slot,
// same tutor and same room
type Stabilize struct {
	Base    `mapstructure:",squash"`
	Version int
}

func (*Stabilize) Kind() string {
	return KindStabilize
}

func (*Stabilize) Target() Target {
	return ModelTarget | RoomTarget
}

func (rule *Stabilize) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *Stabilize) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

// Stability costs are shared by every period of the run
func anyPeriodOwner(m *milp.Model, term milp.LinExpr, _ int64) {
	m.AddToGenericCost(term, milp.AllPeriods)
}

func (rule *Stabilize) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	inScope := lo.SliceToMap(scope.Courses, func(course *model.Course) (model.CourseID, *model.Course) { return course.Id, course })

	keep := func(expr milp.LinExpr, format string, args ...any) {
		if !expr.IsConstant() {
			c.equal(expr, 1, anyPeriodOwner, format, args...)
		}
	}
	for _, fact := range snap.Input.Schedule(scope.Period, rule.Version) {
		course, ok := inScope[fact.Course]
		if !ok {
			continue
		}
		slot, ok := lo.Find(snap.CompatibleSlots(course), func(slot *model.CourseSlot) bool {
			return slot.Date.Equal(model.DateOf(fact.Date)) && slot.Start == fact.Start
		})
		if !ok {
			warn(c.env, rule, "course %v of version %v was placed at %v, which is no longer a valid slot", course.Id, rule.Version, fact.Slot())
			continue
		}

		keep(c.env.SchedExpr(slot, course), "course %v at %v", course.Id, slot)
		if fact.Tutor != nil {
			keep(c.env.AssignedExpr(slot, course, *fact.Tutor), "course %v by tutor %v", course.Id, *fact.Tutor)
		}
		if fact.Room != nil && c.env.Locates() {
			keep(c.env.LocatedExpr(slot, course, *fact.Room), "course %v in room %v", course.Id, *fact.Room)
		}
	}
}
