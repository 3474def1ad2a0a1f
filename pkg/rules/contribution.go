package rules

import (
	"fmt"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
)

// owner routes a cost term to the bucket of whom it concerns
type owner func(m *milp.Model, term milp.LinExpr, period int64)

func tutorOwner(tutor model.TutorID) owner {
	return func(m *milp.Model, term milp.LinExpr, period int64) { m.AddToTutorCost(uint64(tutor), term, period) }
}

func groupOwner(group model.GroupID) owner {
	return func(m *milp.Model, term milp.LinExpr, period int64) { m.AddToGroupCost(uint64(group), term, period) }
}

func slotOwner(slot *model.CourseSlot) owner {
	return func(m *milp.Model, term milp.LinExpr, period int64) { m.AddToSlotCost(uint64(slot.Index), term, period) }
}

func genericOwner(m *milp.Model, term milp.LinExpr, period int64) {
	m.AddToGenericCost(term, period)
}

// contribution writes a rule's conditions for one period: hard constraints, or cost terms when a weight is set
type contribution struct {
	env    *ttmodel.Env
	rule   Rule
	period model.PeriodID
	weight *float64
}

func hardContribution(env *ttmodel.Env, rule Rule, scope Scope) contribution {
	return contribution{env: env, rule: rule, period: scope.Period}
}

func softContribution(env *ttmodel.Env, rule Rule, scope Scope, weight float64) contribution {
	return contribution{env: env, rule: rule, period: scope.Period, weight: &weight}
}

// asHard drops the weight, for conditions that are never traded against costs
func (c contribution) asHard() contribution {
	c.weight = nil
	return c
}

func (c contribution) hard() bool {
	return c.weight == nil
}

func (c contribution) tag(format string, args ...any) milp.Tag {
	return tag(c.rule, format, args...)
}

// cost adds weight·term to the owner's bucket
func (c contribution) cost(owner owner, term milp.LinExpr) {
	if term.IsConstant() && term.Constant() == 0 {
		return
	}
	owner(c.env.Model, term.Scale(*c.weight), int64(c.period))
}

// forbid keeps a sum of decisions at 0
func (c contribution) forbid(expr milp.LinExpr, owner owner, format string, args ...any) {
	if c.hard() {
		c.env.Model.AddConstraint(expr, milp.LessEqual, 0, c.tag(format, args...))
		return
	}
	c.cost(owner, expr)
}

// atMost keeps expr under a limit; a soft rule pays once the limit is exceeded
func (c contribution) atMost(expr milp.LinExpr, limit float64, owner owner, format string, args ...any) {
	if c.hard() {
		c.env.Model.AddConstraint(expr, milp.LessEqual, limit, c.tag(format, args...))
		return
	}
	c.cost(owner, exceeds(c.env, expr, limit+1, fmt.Sprintf(format, args...), c.tag(format, args...)))
}

// equal keeps expr at a value; a soft rule pays the distance to it, given expr never goes past the value
func (c contribution) equal(expr milp.LinExpr, value float64, owner owner, format string, args ...any) {
	if c.hard() {
		c.env.Model.AddConstraint(expr, milp.Equal, value, c.tag(format, args...))
		return
	}
	c.cost(owner, milp.Constant(value).Minus(expr))
}

// thresholds pays growth^i for every threshold first+i <= last the expression reaches.
// A hard rule keeps the expression under the first threshold.
func (c contribution) thresholds(expr milp.LinExpr, first, last int, owner owner, format string, args ...any) {
	if c.hard() {
		c.env.Model.AddConstraint(expr, milp.LessEqual, float64(first-1), c.tag(format, args...))
		return
	}
	price := 1.0
	for threshold := first; threshold <= last; threshold++ {
		name := fmt.Sprintf("%v>=%d", fmt.Sprintf(format, args...), threshold)
		c.cost(owner, exceeds(c.env, expr, float64(threshold), name, c.tag(format, args...)).Scale(price))
		price *= c.env.Settings.ThresholdGrowth
	}
}

// exceeds is an indicator of expr >= floor, constant when expr cannot vary or cannot reach the floor
func exceeds(env *ttmodel.Env, expr milp.LinExpr, floor float64, name string, tag milp.Tag) milp.LinExpr {
	if expr.IsConstant() {
		return milp.Constant(lo.Ternary(expr.Constant() >= floor, 1.0, 0.0))
	}
	_, bound := env.Model.Bounds(expr)
	if bound < floor {
		return milp.Constant(0)
	}
	return milp.Expr(env.Model.AddFloor(expr, floor, bound, name, tag))
}
