package milp

import (
	"fmt"
	"log"
	"math"
)

type VarKind int

const (
	Binary VarKind = iota
	Integer
)

type variable struct {
	name  string
	kind  VarKind
	lower float64
	upper float64
}

type Relation int

const (
	LessEqual Relation = iota
	GreaterEqual
	Equal
)

func (relation Relation) String() string {
	switch relation {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	}
	return "="
}

func (relation Relation) holds(lhs, rhs float64) bool {
	const eps = 1e-6
	switch relation {
	case LessEqual:
		return lhs <= rhs+eps
	case GreaterEqual:
		return lhs >= rhs-eps
	}
	return math.Abs(lhs-rhs) <= eps
}

// Tag carries diagnostic metadata of a constraint; it never changes its meaning
type Tag struct {
	Kind   string // Constraint family, e.g. the rule kind
	Rule   string // Identifier of the rule instance that produced it
	Detail string
}

func (tag Tag) String() string {
	if tag.Detail == "" {
		return fmt.Sprintf("%v[%v]", tag.Kind, tag.Rule)
	}
	return fmt.Sprintf("%v[%v] %v", tag.Kind, tag.Rule, tag.Detail)
}

// Constraint holds Expr Relation RHS, where Expr carries no constant
type Constraint struct {
	Expr     LinExpr
	Relation Relation
	RHS      float64
	Tag      Tag
}

func (constraint Constraint) Satisfied(values []float64) bool {
	return constraint.Relation.holds(constraint.Expr.Eval(values), constraint.RHS)
}

// Model is the variable factory every constraint writes into. Nothing is evaluated before solve time.
type Model struct {
	name        string
	vars        []variable
	constraints []Constraint
	violated    []Constraint // Constant constraints that can never hold
	costs       *CostBuckets
}

func NewModel(name string) *Model {
	return &Model{
		name:  name,
		costs: newCostBuckets(),
	}
}

func (m *Model) Name() string {
	return m.name
}

func (m *Model) NewBool(name string) Var {
	m.vars = append(m.vars, variable{name: name, kind: Binary, lower: 0, upper: 1})
	return Var(len(m.vars) - 1)
}

func (m *Model) NewInt(name string, lower, upper int) Var {
	if lower > upper {
		log.Panicf("integer variable %v has an empty domain [%v, %v]", name, lower, upper)
	}
	m.vars = append(m.vars, variable{name: name, kind: Integer, lower: float64(lower), upper: float64(upper)})
	return Var(len(m.vars) - 1)
}

func (m *Model) VarName(v Var) string {
	return m.vars[v].name
}

func (m *Model) VarKind(v Var) VarKind {
	return m.vars[v].kind
}

func (m *Model) VarBounds(v Var) (float64, float64) {
	return m.vars[v].lower, m.vars[v].upper
}

// Bounds returns the smallest and greatest values an expression can take over the variables' domains
func (m *Model) Bounds(expr LinExpr) (float64, float64) {
	minimum, maximum := expr.constant, expr.constant
	for v, coef := range expr.terms {
		lower, upper := m.vars[v].lower, m.vars[v].upper
		if coef > 0 {
			minimum += coef * lower
			maximum += coef * upper
		} else {
			minimum += coef * upper
			maximum += coef * lower
		}
	}
	return minimum, maximum
}

func (m *Model) NumVars() int {
	return len(m.vars)
}

func (m *Model) NumConstraints() int {
	return len(m.constraints) + len(m.violated)
}

func (m *Model) Constraints() []Constraint {
	return m.constraints
}

// Violated returns the constraints without variables that cannot hold, making the model infeasible
func (m *Model) Violated() []Constraint {
	return m.violated
}

// AddConstraint registers expr relation rhs as a hard constraint
func (m *Model) AddConstraint(expr LinExpr, relation Relation, rhs float64, tag Tag) {
	rhs -= expr.constant
	lhs := LinExpr{}
	lhs.AddExpr(expr, 1)
	lhs.constant = 0

	constraint := Constraint{Expr: lhs, Relation: relation, RHS: rhs, Tag: tag}
	if lhs.IsConstant() {
		// Constant constraints are either trivially satisfied or make the model infeasible
		if !relation.holds(0, rhs) {
			m.violated = append(m.violated, constraint)
		}
		return
	}
	m.constraints = append(m.constraints, constraint)
}

// AddFloor returns a fresh boolean y with expr <= bound·y + floor - 1, given 0 <= expr <= bound.
// y is forced to 1 whenever expr >= floor; when y is only penalized, minimization drives it to 0
// whenever expr < floor, hence y = [expr >= floor].
func (m *Model) AddFloor(expr LinExpr, floor, bound float64, name string, tag Tag) Var {
	y := m.NewBool(name)
	if floor <= 0 {
		m.AddConstraint(Expr(y), Equal, 1, tag)
		return y
	}
	constraint := expr.Minus(Expr(y).Scale(bound))
	m.AddConstraint(constraint, LessEqual, floor-1, tag)
	return y
}

// AddConjunct returns a fresh boolean c = a AND b
func (m *Model) AddConjunct(a, b Var, name string, tag Tag) Var {
	c := m.NewBool(name)
	m.AddConstraint(Expr(c).Minus(Expr(a)), LessEqual, 0, tag)
	m.AddConstraint(Expr(c).Minus(Expr(b)), LessEqual, 0, tag)
	m.AddConstraint(Expr(c).Minus(Expr(a, b)), GreaterEqual, -1, tag)
	return c
}

func (m *Model) AddToTutorCost(tutor uint64, term LinExpr, period int64) {
	m.costs.add(Bucket{Owner: TutorOwner, Id: tutor, Period: period}, term)
}

func (m *Model) AddToGroupCost(group uint64, term LinExpr, period int64) {
	m.costs.add(Bucket{Owner: GroupOwner, Id: group, Period: period}, term)
}

func (m *Model) AddToSlotCost(slot uint64, term LinExpr, period int64) {
	m.costs.add(Bucket{Owner: SlotOwner, Id: slot, Period: period}, term)
}

func (m *Model) AddToGenericCost(term LinExpr, period int64) {
	m.costs.add(Bucket{Owner: GenericOwner, Period: period}, term)
}

func (m *Model) Costs() *CostBuckets {
	return m.costs
}

// Objective is the unweighted sum of every cost bucket
func (m *Model) Objective() LinExpr {
	return m.costs.Total()
}

// Restrict returns a feasibility-only copy of the model keeping the constraints whose tag is kept
func (m *Model) Restrict(keep func(Tag) bool) *Model {
	restricted := &Model{
		name:  m.name,
		vars:  m.vars,
		costs: newCostBuckets(),
	}
	for _, constraint := range m.constraints {
		if keep(constraint.Tag) {
			restricted.constraints = append(restricted.constraints, constraint)
		}
	}
	for _, constraint := range m.violated {
		if keep(constraint.Tag) {
			restricted.violated = append(restricted.violated, constraint)
		}
	}
	return restricted
}

// Check returns the constraints a full assignment violates
func (m *Model) Check(values []float64) []Constraint {
	violations := append([]Constraint{}, m.violated...)
	for _, constraint := range m.constraints {
		if !constraint.Satisfied(values) {
			violations = append(violations, constraint)
		}
	}
	return violations
}
