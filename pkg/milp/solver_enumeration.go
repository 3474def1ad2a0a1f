package milp

import (
	"context"
	"math"
	"time"

	"github.com/golang/glog"
)

const (
	defaultMaxNodes = 1 << 22
	feasibilityEps  = 1e-6
)

// enumerationSolver is an in-process branch and bound over the integer domains. Each node
// propagates the constraints' bounds and is pruned by the objective's lower bound.
// It is meant for small models, e.g. diagnostics and tests, where no external solver is available.
type enumerationSolver struct {
	maxNodes int
}

func NewEnumerationSolver(maxNodes int) Solver {
	if maxNodes <= 0 {
		maxNodes = defaultMaxNodes
	}
	return &enumerationSolver{maxNodes: maxNodes}
}

func (solver *enumerationSolver) Name() string {
	return "enumeration"
}

// lessEqualRow is Σ terms <= rhs
type lessEqualRow struct {
	terms []Term
	rhs   float64
}

type enumeration struct {
	rows      []lessEqualRow
	objective LinExpr
	maxNodes  int
	deadline  time.Time
	ctx       context.Context

	nodes    int
	stopped  bool
	best     []float64
	bestCost float64
}

func (solver *enumerationSolver) Solve(ctx context.Context, model *Model, params Parameters) (Solution, error) {
	if len(model.Violated()) > 0 {
		return Solution{Status: StatusInfeasible}, nil
	}
	if params.IgnoreInterrupts {
		ctx = context.WithoutCancel(ctx)
	}

	search := &enumeration{
		objective: model.Objective(),
		maxNodes:  solver.maxNodes,
		ctx:       ctx,
		bestCost:  math.Inf(1),
	}
	if params.TimeLimit > 0 {
		search.deadline = time.Now().Add(params.TimeLimit)
	}
	for _, constraint := range model.Constraints() {
		terms := constraint.Expr.Terms()
		if constraint.Relation != GreaterEqual {
			search.rows = append(search.rows, lessEqualRow{terms: terms, rhs: constraint.RHS})
		}
		if constraint.Relation != LessEqual {
			negated := make([]Term, len(terms))
			for i, term := range terms {
				negated[i] = Term{Var: term.Var, Coef: -term.Coef}
			}
			search.rows = append(search.rows, lessEqualRow{terms: negated, rhs: -constraint.RHS})
		}
	}

	lower := make([]float64, model.NumVars())
	upper := make([]float64, model.NumVars())
	for v := range model.NumVars() {
		lower[v], upper[v] = model.VarBounds(Var(v))
	}
	search.explore(lower, upper)

	if params.Verbose {
		glog.Infof("enumeration explored %d nodes", search.nodes)
	}

	if ctx.Err() != nil && search.best == nil {
		return Solution{}, ctx.Err()
	}
	var solution Solution
	switch {
	case search.best != nil && !search.stopped:
		solution = Solution{Status: StatusOptimal, Values: search.best}
	case search.best != nil:
		solution = Solution{Status: StatusFeasible, Values: search.best}
	case search.stopped:
		solution = Solution{Status: StatusTimeLimit}
	default:
		solution = Solution{Status: StatusInfeasible}
	}
	return solution, completeSolution(model, &solution)
}

func (search *enumeration) limitReached() bool {
	if search.stopped {
		return true
	}
	search.nodes++
	if search.nodes > search.maxNodes {
		search.stopped = true
	} else if search.nodes%1024 == 0 {
		if search.ctx.Err() != nil || (!search.deadline.IsZero() && time.Now().After(search.deadline)) {
			search.stopped = true
		}
	}
	return search.stopped
}

func (search *enumeration) explore(lower, upper []float64) {
	if search.limitReached() {
		return
	}
	if !search.propagate(lower, upper) {
		return
	}
	bound, _ := search.objective.Bounds(lower, upper)
	if bound >= search.bestCost-feasibilityEps {
		return
	}

	branch := -1
	for v := range lower {
		if lower[v] < upper[v] {
			branch = v
			break
		}
	}
	if branch < 0 {
		search.best = append([]float64{}, lower...)
		search.bestCost = bound
		return
	}

	// Try the cheapest end of the domain first
	values := make([]float64, 0, int(upper[branch]-lower[branch])+1)
	for value := lower[branch]; value <= upper[branch]; value++ {
		values = append(values, value)
	}
	if search.objective.Coef(Var(branch)) < 0 {
		for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
			values[i], values[j] = values[j], values[i]
		}
	}
	for _, value := range values {
		childLower := append([]float64{}, lower...)
		childUpper := append([]float64{}, upper...)
		childLower[branch], childUpper[branch] = value, value
		search.explore(childLower, childUpper)
		if search.stopped {
			return
		}
	}
}

// propagate tightens the domains until a fixed point, it returns false when some row cannot hold
func (search *enumeration) propagate(lower, upper []float64) bool {
	for changed := true; changed; {
		changed = false
		for _, row := range search.rows {
			minimum := 0.0
			for _, term := range row.terms {
				minimum += term.Coef * minimizingBound(term.Coef, lower[term.Var], upper[term.Var])
			}
			slack := row.rhs - minimum
			if slack < -feasibilityEps {
				return false
			}
			for _, term := range row.terms {
				v := term.Var
				if term.Coef > 0 {
					tightened := math.Floor(lower[v] + slack/term.Coef + feasibilityEps)
					if tightened < upper[v] {
						upper[v], changed = tightened, true
					}
				} else {
					tightened := math.Ceil(upper[v] + slack/term.Coef - feasibilityEps)
					if tightened > lower[v] {
						lower[v], changed = tightened, true
					}
				}
				if lower[v] > upper[v] {
					return false
				}
			}
		}
	}
	return true
}

// minimizingBound returns the bound minimizing the term's contribution
func minimizingBound(coef, lower, upper float64) float64 {
	if coef > 0 {
		return lower
	}
	return upper
}
