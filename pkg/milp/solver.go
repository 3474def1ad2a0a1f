package milp

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/samber/lo"
)

type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible   // A solution was found but optimality was not proven within the limits
	StatusInfeasible // Proven infeasible
	StatusTimeLimit  // Limits were reached before any solution was found
)

func (status Status) String() string {
	return [...]string{"unknown", "optimal", "feasible", "infeasible", "time-limit"}[status]
}

// HasSolution checks whether the status comes along with an assignment
func (status Status) HasSolution() bool {
	return status == StatusOptimal || status == StatusFeasible
}

type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Log       string
}

func (solution Solution) Value(v Var) float64 {
	return solution.Values[v]
}

func (solution Solution) IsOne(v Var) bool {
	return solution.Values[v] > 0.5
}

type Parameters struct {
	TimeLimit        time.Duration // Zero stands for no limit
	Threads          int           // Zero lets the solver decide
	IgnoreInterrupts bool          // Keep solving when the caller's context or terminal is interrupted
	Verbose          bool
}

// Solver hands a model to a MILP engine. Infeasibility and limits are reported through the Solution's
// status; errors are kept for execution failures.
type Solver interface {
	Name() string
	Solve(ctx context.Context, model *Model, params Parameters) (Solution, error)
}

var solvers = map[string]func(paths map[string]string) Solver{
	"cbc": func(paths map[string]string) Solver {
		return NewCbcSolver(lo.ValueOr(paths, "cbc", cbcPath))
	},
	"highs": func(paths map[string]string) Solver {
		return NewHighsSolver(lo.ValueOr(paths, "highs", highsPath))
	},
	"glpk": func(paths map[string]string) Solver {
		return NewGlpkSolver(lo.ValueOr(paths, "glpk", glpkPath))
	},
	"enumeration": func(map[string]string) Solver {
		return NewEnumerationSolver(0)
	},
}

func SolverNames() []string {
	names := lo.Keys(solvers)
	slices.Sort(names)
	return names
}

// NewSolver builds a solver from its name, paths override the executables' default locations
func NewSolver(name string, paths map[string]string) (Solver, error) {
	constructor, ok := solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver %q, allowed values are %v", name, SolverNames())
	}
	return constructor(paths), nil
}

// Checks the solution's size and recomputes the objective, including its constant
func completeSolution(model *Model, solution *Solution) error {
	if !solution.Status.HasSolution() {
		return nil
	}
	if len(solution.Values) != model.NumVars() {
		return fmt.Errorf("solution holds %d values for %d variables", len(solution.Values), model.NumVars())
	}
	solution.Objective = model.Objective().Eval(solution.Values)
	return nil
}
