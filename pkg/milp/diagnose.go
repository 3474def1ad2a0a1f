package milp

import (
	"context"
	"slices"

	"github.com/golang/glog"
	"github.com/samber/lo"
)

// Conflict is a set of constraint families that cannot hold together
type Conflict struct {
	Kinds []string
	// Tags of the remaining families' constraints, for reporting
	Tags []Tag
}

// Diagnose runs a deletion filter over the model's constraint families (tag kinds): a family is dropped
// whenever the model stays infeasible without it. Families whose removal cannot be decided, e.g. because
// of a time limit, are kept. It returns nil when the feasibility-only model is not proven infeasible.
func Diagnose(ctx context.Context, solver Solver, model *Model, params Parameters) (*Conflict, error) {
	kinds := lo.Uniq(append(
		lo.Map(model.Constraints(), func(constraint Constraint, _ int) string { return constraint.Tag.Kind }),
		lo.Map(model.Violated(), func(constraint Constraint, _ int) string { return constraint.Tag.Kind })...,
	))
	slices.Sort(kinds)

	infeasible := func(kept []string) (bool, error) {
		restricted := model.Restrict(func(tag Tag) bool { return slices.Contains(kept, tag.Kind) })
		solution, err := solver.Solve(ctx, restricted, params)
		if err != nil {
			return false, err
		}
		return solution.Status == StatusInfeasible, nil
	}

	if ok, err := infeasible(kinds); err != nil || !ok {
		return nil, err
	}

	kept := slices.Clone(kinds)
	for _, kind := range kinds {
		candidate := lo.Without(kept, kind)
		ok, err := infeasible(candidate)
		if err != nil {
			return nil, err
		}
		if ok {
			glog.V(1).Infof("constraint family %v is not part of the conflict", kind)
			kept = candidate
		}
	}

	tags := lo.FilterMap(append(slices.Clone(model.Violated()), model.Constraints()...), func(constraint Constraint, _ int) (Tag, bool) {
		return constraint.Tag, slices.Contains(kept, constraint.Tag.Kind)
	})
	return &Conflict{Kinds: kept, Tags: lo.Uniq(tags)}, nil
}
