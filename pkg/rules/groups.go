package rules

import (
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/coloring"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
)

// NoSimultaneousGroupCourses keeps a basic group in at most one course at a time. Transversal groups
// declared parallel may run together, structural courses never overlap with transversal ones.
type NoSimultaneousGroupCourses struct {
	Base `mapstructure:",squash"`
}

func (*NoSimultaneousGroupCourses) Kind() string {
	return KindNoSimultaneousGroupCourses
}

func (rule *NoSimultaneousGroupCourses) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *NoSimultaneousGroupCourses) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *NoSimultaneousGroupCourses) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	for _, basic := range scope.Groups {
		structural := snap.StructuralCoursesOf(scope.Period, basic)
		transversals := snap.TransversalGroupsOf(basic)
		graph := conflictGraph(snap, transversals)
		// Up to a color class of mutually parallel transversal groups may run at once
		parallel := float64(max(1, coloring.LargestClass(coloring.Greedy(graph))))
		// A course also given to a structural group is counted once, in the structural term
		transversalCourses := lo.Map(transversals, func(group model.GroupID, _ int) []*model.Course {
			return lo.Without(snap.GroupCourses(scope.Period, group), structural...)
		})
		owner := groupOwner(basic)

		for _, instant := range snap.Instants(scope.Period) {
			covers := func(slot *model.CourseSlot) bool { return snapshot.Covers(slot, instant) }
			structuralAt := c.env.GroupExpr(structural, covers)
			transversalAt := lo.Map(transversalCourses, func(courses []*model.Course, _ int) milp.LinExpr {
				return c.env.GroupExpr(courses, covers)
			})

			total := structuralAt.Scale(parallel).Plus(milp.Sum(transversalAt...))
			c.atMost(total, parallel, owner, "group %v at %v", basic, instant)
			for i, group := range transversals {
				c.atMost(transversalAt[i], 1, owner, "transversal group %v at %v", group, instant)
			}
			for _, edge := range graph.Edges() {
				a, b := lo.IndexOf(transversals, edge[0]), lo.IndexOf(transversals, edge[1])
				c.atMost(transversalAt[a].Plus(transversalAt[b]), 1, owner, "groups %v and %v at %v", edge[0], edge[1], instant)
			}
		}

		rule.forbidBookings(c, scope, basic)
	}
}

// Committed bookings of the group cannot be overlapped
func (rule *NoSimultaneousGroupCourses) forbidBookings(c contribution, scope Scope, basic model.GroupID) {
	snap := c.env.Snapshot
	if len(snap.GroupBookings(basic)) == 0 {
		return
	}
	for _, course := range c.env.GroupCourses(scope.Period, basic) {
		for _, slot := range snap.CompatibleSlots(course) {
			if busy := snap.GroupBusy(basic, slot.Slot); len(busy) > 0 {
				c.forbid(c.env.SchedExpr(slot, course), groupOwner(basic), "group %v busy at %v: %v", basic, slot, busy[0].Reason)
			}
		}
	}
}

// Transversal groups conflict unless declared parallel
func conflictGraph(snap *snapshot.Snapshot, transversals []model.GroupID) *coloring.Graph[model.GroupID] {
	graph := coloring.NewGraph(transversals...)
	for i, a := range transversals {
		for _, b := range transversals[i+1:] {
			if !snap.Parallel(a, b) {
				graph.AddEdge(a, b)
			}
		}
	}
	return graph
}
