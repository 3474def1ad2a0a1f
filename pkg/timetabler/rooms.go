package timetabler

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/rules"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/golang/glog"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

const matchingKind = "RoomMatching"

// roomModel locates the decided courses once the main model is solved. It fails with an *UnsolvedError
// when rooms cannot be found.
type roomModel struct {
	snap     *snapshot.Snapshot
	catalog  *rules.Catalog
	settings ttmodel.Settings
	solver   milp.Solver
}

func (rooms roomModel) assign(ctx context.Context, env *ttmodel.Env, decided map[model.CourseID]ttmodel.Decision, params milp.Parameters, report *Report) error {
	if conflict, err := rooms.match(decided); err != nil {
		return err
	} else if conflict != nil {
		return &UnsolvedError{Stage: "rooms", Status: milp.StatusInfeasible, Conflict: conflict}
	}

	roomEnv := ttmodel.NewRoomEnv(rooms.snap, rooms.settings, env.Warnings, decided)
	rooms.catalog.Enrich(roomEnv, periodIds(rooms.snap))
	report.RoomVariables, report.RoomConstraints = roomEnv.Model.NumVars(), roomEnv.Model.NumConstraints()
	glog.Infof("room model: %d variables, %d constraints", report.RoomVariables, report.RoomConstraints)

	solution, err := rooms.solver.Solve(ctx, roomEnv.Model, params)
	if err != nil {
		return fmt.Errorf("an error occurred during %v execution: %w", rooms.solver.Name(), err)
	}
	glog.Infof("room model %v", solution.Status)
	if !solution.Status.HasSolution() {
		return &UnsolvedError{Stage: "rooms", Status: solution.Status, Log: solution.Log}
	}
	decodeRooms(roomEnv, solution, decided)
	return nil
}

// match looks, instant by instant, for a maximum matching between the courses running and the rooms
// available to them. A course short of a room proves the room model infeasible.
func (rooms roomModel) match(decided map[model.CourseID]ttmodel.Decision) (*milp.Conflict, error) {
	snap := rooms.snap
	tags := []milp.Tag{}
	for _, period := range snap.Periods {
		for _, instant := range snap.Instants(period.Id) {
			courses := lo.Filter(snap.CoursesOf(period.Id), func(course *model.Course, _ int) bool {
				decision, ok := decided[course.Id]
				return ok && snap.NeedsRoom(course) && snapshot.Covers(decision.Slot, instant) &&
					!slices.Contains(snap.PossibleRooms(course), snapshot.NoRoom)
			})
			if len(courses) == 0 {
				continue
			}
			candidates := lo.Uniq(lo.FlatMap(courses, func(course *model.Course, _ int) []model.RoomID { return snap.PossibleRooms(course) }))

			neighbors := func(courseAny any, roomAny any) (bool, error) {
				course := courseAny.(*model.Course)
				room := roomAny.(model.RoomID)
				return slices.Contains(snap.PossibleRooms(course), room) && snap.RoomAvailable(room, decided[course.Id].Slot.Slot), nil
			}
			graph, err := bipartitegraph.NewBipartiteGraph(lo.ToAnySlice(courses), lo.ToAnySlice(candidates), neighbors)
			if err != nil {
				return nil, err
			}
			if matching := graph.LargestMatching(); len(matching) < len(courses) {
				ids := lo.Map(courses, func(course *model.Course, _ int) string { return fmt.Sprint(course.Id) })
				glog.Warningf("cannot find rooms at %v for courses %v", instant, strings.Join(ids, ", "))
				tags = append(tags, milp.Tag{Kind: matchingKind, Detail: fmt.Sprintf("%d rooms at most for courses %v at %v",
					len(matching), strings.Join(ids, ", "), instant)})
			}
		}
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return &milp.Conflict{Kinds: []string{matchingKind}, Tags: tags}, nil
}
