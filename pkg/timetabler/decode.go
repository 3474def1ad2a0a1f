package timetabler

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/golang/glog"
)

// Decode reads the placement of every scheduled course out of a main model solution
func Decode(env *ttmodel.Env, solution milp.Solution) map[model.CourseID]ttmodel.Decision {
	decided := make(map[model.CourseID]ttmodel.Decision)
	for _, key := range env.Vars.SchedKeys() {
		sched, _ := env.Vars.Sched(key.Slot, key.Course)
		if !solution.IsOne(sched) {
			continue
		}
		if _, ok := decided[key.Course]; ok {
			log.Panicf("course %v is scheduled twice", key.Course)
		}

		decision := ttmodel.Decision{Slot: env.Snapshot.Slots()[key.Slot]}
		for _, tutor := range env.Vars.TutorsOf(key.Slot, key.Course) {
			if assigned, _ := env.Vars.Assigned(key.Slot, key.Course, tutor); solution.IsOne(assigned) {
				decision.Tutor = &tutor
			}
		}
		for _, room := range env.Vars.RoomsOf(key.Slot, key.Course) {
			if located, _ := env.Vars.Located(key.Slot, key.Course, room); solution.IsOne(located) && room != snapshot.NoRoom {
				decision.Room = &room
			}
		}
		decided[key.Course] = decision
	}
	return decided
}

// decodeRooms completes the decisions with the rooms of a room model solution
func decodeRooms(env *ttmodel.Env, solution milp.Solution, decided map[model.CourseID]ttmodel.Decision) {
	for _, key := range env.Vars.LocateKeys() {
		located, _ := env.Vars.Located(key.Slot, key.Course, key.Room)
		if !solution.IsOne(located) || key.Room == snapshot.NoRoom {
			continue
		}
		decision := decided[key.Course]
		decision.Room = &key.Room
		decided[key.Course] = decision
	}
}

// Schedule turns decisions into the committed facts of a version. Every period of the snapshot holds an
// entry, empty periods included, so that replacing the version clears them.
func Schedule(snap *snapshot.Snapshot, version int, decided map[model.CourseID]ttmodel.Decision) map[model.PeriodID][]model.ScheduledCourse {
	schedules := make(map[model.PeriodID][]model.ScheduledCourse)
	for _, period := range snap.Periods {
		schedules[period.Id] = []model.ScheduledCourse{}
	}
	for id, decision := range decided {
		course, ok := snap.Course(id)
		if !ok {
			log.Panicf("decision on unknown course %v", id)
		}
		schedules[course.Period] = append(schedules[course.Period], model.ScheduledCourse{
			Course:   id,
			Period:   course.Period,
			Version:  version,
			Date:     decision.Slot.Date,
			Start:    decision.Slot.Start,
			Duration: decision.Slot.Duration,
			Tutor:    decision.Tutor,
			Room:     decision.Room,
		})
	}
	for _, schedule := range schedules {
		slices.SortFunc(schedule, func(a, b model.ScheduledCourse) int { return cmp.Compare(a.Course, b.Course) })
	}
	return schedules
}

// write commits the decisions as a whole version
func write(ctx context.Context, store Store, snap *snapshot.Snapshot, version int, decided map[model.CourseID]ttmodel.Decision) error {
	schedules := Schedule(snap, version, decided)
	if err := store.ReplaceSchedule(ctx, version, schedules); err != nil {
		return fmt.Errorf("cannot commit version %v: %w", version, err)
	}
	glog.Infof("committed %d courses as version %v", len(decided), version)
	return nil
}
