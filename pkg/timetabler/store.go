package timetabler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

// Store is the persistence contract of a run: everything is read before the build and written once,
// after a successful solve
type Store interface {
	LoadInput(ctx context.Context, department string) (model.Input, error)
	// NextVersion returns the smallest version unused by every given period
	NextVersion(ctx context.Context, periods []model.PeriodID) (int, error)
	LoadSchedule(ctx context.Context, period model.PeriodID, version int) ([]model.ScheduledCourse, error)
	// ReplaceSchedule deletes the version of every given period and inserts the new facts, all at once
	ReplaceSchedule(ctx context.Context, version int, schedules map[model.PeriodID][]model.ScheduledCourse) error
}

// MemoryStore keeps inputs and schedules in memory, it is safe for concurrent use
type MemoryStore struct {
	mutex     sync.Mutex
	inputs    map[string]model.Input
	schedules []model.ScheduledCourse
}

func NewMemoryStore(inputs ...model.Input) *MemoryStore {
	store := &MemoryStore{inputs: make(map[string]model.Input)}
	for _, input := range inputs {
		store.inputs[input.Department.Abbrev] = input
		store.schedules = append(store.schedules, input.Schedules...)
	}
	return store
}

func (store *MemoryStore) LoadInput(ctx context.Context, department string) (model.Input, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	input, ok := store.inputs[department]
	if !ok {
		return model.Input{}, fmt.Errorf("unknown department %q", department)
	}
	input.Schedules = nil
	return input, nil
}

func (store *MemoryStore) NextVersion(ctx context.Context, periods []model.PeriodID) (int, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	used := lo.FilterMap(store.schedules, func(scheduled model.ScheduledCourse, _ int) (int, bool) {
		return scheduled.Version, slices.Contains(periods, scheduled.Period)
	})
	if len(used) == 0 {
		return 0, nil
	}
	return lo.Max(used) + 1, nil
}

func (store *MemoryStore) LoadSchedule(ctx context.Context, period model.PeriodID, version int) ([]model.ScheduledCourse, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	schedule := lo.Filter(store.schedules, func(scheduled model.ScheduledCourse, _ int) bool {
		return scheduled.Period == period && scheduled.Version == version
	})
	slices.SortFunc(schedule, func(a, b model.ScheduledCourse) int { return cmp.Compare(a.Course, b.Course) })
	return schedule, nil
}

func (store *MemoryStore) ReplaceSchedule(ctx context.Context, version int, schedules map[model.PeriodID][]model.ScheduledCourse) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	kept := lo.Reject(store.schedules, func(scheduled model.ScheduledCourse, _ int) bool {
		_, replaced := schedules[scheduled.Period]
		return replaced && scheduled.Version == version
	})
	for _, period := range lo.Keys(schedules) {
		for _, scheduled := range schedules[period] {
			scheduled.Period, scheduled.Version = period, version
			kept = append(kept, scheduled)
		}
	}
	store.schedules = kept
	return nil
}
