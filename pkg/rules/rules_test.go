package rules

import (
	"context"
	"testing"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/diagnostics"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//** Helpers

func snapshotOf(t *testing.T, builder *fixture.Builder, visio bool) *snapshot.Snapshot {
	snap, err := snapshot.Build(builder.Build(), snapshot.Options{Periods: []model.PeriodID{1}, Visio: visio})
	require.NoError(t, err)
	return snap
}

func decode(t *testing.T, kind string, weight *int, params map[string]any) Rule {
	rule, err := Decode(model.RawRule{Id: kind, Kind: kind, Weight: weight, Params: params}, 8)
	require.NoError(t, err)
	return rule
}

func coreRules() []Rule {
	return []Rule{
		New(KindScheduleAllCourses, nil),
		New(KindNoSimultaneousGroupCourses, nil),
		New(KindAssignAllCourses, nil),
		New(KindConsiderTutorsUnavailability, nil),
		New(KindLocateAllCourses, nil),
		New(KindNoTwoCoursesInSameRoom, nil),
	}
}

// envOf builds the main model of a snapshot enriched with the rules
func envOf(snap *snapshot.Snapshot, rules ...Rule) *ttmodel.Env {
	env := ttmodel.NewMainEnv(snap, ttmodel.DefaultSettings(), nil)
	catalog := &Catalog{}
	catalog.Add(rules...)
	catalog.Enrich(env, lo.Map(snap.Periods, func(period model.Period, _ int) model.PeriodID { return period.Id }))
	return env
}

func solve(t *testing.T, env *ttmodel.Env) milp.Solution {
	solution, err := milp.NewEnumerationSolver(0).Solve(context.Background(), env.Model, milp.Parameters{})
	require.NoError(t, err)
	return solution
}

// placements returns the slot of every scheduled course
func placements(env *ttmodel.Env, solution milp.Solution) map[model.CourseID]*model.CourseSlot {
	result := map[model.CourseID]*model.CourseSlot{}
	for _, key := range env.Vars.SchedKeys() {
		if v, _ := env.Vars.Sched(key.Slot, key.Course); solution.IsOne(v) {
			result[key.Course] = env.Snapshot.Slots()[key.Slot]
		}
	}
	return result
}

// starts returns the start minute of every scheduled course
func starts(env *ttmodel.Env, solution milp.Solution) map[model.CourseID]int {
	return lo.MapValues(placements(env, solution), func(slot *model.CourseSlot, _ model.CourseID) int { return slot.Start })
}

// rooms returns the room of every located course
func rooms(env *ttmodel.Env, solution milp.Solution) map[model.CourseID]model.RoomID {
	result := map[model.CourseID]model.RoomID{}
	for _, key := range env.Vars.LocateKeys() {
		if v, _ := env.Vars.Located(key.Slot, key.Course, key.Room); solution.IsOne(v) {
			result[key.Course] = key.Room
		}
	}
	return result
}

//** Decoding and catalog

func TestDecode(t *testing.T) {
	t.Run("Parameters and filter", func(t *testing.T) {
		// Act
		rule, err := Decode(model.RawRule{
			Id:     "r1",
			Kind:   KindLimitStartTimeChoices,
			Weight: fixture.Weight(3),
			Params: map[string]any{"AllowedStartTimes": []any{480.0, 600.0}, "Weekdays": "monday,tu", "Tutors": []any{1.0}},
		}, 8)

		// Assert
		require.NoError(t, err)
		limit, ok := rule.(*LimitStartTimeChoices)
		require.True(t, ok)
		assert.Equal(t, []int{480, 600}, limit.AllowedStartTimes)
		assert.Len(t, limit.weekdays, 2)
		assert.Equal(t, []model.TutorID{1}, limit.Tutors)
		assert.Equal(t, "r1", limit.Id)
		assert.Equal(t, 3, *limit.Weight)
		assert.True(t, limit.Active)
	})

	t.Run("Generated identifier", func(t *testing.T) {
		// Act
		rule, err := Decode(model.RawRule{Kind: KindScheduleAllCourses}, 8)

		// Assert
		require.NoError(t, err)
		assert.NotEmpty(t, rule.Info().Id)
		assert.True(t, rule.Info().IsHard())
	})

	t.Run("Failures", func(t *testing.T) {
		cases := map[string]model.RawRule{
			"unknown kind":      {Kind: "Unknown"},
			"unknown parameter": {Kind: KindScheduleAllCourses, Params: map[string]any{"Foo": 1}},
			"weight too high":   {Kind: KindScheduleAllCourses, Weight: fixture.Weight(9)},
			"weight too low":    {Kind: KindScheduleAllCourses, Weight: fixture.Weight(0)},
			"invalid weekday":   {Kind: KindNoCourseOnDay, Params: map[string]any{"Weekday": "someday"}},
			"missing rooms":     {Kind: KindLimitedRoomChoices},
			"same rooms":        {Kind: KindRoomSort, Params: map[string]any{"Preferred": 1, "Unpreferred": 1}},
		}
		for name, raw := range cases {
			_, err := Decode(raw, 8)
			assert.Error(t, err, name)
		}
	})
}

func TestCatalog(t *testing.T) {
	t.Run("Malformed rules are skipped with a warning", func(t *testing.T) {
		// Arrange
		warnings := diagnostics.NewCollector()
		raws := []model.RawRule{{Id: "a", Kind: KindScheduleAllCourses}, {Id: "b", Kind: "Unknown"}}

		// Act
		catalog := NewCatalog(raws, 8, warnings)

		// Assert
		assert.Equal(t, 1, catalog.Len())
		require.Equal(t, 1, warnings.Len())
		assert.Equal(t, "b", warnings.Warnings()[0].RuleID)
	})

	t.Run("Core rules", func(t *testing.T) {
		// Arrange
		catalog := &Catalog{}
		catalog.Add(New(KindScheduleAllCourses, fixture.Weight(2)))

		// Act
		catalog.WithCoreRules(8)

		// Assert
		assert.Equal(t, len(coreKinds), catalog.Len())
		kinds := lo.CountValuesBy(catalog.Rules(), func(rule Rule) string { return rule.Kind() })
		assert.Equal(t, 1, kinds[KindScheduleAllCourses], "declared kinds are not duplicated")
		busyDays, _ := lo.Find(catalog.Rules(), func(rule Rule) bool { return rule.Kind() == KindMinimizeBusyDays })
		require.NotNil(t, busyDays.Info().Weight)
		assert.Equal(t, 8, *busyDays.Info().Weight)
	})
}

func TestEnrich(t *testing.T) {
	snap := snapshotOf(t, fixture.New().Courses(2), false)

	t.Run("Empty scope", func(t *testing.T) {
		// Arrange
		env := ttmodel.NewMainEnv(snap, ttmodel.DefaultSettings(), nil)
		before := env.Model.NumConstraints()
		rule := decode(t, KindScheduleAllCourses, nil, map[string]any{"Courses": []any{99}})

		// Act
		Enrich(env, rule, 1)

		// Assert
		assert.Equal(t, before, env.Model.NumConstraints())
		assert.Zero(t, env.Warnings.Len())
	})

	t.Run("Inactive or other period", func(t *testing.T) {
		// Arrange
		env := ttmodel.NewMainEnv(snap, ttmodel.DefaultSettings(), nil)
		before := env.Model.NumConstraints()
		inactive := New(KindScheduleAllCourses, nil)
		inactive.Info().Active = false
		elsewhere := New(KindScheduleAllCourses, nil)
		elsewhere.Info().Periods = []model.PeriodID{2}

		// Act
		Enrich(env, inactive, 1)
		Enrich(env, elsewhere, 1)

		// Assert
		assert.Equal(t, before, env.Model.NumConstraints())
	})

	t.Run("Weight normalization", func(t *testing.T) {
		// Arrange
		settings := ttmodel.DefaultSettings()
		settings.Ponderations[KindScheduleAllCourses] = 3
		env := ttmodel.NewMainEnv(snap, settings, nil)

		// Act
		Enrich(env, New(KindScheduleAllCourses, fixture.Weight(4)), 1)

		// Assert: 4/8·3 per unscheduled course
		cost := env.Model.Costs().Get(milp.Bucket{Owner: milp.GenericOwner, Period: 1})
		assert.InDelta(t, 3.0, cost.Constant(), 1e-9)
		v, _ := env.Vars.Sched(snap.CompatibleSlots(snap.Courses()[0])[0].Index, 1)
		assert.InDelta(t, -1.5, cost.Coef(v), 1e-9)
	})

	t.Run("Room rules in post-assign mode", func(t *testing.T) {
		// Arrange
		settings := ttmodel.DefaultSettings()
		settings.RoomMode = ttmodel.PostAssign
		env := ttmodel.NewMainEnv(snap, settings, nil)

		// Assert
		assert.False(t, Runs(env, New(KindLocateAllCourses, nil)))
		assert.True(t, Runs(env, New(KindScheduleAllCourses, nil)))
		assert.True(t, Runs(env, New(KindStabilize, nil)))
	})
}
