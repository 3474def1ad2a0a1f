package timetabler

import (
	"context"
	"errors"
	"testing"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/feasibility"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/rules"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//** Helpers

func request() SolveRequest {
	return SolveRequest{Department: fixture.Department, Periods: []model.PeriodID{1}}
}

func timetablerOf(builder *fixture.Builder, options Options) (*Timetabler, *MemoryStore) {
	store := NewMemoryStore(builder.Build())
	return New(store, milp.NewEnumerationSolver(0), options), store
}

func schedule(t *testing.T, store *MemoryStore, version int) map[model.CourseID]model.ScheduledCourse {
	facts, err := store.LoadSchedule(context.Background(), 1, version)
	require.NoError(t, err)
	return lo.KeyBy(facts, func(scheduled model.ScheduledCourse) model.CourseID { return scheduled.Course })
}

func withRooms() *fixture.Builder {
	return fixture.New().
		Room(model.Room{Id: 1, Name: "R1"}).
		Room(model.Room{Id: 2, Name: "R2"}).
		RoomType(model.RoomType{Id: 1, Name: "TD", Members: []model.RoomID{1, 2}}).
		RoomUnavailable(1, fixture.Monday, 8*60, 10*60).
		Course(1, fixture.WithRoomType(1))
}

//** Tests

func TestSolve(t *testing.T) {
	t.Run("Two courses get distinct slots", func(t *testing.T) {
		// Arrange
		timetabler, store := timetablerOf(fixture.New().Courses(2), DefaultOptions())

		// Act
		version, report, err := timetabler.Solve(context.Background(), request())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 0, version, "first version of the periods")
		assert.Equal(t, version, report.Version)
		assert.NotEmpty(t, report.RunId)
		assert.Equal(t, milp.StatusOptimal, report.Status)
		assert.Positive(t, report.Variables)
		assert.Positive(t, report.Constraints)
		assert.Empty(t, feasibility.Failed(report.Analysis))

		facts := schedule(t, store, 0)
		require.Len(t, facts, 2)
		assert.NotEqual(t, facts[1].Start, facts[2].Start)
		assert.False(t, facts[1].Slot().Overlaps(facts[2].Slot()))
		for _, scheduled := range facts {
			assert.Equal(t, model.TutorID(1), *scheduled.Tutor)
			assert.Nil(t, scheduled.Room)
			assert.Equal(t, fixture.Monday, scheduled.Date)
		}
	})

	t.Run("Versions", func(t *testing.T) {
		// Arrange
		timetabler, store := timetablerOf(fixture.New().Courses(2), DefaultOptions())
		ctx := context.Background()

		// Act
		first, _, firstErr := timetabler.Solve(ctx, request())
		second, _, secondErr := timetabler.Solve(ctx, request())
		target := request()
		target.TargetVersion = lo.ToPtr(0)
		replaced, _, replacedErr := timetabler.Solve(ctx, target)

		// Assert
		require.NoError(t, errors.Join(firstErr, secondErr, replacedErr))
		assert.Equal(t, []int{0, 1, 0}, []int{first, second, replaced})
		assert.Len(t, schedule(t, store, 0), 2, "the version is replaced, not appended to")
		assert.Len(t, schedule(t, store, 1), 2)
	})

	t.Run("Infeasible runs commit nothing", func(t *testing.T) {
		// Arrange: 4 courses for 3 slots
		timetabler, store := timetablerOf(fixture.New().Courses(4), DefaultOptions())

		// Act
		version, report, err := timetabler.Solve(context.Background(), request())

		// Assert
		require.ErrorIs(t, err, ErrUnsolved)
		var unsolved *UnsolvedError
		require.True(t, errors.As(err, &unsolved))
		assert.Equal(t, "main", unsolved.Stage)
		assert.Equal(t, milp.StatusInfeasible, unsolved.Status)
		require.NotNil(t, unsolved.Conflict)
		assert.Contains(t, unsolved.Conflict.Kinds, rules.KindScheduleAllCourses)
		assert.Equal(t, unsolved.Conflict, report.Conflict)
		assert.Equal(t, -1, version)
		assert.Len(t, feasibility.Failed(report.Analysis), 2, "the pre-analysis saw it coming")
		assert.Empty(t, schedule(t, store, 0))
	})

	t.Run("Configuration errors abort", func(t *testing.T) {
		// Arrange
		builder := fixture.New().Courses(1)
		builder.Input.CourseTypes[0].Duration = 90
		timetabler, _ := timetablerOf(builder, DefaultOptions())

		// Act
		_, report, err := timetabler.Solve(context.Background(), request())

		// Assert
		var configurationError *model.ConfigurationError
		assert.True(t, errors.As(err, &configurationError))
		assert.NotErrorIs(t, err, ErrUnsolved)
		assert.NotNil(t, report)
	})

	t.Run("Unknown department", func(t *testing.T) {
		// Arrange
		timetabler, _ := timetablerOf(fixture.New(), DefaultOptions())
		unknown := request()
		unknown.Department = "MATH"

		// Act
		_, _, err := timetabler.Solve(context.Background(), unknown)

		// Assert
		assert.ErrorContains(t, err, "cannot load department MATH")
	})

	t.Run("Malformed rules are reported", func(t *testing.T) {
		// Arrange
		builder := fixture.New().Courses(1).Rule(rules.KindLimitedRoomChoices, fixture.Hard(), map[string]any{})

		// Act
		timetabler, _ := timetablerOf(builder, DefaultOptions())
		_, report, err := timetabler.Solve(context.Background(), request())

		// Assert
		require.NoError(t, err)
		require.Len(t, report.Warnings, 1)
		assert.Equal(t, rules.KindLimitedRoomChoices, report.Warnings[0].Kind)
	})
}

func TestSolveRooms(t *testing.T) {
	t.Run("Available room", func(t *testing.T) {
		// Arrange
		timetabler, store := timetablerOf(withRooms(), DefaultOptions())

		// Act
		_, _, err := timetabler.Solve(context.Background(), request())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, model.RoomID(2), *schedule(t, store, 0)[1].Room)
	})

	t.Run("Limited to an unavailable room", func(t *testing.T) {
		// Arrange
		builder := withRooms().Rule(rules.KindLimitedRoomChoices, fixture.Hard(), map[string]any{"PossibleRooms": []any{1}})
		timetabler, store := timetablerOf(builder, DefaultOptions())

		// Act
		_, _, err := timetabler.Solve(context.Background(), request())

		// Assert
		assert.ErrorIs(t, err, ErrUnsolved)
		assert.Empty(t, schedule(t, store, 0))
	})

	t.Run("Post-assign", func(t *testing.T) {
		// Arrange
		options := DefaultOptions()
		options.Settings.RoomMode = ttmodel.PostAssign
		timetabler, store := timetablerOf(withRooms(), options)

		// Act
		_, report, err := timetabler.Solve(context.Background(), request())

		// Assert
		require.NoError(t, err)
		assert.Positive(t, report.RoomVariables)
		assert.Equal(t, model.RoomID(2), *schedule(t, store, 0)[1].Room)
	})

	t.Run("Post-assign without enough rooms", func(t *testing.T) {
		// Arrange: two simultaneous courses share the single room R1
		builder := fixture.New().
			Group(model.Group{Id: 2, Name: "G2", TrainProgram: 1}).
			Tutor(model.Tutor{Id: 2, Username: "CD"}).
			Room(model.Room{Id: 1, Name: "R1"}).
			RoomType(model.RoomType{Id: 1, Name: "TD", Members: []model.RoomID{1}}).
			Course(1, fixture.WithRoomType(1)).
			Course(2, fixture.WithGroups(2), fixture.WithTutor(2), fixture.WithRoomType(1)).
			Rule(rules.KindSimultaneousCourses, fixture.Hard(), map[string]any{"Courses": []any{1, 2}})
		options := DefaultOptions()
		options.Settings.RoomMode = ttmodel.PostAssign
		timetabler, store := timetablerOf(builder, options)

		// Act
		_, report, err := timetabler.Solve(context.Background(), request())

		// Assert
		var unsolved *UnsolvedError
		require.True(t, errors.As(err, &unsolved))
		assert.Equal(t, "rooms", unsolved.Stage)
		require.NotNil(t, report.Conflict)
		assert.Equal(t, []string{matchingKind}, report.Conflict.Kinds)
		assert.Zero(t, report.RoomVariables, "the matching fails before the room model is built")
		assert.Empty(t, schedule(t, store, 0))
	})
}

func TestStabilize(t *testing.T) {
	// Arrange: version 3 placed the courses at 14:00 and 10:00
	tutor := model.TutorID(1)
	previous := func(course model.CourseID, start int) model.ScheduledCourse {
		return model.ScheduledCourse{Course: course, Period: 1, Version: 3, Date: fixture.Monday, Start: start, Duration: 60, Tutor: &tutor}
	}
	builder := fixture.New().Courses(2).Schedule(previous(1, 14*60), previous(2, 10*60))
	timetabler, store := timetablerOf(builder, DefaultOptions())
	stabilized := request()
	stabilized.StabilizeVersion = lo.ToPtr(3)

	// Act
	version, report, err := timetabler.Solve(context.Background(), stabilized)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 4, version)
	assert.Zero(t, report.Objective)
	facts := schedule(t, store, 4)
	assert.Equal(t, 14*60, facts[1].Start)
	assert.Equal(t, 10*60, facts[2].Start)
	assert.Len(t, schedule(t, store, 3), 2, "the stabilized version is left untouched")
}

func TestAnalyse(t *testing.T) {
	// Arrange
	timetabler, store := timetablerOf(fixture.New().Courses(4), DefaultOptions())

	// Act
	report, err := timetabler.Analyse(context.Background(), request())

	// Assert
	require.NoError(t, err)
	failed := feasibility.Failed(report.Analysis)
	require.Len(t, failed, 2)
	assert.Equal(t, feasibility.KO, failed[0].Status)
	assert.Zero(t, report.Variables, "no model is built")
	assert.Empty(t, schedule(t, store, 0))
}
