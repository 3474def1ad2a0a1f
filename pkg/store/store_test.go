package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/rules"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/timetabler"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ timetabler.Store = (*Store)(nil)

func open(t *testing.T) *Store {
	store, err := Open(fmt.Sprintf("file:%v?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and serializes transactions
	db, err := store.DB().DB()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	return store
}

func fact(course model.CourseID, period model.PeriodID, version int) model.ScheduledCourse {
	tutor := model.TutorID(1)
	return model.ScheduledCourse{Course: course, Period: period, Version: version, Date: fixture.Monday, Start: 8 * 60, Duration: 60, Tutor: &tutor}
}

func department() model.Input {
	input := fixture.New().
		Week().
		Holiday(fixture.Monday.AddDate(0, 0, 2)).
		Group(model.Group{Id: 2, Name: "G1a", TrainProgram: 1, Parents: []model.GroupID{1}}).
		Room(model.Room{Id: 1, Name: "A", Departments: []string{fixture.Department}}).
		RoomType(model.RoomType{Id: 1, Name: "TD", Department: fixture.Department, Members: []model.RoomID{1}}).
		RoomUnavailable(1, fixture.Monday, 8*60, 60).
		Availability(1, fixture.Monday, 8*60, 120, 0).
		Course(1, fixture.WithRoomType(1)).
		Course(2, fixture.WithGroups(2), fixture.WithSuppTutors(1)).
		Dependency(model.Dependency{Id: 1, Course1: 1, Course2: 2, NotSameDay: true}).
		Pivot(model.Pivot{Id: 1, Pivot: 1, Others: []model.CourseID{2}, After: true}).
		Rule(rules.KindNoCourseOnDay, fixture.Weight(3), map[string]any{"Weekday": "friday"}).
		Build()
	// Rules are stored under the department they are saved with
	for i := range input.Rules {
		input.Rules[i].Department = fixture.Department
	}
	return input
}

func TestInput(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		// Arrange
		store := open(t)
		input := department()

		// Act
		saveErr := store.Save(context.Background(), input)
		loaded, loadErr := store.LoadInput(context.Background(), fixture.Department)

		// Assert
		require.NoError(t, saveErr)
		require.NoError(t, loadErr)
		if diff := cmp.Diff(input, loaded, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("loaded input mismatch (-saved +loaded):\n%s", diff)
		}
	})

	t.Run("Saving again replaces the department", func(t *testing.T) {
		// Arrange
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.Save(ctx, department()))
		smaller := department()
		smaller.Courses = smaller.Courses[:1]
		smaller.Rules = nil

		// Act
		err := store.Save(ctx, smaller)
		loaded, _ := store.LoadInput(ctx, fixture.Department)

		// Assert
		require.NoError(t, err)
		assert.Len(t, loaded.Courses, 1)
		assert.Empty(t, loaded.Rules)
		assert.Len(t, loaded.Tutors, 1)
	})

	t.Run("Tutors of other departments", func(t *testing.T) {
		// Arrange
		store := open(t)
		input := department()
		input.Tutors = append(input.Tutors, model.Tutor{Id: 7, Username: "XY", Departments: []string{"MATH"}})

		// Act
		require.NoError(t, store.Save(context.Background(), input))
		loaded, err := store.LoadInput(context.Background(), fixture.Department)

		// Assert
		require.NoError(t, err)
		assert.Len(t, loaded.Tutors, 1, "tutor 7 neither works for the department nor gives its courses")
	})

	t.Run("Unknown department", func(t *testing.T) {
		// Act
		_, err := open(t).LoadInput(context.Background(), "MATH")

		// Assert
		assert.ErrorContains(t, err, `unknown department "MATH"`)
	})
}

func TestSchedules(t *testing.T) {
	t.Run("Versions", func(t *testing.T) {
		// Arrange
		store := open(t)
		ctx := context.Background()
		input := department()
		input.Schedules = []model.ScheduledCourse{fact(1, 1, 0), fact(2, 1, 0), fact(1, 1, 4)}
		require.NoError(t, store.Save(ctx, input))

		// Act
		next, nextErr := store.NextVersion(ctx, []model.PeriodID{1})
		fresh, freshErr := store.NextVersion(ctx, []model.PeriodID{2})
		schedule, loadErr := store.LoadSchedule(ctx, 1, 0)

		// Assert
		require.NoError(t, nextErr)
		require.NoError(t, freshErr)
		require.NoError(t, loadErr)
		assert.Equal(t, 5, next)
		assert.Equal(t, 0, fresh)
		if diff := cmp.Diff([]model.ScheduledCourse{fact(1, 1, 0), fact(2, 1, 0)}, schedule); diff != "" {
			t.Errorf("schedule mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Replace is atomic", func(t *testing.T) {
		// Arrange
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.ReplaceSchedule(ctx, 0, map[model.PeriodID][]model.ScheduledCourse{1: {fact(1, 1, 0)}}))

		// Act: course 3 twice in period 2 breaks the unique index after period 1 was rewritten
		err := store.ReplaceSchedule(ctx, 0, map[model.PeriodID][]model.ScheduledCourse{
			1: {fact(2, 1, 0)},
			2: {fact(3, 2, 0), fact(3, 2, 0)},
		})

		// Assert
		require.Error(t, err)
		schedule, _ := store.LoadSchedule(ctx, 1, 0)
		require.Len(t, schedule, 1)
		assert.Equal(t, model.CourseID(1), schedule[0].Course)
	})
}

func TestSolveOnDatabase(t *testing.T) {
	// Arrange
	store := open(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, fixture.New().Courses(2).Build()))
	solver := timetabler.New(store, milp.NewEnumerationSolver(0), timetabler.DefaultOptions())
	request := timetabler.SolveRequest{Department: fixture.Department, Periods: []model.PeriodID{1}, TimeLimit: time.Minute}

	// Act
	version, _, err := solver.Solve(ctx, request)

	// Assert
	require.NoError(t, err)
	schedule, _ := store.LoadSchedule(ctx, 1, version)
	require.Len(t, schedule, 2)
	assert.NotEqual(t, schedule[0].Start, schedule[1].Start)
}
