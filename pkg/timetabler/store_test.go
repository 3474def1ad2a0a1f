package timetabler

import (
	"context"
	"testing"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	fact := func(course model.CourseID, period model.PeriodID, version int) model.ScheduledCourse {
		return model.ScheduledCourse{Course: course, Period: period, Version: version, Date: fixture.Monday, Start: 8 * 60, Duration: 60}
	}

	t.Run("Loaded inputs leave schedules out", func(t *testing.T) {
		// Arrange
		store := NewMemoryStore(fixture.New().Schedule(fact(1, 1, 0)).Build())

		// Act
		input, err := store.LoadInput(context.Background(), fixture.Department)

		// Assert
		require.NoError(t, err)
		assert.Empty(t, input.Schedules)
		schedule, _ := store.LoadSchedule(context.Background(), 1, 0)
		assert.Len(t, schedule, 1)
	})

	t.Run("Next version", func(t *testing.T) {
		// Arrange
		store := NewMemoryStore(fixture.New().Schedule(fact(1, 1, 0), fact(1, 1, 2), fact(1, 2, 5)).Build())
		ctx := context.Background()

		// Act
		first, _ := store.NextVersion(ctx, []model.PeriodID{1})
		both, _ := store.NextVersion(ctx, []model.PeriodID{1, 2})
		fresh, _ := store.NextVersion(ctx, []model.PeriodID{3})

		// Assert
		assert.Equal(t, 3, first)
		assert.Equal(t, 6, both)
		assert.Equal(t, 0, fresh)
	})

	t.Run("Replace schedule", func(t *testing.T) {
		// Arrange
		store := NewMemoryStore(fixture.New().Schedule(fact(1, 1, 0), fact(2, 1, 0), fact(1, 2, 0), fact(1, 1, 1)).Build())
		ctx := context.Background()

		// Act
		err := store.ReplaceSchedule(ctx, 0, map[model.PeriodID][]model.ScheduledCourse{1: {fact(3, 7, 9)}})

		// Assert
		require.NoError(t, err)
		replaced, _ := store.LoadSchedule(ctx, 1, 0)
		require.Len(t, replaced, 1)
		assert.Equal(t, model.CourseID(3), replaced[0].Course)
		assert.Equal(t, 0, replaced[0].Version, "facts take the period and version they are stored under")
		other, _ := store.LoadSchedule(ctx, 2, 0)
		assert.Len(t, other, 1, "other periods are untouched")
		version, _ := store.LoadSchedule(ctx, 1, 1)
		assert.Len(t, version, 1, "other versions are untouched")
	})

	t.Run("Cancelled replace", func(t *testing.T) {
		// Arrange
		store := NewMemoryStore(fixture.New().Schedule(fact(1, 1, 0)).Build())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Act
		err := store.ReplaceSchedule(ctx, 0, map[model.PeriodID][]model.ScheduledCourse{1: {}})

		// Assert
		assert.ErrorIs(t, err, context.Canceled)
		schedule, _ := store.LoadSchedule(context.Background(), 1, 0)
		assert.Len(t, schedule, 1)
	})
}
