package partition

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var monday = time.Date(2024, time.September, 2, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestAdd(t *testing.T) {
	// Arrange
	partition := New(Interval{Start: at(0, 8, 0), End: at(0, 18, 0)})

	// Act
	partition.Forbid(Interval{Start: at(0, 12, 0), End: at(0, 14, 0)}, "lunch")
	partition.Forbid(Interval{Start: at(0, 13, 0), End: at(0, 15, 0)}, "busy")
	partition.Forbid(Interval{Start: at(0, 17, 0), End: at(0, 20, 0)}, "closed")

	// Assert
	expected := []Entry{
		{Interval: Interval{Start: at(0, 8, 0), End: at(0, 12, 0)}},
		{Interval: Interval{Start: at(0, 12, 0), End: at(0, 13, 0)}, Attributes: Attributes{Forbidden: true, Reasons: []string{"lunch"}}},
		{Interval: Interval{Start: at(0, 13, 0), End: at(0, 14, 0)}, Attributes: Attributes{Forbidden: true, Reasons: []string{"busy", "lunch"}}},
		{Interval: Interval{Start: at(0, 14, 0), End: at(0, 15, 0)}, Attributes: Attributes{Forbidden: true, Reasons: []string{"busy"}}},
		{Interval: Interval{Start: at(0, 15, 0), End: at(0, 17, 0)}},
		{Interval: Interval{Start: at(0, 17, 0), End: at(0, 18, 0)}, Attributes: Attributes{Forbidden: true, Reasons: []string{"closed"}}},
	}
	if diff := cmp.Diff(expected, partition.Entries()); diff != "" {
		t.Errorf("unexpected entries (-want +got):\n%v", diff)
	}
}

func TestCompact(t *testing.T) {
	// Arrange
	partition := New(Interval{Start: at(0, 8, 0), End: at(0, 18, 0)})
	partition.Forbid(Interval{Start: at(0, 10, 0), End: at(0, 11, 0)}, "busy")
	partition.Forbid(Interval{Start: at(0, 11, 0), End: at(0, 12, 0)}, "busy")

	// Act
	partition.Compact()

	// Assert
	assert.Len(t, partition.Entries(), 3)
	assert.Equal(t, Interval{Start: at(0, 10, 0), End: at(0, 12, 0)}, partition.Entries()[1].Interval)
}

func TestFree(t *testing.T) {
	// Arrange
	partition := New(Interval{Start: at(0, 8, 0), End: at(1, 18, 0)})
	partition.Forbid(Interval{Start: at(0, 12, 0), End: at(1, 8, 0)}, "night")

	// Act
	free := partition.Free()

	// Assert
	assert.Equal(t, []Interval{
		{Start: at(0, 8, 0), End: at(0, 12, 0)},
		{Start: at(1, 8, 0), End: at(1, 18, 0)},
	}, free)
	assert.Equal(t, 14*time.Hour, partition.FreeDuration())
}

func TestCountPlacements(t *testing.T) {
	// Arrange
	partition := New(Interval{Start: at(0, 8, 0), End: at(0, 12, 0)})
	partition.Forbid(Interval{Start: at(0, 9, 30), End: at(0, 10, 0)}, "busy")

	// Act
	hourly := partition.CountPlacements(time.Hour, []int{8 * 60, 9 * 60, 10 * 60, 11 * 60})
	overlapping := partition.CountPlacements(90*time.Minute, []int{10 * 60, 10*60 + 30})

	// Assert
	assert.Equal(t, 3, hourly, "08:00, 10:00 and 11:00 fit, 09:00 crosses the busy interval")
	assert.Equal(t, 1, overlapping, "placements never overlap")
}

func TestAddOutsideSpan(t *testing.T) {
	// Arrange
	partition := New(Interval{Start: at(0, 8, 0), End: at(0, 12, 0)})

	// Act
	partition.Forbid(Interval{Start: at(1, 8, 0), End: at(1, 12, 0)}, "elsewhere")

	// Assert
	assert.Len(t, partition.Entries(), 1)
	assert.Equal(t, 4*time.Hour, partition.FreeDuration())
}
