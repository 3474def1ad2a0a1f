package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultOptions = Options{Periods: []model.PeriodID{1}}

func TestBuildSlots(t *testing.T) {
	t.Run("Course slots follow start time rules", func(t *testing.T) {
		// Arrange
		input := fixture.New().Courses(2).Build()

		// Act
		snapshot, err := Build(input, defaultOptions)

		// Assert
		require.NoError(t, err)
		slots := snapshot.CompatibleSlots(snapshot.Courses()[0])
		assert.Len(t, slots, 3)
		assert.Equal(t, []int{8 * 60, 10 * 60, 14 * 60}, []int{slots[0].Start, slots[1].Start, slots[2].Start})
		assert.Len(t, snapshot.Instants(1), 3)
	})

	t.Run("Working dates skip weekends and holidays", func(t *testing.T) {
		// Arrange
		input := fixture.New().Week().Holiday(fixture.Monday.AddDate(0, 0, 2)).Courses(1).Build()

		// Act
		snapshot, err := Build(input, defaultOptions)

		// Assert
		require.NoError(t, err)
		assert.Len(t, snapshot.WorkingDates(1), 4)
		assert.Len(t, snapshot.CompatibleSlots(snapshot.Courses()[0]), 12)
	})

	t.Run("Slot step replaces declared start times", func(t *testing.T) {
		// Arrange
		input := fixture.New().Courses(1).Build()

		// Act
		snapshot, err := Build(input, Options{Periods: []model.PeriodID{1}, SlotStep: 60})

		// Assert
		require.NoError(t, err)
		assert.Len(t, snapshot.CompatibleSlots(snapshot.Courses()[0]), 10, "08:00 to 17:00")
	})

	t.Run("Missing start time rule", func(t *testing.T) {
		// Arrange
		builder := fixture.New().Courses(1)
		builder.Input.CourseTypes[0].Duration = 90

		// Act
		_, err := Build(builder.Build(), defaultOptions)

		// Assert
		var configurationError *model.ConfigurationError
		assert.True(t, errors.As(err, &configurationError))
		assert.Equal(t, "duration 90", configurationError.Subject)
	})

	t.Run("Unknown period", func(t *testing.T) {
		// Act
		_, err := Build(fixture.New().Build(), Options{Periods: []model.PeriodID{7}})

		// Assert
		var configurationError *model.ConfigurationError
		assert.True(t, errors.As(err, &configurationError))
	})

	t.Run("Period ending before its start", func(t *testing.T) {
		// Arrange
		builder := fixture.New().Courses(1)
		builder.Input.Periods[0].End = fixture.Monday.AddDate(0, 0, -1)

		// Act
		_, err := Build(builder.Build(), defaultOptions)

		// Assert
		var configurationError *model.ConfigurationError
		require.True(t, errors.As(err, &configurationError))
		assert.Equal(t, "period 1", configurationError.Subject)
	})
}

func TestPossibleTutors(t *testing.T) {
	// Arrange
	builder := fixture.New().
		Tutor(model.Tutor{Id: 2}).
		Tutor(model.Tutor{Id: 3}).
		Course(1, fixture.WithTutor(3), fixture.WithPossibleTutors(2)).
		Course(2, fixture.WithPossibleTutors(3, 2)).
		Course(3, fixture.WithType(fixture.TD)).
		Course(4)
	builder.Input.Repartitions = []model.Repartition{{Module: 1, CourseType: fixture.TD, Period: 1, Tutor: 2, Count: 1}}

	// Act
	snapshot, err := Build(builder.Build(), defaultOptions)

	// Assert
	require.NoError(t, err)
	possible := func(id model.CourseID) []model.TutorID {
		course, _ := snapshot.Course(id)
		return snapshot.PossibleTutors(course)
	}
	assert.Equal(t, []model.TutorID{3}, possible(1), "explicit tutor first")
	assert.Equal(t, []model.TutorID{2, 3}, possible(2), "then the course's list")
	assert.Equal(t, []model.TutorID{2}, possible(3), "then the repartition")
	assert.Equal(t, []model.TutorID{1}, possible(4), "then the module's tutors")
	assert.Equal(t, []model.TutorID{1, 2, 3}, snapshot.Tutors())
}

func TestGroups(t *testing.T) {
	// Arrange: 1 is the root of basic groups 2 and 3, transversal 10 conflicts with 2, 11 with 1
	builder := fixture.New().
		Group(model.Group{Id: 2, Parents: []model.GroupID{1}}).
		Group(model.Group{Id: 3, Parents: []model.GroupID{1}}).
		Group(model.Group{Id: 10, Transversal: true, Conflicting: []model.GroupID{2}, Parallel: []model.GroupID{11}}).
		Group(model.Group{Id: 11, Transversal: true, Conflicting: []model.GroupID{1}}).
		Course(1, fixture.WithGroups(1)).
		Course(2, fixture.WithGroups(3)).
		Course(3, fixture.WithGroups(10))

	// Act
	snapshot, err := Build(builder.Build(), defaultOptions)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []model.GroupID{2, 3}, snapshot.BasicGroups())
	assert.Equal(t, []model.GroupID{2, 3}, snapshot.BasicGroupsOf(1))
	assert.Equal(t, []model.GroupID{1, 3}, snapshot.Ancestors(3))
	assert.Equal(t, []model.GroupID{10, 11}, snapshot.TransversalGroupsOf(2))
	assert.Equal(t, []model.GroupID{11}, snapshot.TransversalGroupsOf(3))
	assert.True(t, snapshot.Parallel(11, 10))
	assert.Len(t, snapshot.StructuralCoursesOf(1, 2), 1)
	assert.Len(t, snapshot.StructuralCoursesOf(1, 3), 2)
	assert.Len(t, snapshot.CoursesOfBasicGroup(1, 2), 2)
}

func TestRooms(t *testing.T) {
	// Arrange: room 3 is made of rooms 1 and 2
	builder := fixture.New().
		Room(model.Room{Id: 1, Name: "A"}).
		Room(model.Room{Id: 2, Name: "B"}).
		Room(model.Room{Id: 3, Name: "AB", Subrooms: []model.RoomID{1, 2}}).
		RoomType(model.RoomType{Id: 1, Name: "TD", Members: []model.RoomID{3, 1}}).
		RoomUnavailable(2, fixture.Monday, 8*60, 60).
		Course(1, fixture.WithRoomType(1)).
		Course(2)

	// Act
	snapshot, err := Build(builder.Build(), Options{Periods: []model.PeriodID{1}, Visio: true})

	// Assert
	require.NoError(t, err)
	first, _ := snapshot.Course(1)
	second, _ := snapshot.Course(2)
	assert.Equal(t, []model.RoomID{NoRoom, 1, 3}, snapshot.PossibleRooms(first))
	assert.False(t, snapshot.NeedsRoom(second))
	assert.Equal(t, []model.RoomID{1, 2}, snapshot.BasicRoomsOf(3))
	assert.Equal(t, []model.RoomID{1, 3}, snapshot.RoomsContaining(1))
	morning := model.Slot{Date: fixture.Monday, Start: 8 * 60, Duration: 60}
	assert.False(t, snapshot.RoomAvailable(3, morning), "a subroom is unavailable")
	assert.True(t, snapshot.RoomAvailable(1, morning))
}

func TestAvailability(t *testing.T) {
	// Arrange
	input := fixture.New().
		Availability(1, fixture.Monday, 8*60, 60, 0).
		Availability(1, fixture.Monday, 10*60, 30, 8).
		Availability(1, fixture.Monday, 10*60+30, 30, 7).
		Availability(1, fixture.Monday, 14*60, 30, 8).
		Courses(1).
		Build()
	snapshot, err := Build(input, defaultOptions)
	require.NoError(t, err)

	slot := func(start int) model.Slot { return model.Slot{Date: fixture.Monday, Start: start, Duration: 60} }

	// Act & Assert
	assert.Equal(t, 0, snapshot.Availability(1, slot(8*60)))
	assert.Equal(t, 7, snapshot.Availability(1, slot(10*60)), "fully declared")
	assert.Equal(t, model.DefaultAvailability, snapshot.Availability(1, slot(14*60)), "partly declared")
	assert.Equal(t, model.DefaultAvailability, snapshot.Availability(1, slot(16*60)), "undeclared")
	assert.True(t, Undesired(2))
	assert.False(t, Undesired(0))
}

func TestFixedCourses(t *testing.T) {
	t.Run("Fixed bookings block tutors and groups", func(t *testing.T) {
		// Arrange
		tutor := model.TutorID(1)
		input := fixture.New().
			Courses(1).
			Fixed(model.FixedCourse{Id: 9, Department: "GIM", Period: 1, Type: fixture.CM, Weekday: time.Monday,
				Start: 10 * 60, Duration: 60, Tutor: &tutor, Groups: []model.GroupID{1}}).
			Build()

		// Act
		snapshot, err := Build(input, defaultOptions)

		// Assert
		require.NoError(t, err)
		slot, ok := snapshot.FixedSlot(9)
		assert.True(t, ok)
		assert.Equal(t, 10*60, slot.Start)
		assert.Len(t, snapshot.TutorBusy(1, model.Slot{Date: fixture.Monday, Start: 10*60 + 30, Duration: 60}), 1)
		assert.Len(t, snapshot.GroupBusy(1, model.Slot{Date: fixture.Monday, Start: 8 * 60, Duration: 60}), 0)
	})

	t.Run("Ambiguous placement", func(t *testing.T) {
		// Arrange: a two-week period holds two Mondays
		builder := fixture.New().Courses(1)
		builder.Input.Periods[0].End = fixture.Monday.AddDate(0, 0, 13)
		builder.Fixed(model.FixedCourse{Id: 9, Period: 1, Type: fixture.CM, Weekday: time.Monday, Start: 10 * 60, Duration: 60})

		// Act
		_, err := Build(builder.Build(), defaultOptions)

		// Assert
		var configurationError *model.ConfigurationError
		assert.True(t, errors.As(err, &configurationError))
		assert.Equal(t, "fixed course 9", configurationError.Subject)
	})
}
