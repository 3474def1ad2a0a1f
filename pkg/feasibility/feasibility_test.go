package feasibility

import (
	"testing"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/diagnostics"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/rules"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, builder *fixture.Builder, options Options) []Report {
	input := builder.Build()
	snap, err := snapshot.Build(input, snapshot.Options{Periods: []model.PeriodID{1}})
	require.NoError(t, err)
	catalog := rules.NewCatalog(input.Rules, 8, diagnostics.NewCollector())
	return Analyze(snap, catalog, options)
}

func bySubject(reports []Report) map[string]Report {
	result := map[string]Report{}
	for _, report := range reports {
		result[report.Subject] = report
	}
	return result
}

func TestAnalyze(t *testing.T) {
	t.Run("Period without dates", func(t *testing.T) {
		// Arrange
		input := fixture.New().Courses(1).Build()
		snap, err := snapshot.Build(input, snapshot.Options{Periods: []model.PeriodID{1}})
		require.NoError(t, err)
		snap.Periods[0].End = fixture.Monday.AddDate(0, 0, -1)
		catalog := rules.NewCatalog(nil, 8, diagnostics.NewCollector())

		// Act
		var reports []Report
		assert.NotPanics(t, func() { reports = Analyze(snap, catalog, Options{}) })

		// Assert
		assert.Empty(t, reports)
	})

	t.Run("Enough free time", func(t *testing.T) {
		// Arrange
		builder := fixture.New().Courses(2).Tutor(model.Tutor{Id: 2, Username: "CD"})

		// Act
		reports := analyze(t, builder, Options{})

		// Assert
		require.Len(t, reports, 2, "tutors without courses are skipped")
		assert.Empty(t, Failed(reports))
		assert.Equal(t, OK, bySubject(reports)["tutor AB"].Status)
		assert.Equal(t, OK, bySubject(reports)["group G1"].Status)
	})

	t.Run("More courses than start times", func(t *testing.T) {
		// Arrange: 4 one-hour courses but only 08:00, 10:00 and 14:00 on a single Monday
		builder := fixture.New().Courses(4)

		// Act
		reports := analyze(t, builder, Options{})

		// Assert
		require.Len(t, Failed(reports), 2)
		tutor := bySubject(reports)["tutor AB"]
		assert.Equal(t, KO, tutor.Status)
		assert.Equal(t, model.PeriodID(1), tutor.Period)
		require.Len(t, tutor.Messages, 2, "free time suffices but the slots do not")
		assert.Contains(t, tutor.Messages[0], "only 3 such slots are free")
		assert.Contains(t, tutor.Messages[1], "at most 3 of them fit")
		assert.Equal(t, KO, bySubject(reports)["group G1"].Status)
	})

	t.Run("Unavailable tutor", func(t *testing.T) {
		// Arrange
		builder := fixture.New().Courses(1).Availability(1, fixture.Monday, 8*60, 10*60, 0)

		// Act
		reports := bySubject(analyze(t, builder, Options{}))

		// Assert
		assert.Equal(t, KO, reports["tutor AB"].Status)
		assert.Contains(t, reports["tutor AB"].Messages[0], "but only 0h00 are free")
		assert.Equal(t, OK, reports["group G1"].Status)
	})

	t.Run("Undesired slots", func(t *testing.T) {
		// Arrange
		builder := func() *fixture.Builder {
			return fixture.New().Courses(1).Availability(1, fixture.Monday, 8*60, 10*60, 1)
		}

		// Act
		lenient := bySubject(analyze(t, builder(), Options{}))
		strict := bySubject(analyze(t, builder(), Options{ConsiderPreferences: true}))

		// Assert
		assert.Equal(t, OK, lenient["tutor AB"].Status)
		assert.Equal(t, KO, strict["tutor AB"].Status)
	})

	t.Run("Fixed courses take time", func(t *testing.T) {
		// Arrange: the fixed course spans 08:00 to 12:00, leaving only 14:00
		tutor := model.TutorID(1)
		builder := fixture.New().Courses(2).
			Fixed(model.FixedCourse{Id: 9, Department: fixture.Department, Period: 1, Type: fixture.CM, Weekday: fixture.Monday.Weekday(),
				Start: 8 * 60, Duration: 4 * 60, Tutor: &tutor})

		// Act
		reports := bySubject(analyze(t, builder, Options{}))

		// Assert
		assert.Equal(t, KO, reports["tutor AB"].Status)
		assert.Equal(t, OK, reports["group G1"].Status, "the fixed course has no group")
	})

	t.Run("Hard rules forbid time", func(t *testing.T) {
		// Arrange
		builder := func(weight *int) *fixture.Builder {
			return fixture.New().Courses(1).
				Rule(rules.KindNoCourseOnDay, weight, map[string]any{"Weekday": "monday", "Tutors": []any{1}})
		}

		// Act
		hard := bySubject(analyze(t, builder(fixture.Hard()), Options{}))
		soft := bySubject(analyze(t, builder(fixture.Weight(4)), Options{}))

		// Assert
		assert.Equal(t, KO, hard["tutor AB"].Status)
		assert.Equal(t, OK, hard["group G1"].Status)
		assert.Equal(t, OK, soft["tutor AB"].Status, "soft rules never forbid")
	})

	t.Run("Holidays close the day", func(t *testing.T) {
		// Arrange: the course's type still has slots on another day of the week
		builder := fixture.New().Week().Holiday(fixture.Monday).Courses(4)

		// Act
		reports := analyze(t, builder, Options{})

		// Assert
		assert.Empty(t, Failed(reports), "three slots on each of the four remaining days")
	})
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "KO", KO.String())
}
