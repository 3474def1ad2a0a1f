package main

import (
	"testing"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/fixture"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/feasibility"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIds(t *testing.T) {
	ids, err := parseIds[model.PeriodID]("1, 2,36")
	require.NoError(t, err)
	assert.Equal(t, []model.PeriodID{1, 2, 36}, ids)

	ids, err = parseIds[model.PeriodID]("  ")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIds[model.PeriodID]("1,w36")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	t.Run("Schedule", func(t *testing.T) {
		// Arrange
		tutor, room := model.TutorID(1), model.RoomID(4)
		schedules := map[model.PeriodID][]model.ScheduledCourse{
			2: {{Course: 3, Period: 2, Version: 1, Date: fixture.Monday.AddDate(0, 0, 7), Start: 14 * 60, Duration: 60}},
			1: {{Course: 1, Period: 1, Version: 1, Date: fixture.Monday, Start: 8 * 60, Duration: 90, Tutor: &tutor, Room: &room}},
		}

		// Act
		csv, err := gocsv.MarshalString(scheduleRows(schedules))

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "period,version,course,date,start,duration,tutor,room\n"+
			"1,1,1,2024-09-02,08:00,90,1,4\n"+
			"2,1,3,2024-09-09,14:00,60,,\n", csv)
	})

	t.Run("Analysis", func(t *testing.T) {
		// Arrange
		reports := []feasibility.Report{
			{Subject: "tutor AB", Period: 1, Status: feasibility.KO, Messages: []string{"a", "b"}},
			{Subject: "group G1", Period: 1},
		}

		// Act
		rows := analysisRows(reports)

		// Assert
		assert.Equal(t, []analysisRow{
			{Subject: "tutor AB", Period: 1, Status: "KO", Messages: "a; b"},
			{Subject: "group G1", Period: 1, Status: "OK"},
		}, rows)
	})
}
