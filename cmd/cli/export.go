package main

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/feasibility"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/gocarina/gocsv"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

type scheduleRow struct {
	Period   model.PeriodID `csv:"period"`
	Version  int            `csv:"version"`
	Course   model.CourseID `csv:"course"`
	Date     string         `csv:"date"`
	Start    string         `csv:"start"`
	Duration int            `csv:"duration"`
	Tutor    string         `csv:"tutor"`
	Room     string         `csv:"room"`
}

type analysisRow struct {
	Subject  string         `csv:"subject"`
	Period   model.PeriodID `csv:"period"`
	Status   string         `csv:"status"`
	Messages string         `csv:"messages"`
}

func scheduleRows(schedules map[model.PeriodID][]model.ScheduledCourse) []scheduleRow {
	periods := lo.Keys(schedules)
	slices.Sort(periods)
	rows := make([]scheduleRow, 0)
	for _, period := range periods {
		for _, scheduled := range schedules[period] {
			rows = append(rows, scheduleRow{
				Period:   scheduled.Period,
				Version:  scheduled.Version,
				Course:   scheduled.Course,
				Date:     scheduled.Date.Format(model.DateLayout),
				Start:    model.FormatMinutes(scheduled.Start),
				Duration: scheduled.Duration,
				Tutor:    optional(scheduled.Tutor),
				Room:     optional(scheduled.Room),
			})
		}
	}
	return rows
}

func analysisRows(reports []feasibility.Report) []analysisRow {
	return lo.Map(reports, func(report feasibility.Report, _ int) analysisRow {
		return analysisRow{
			Subject:  report.Subject,
			Period:   report.Period,
			Status:   report.Status.String(),
			Messages: strings.Join(report.Messages, "; "),
		}
	})
}

func optional[T ~uint64](id *T) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func exportSchedules(prefix string, schedules map[model.PeriodID][]model.ScheduledCourse) {
	rows := scheduleRows(schedules)
	writeCsv(prefix+"_schedule.csv", &rows)
}

func exportAnalysis(prefix string, reports []feasibility.Report) {
	rows := analysisRows(reports)
	writeCsv(prefix+"_analysis.csv", &rows)
}

func writeCsv(name string, rows any) {
	file, err := os.Create(name)
	if err != nil {
		glog.Exitf("cannot create CSV file: %v", err)
	}
	defer file.Close()
	if err := gocsv.MarshalFile(rows, file); err != nil {
		glog.Exitf("cannot write CSV file %v: %v", name, err)
	}
}
