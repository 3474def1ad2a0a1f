// Package feasibility flags probably infeasible subjects (tutors and basic groups) before any solve,
// by comparing the time they must spend in courses with the time they have.
package feasibility

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/partition"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/rules"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

type Status int

const (
	OK Status = iota
	KO
)

func (status Status) String() string {
	if status == KO {
		return "KO"
	}
	return "OK"
}

// Report is the outcome of the analysis of one subject on one period
type Report struct {
	Subject  string
	Period   model.PeriodID
	Status   Status
	Messages []string
}

func (report *Report) fail(format string, args ...any) {
	report.Status = KO
	report.Messages = append(report.Messages, fmt.Sprintf(format, args...))
}

type Options struct {
	ConsiderPreferences bool // Undesired tutor slots count as unavailable
}

type analyzer struct {
	snap    *snapshot.Snapshot
	catalog *rules.Catalog
	options Options
}

// Analyze checks every tutor and basic group of the snapshot's periods. It never fails: the reports are advisory.
func Analyze(snap *snapshot.Snapshot, catalog *rules.Catalog, options Options) []Report {
	a := analyzer{snap: snap, catalog: catalog, options: options}
	reports := []Report{}
	for _, period := range snap.Periods {
		if len(period.Dates()) == 0 {
			continue
		}
		for _, tutor := range snap.Tutors() {
			if report, ok := a.tutor(period, tutor); ok {
				reports = append(reports, report)
			}
		}
		for _, basic := range snap.BasicGroups() {
			if report, ok := a.group(period, basic); ok {
				reports = append(reports, report)
			}
		}
	}
	failed := lo.CountBy(reports, func(report Report) bool { return report.Status == KO })
	glog.Infof("pre-analysis of %d subjects: %d KO", len(reports), failed)
	return reports
}

// Failed keeps the KO reports
func Failed(reports []Report) []Report {
	return lo.Filter(reports, func(report Report, _ int) bool { return report.Status == KO })
}

//** Subjects

func (a analyzer) tutor(period model.Period, id model.TutorID) (Report, bool) {
	courses := a.snap.RequiredCoursesOfTutor(period.Id, id)
	if len(courses) == 0 {
		return Report{}, false
	}
	name := fmt.Sprintf("tutor %v", id)
	if tutor, ok := a.snap.Tutor(id); ok && tutor.Username != "" {
		name = fmt.Sprintf("tutor %v", tutor.Username)
	}

	timeline := a.timeline(period, rules.Subject{Tutor: &id})
	for _, busy := range a.snap.TutorBookings(id) {
		timeline.Forbid(interval(busy.Slot), busy.Reason)
	}
	if tutor, ok := a.snap.Tutor(id); ok {
		for _, availability := range tutor.Availabilities {
			switch {
			case availability.Value == 0:
				timeline.Forbid(interval(availability.Slot()), "unavailable")
			case a.options.ConsiderPreferences && snapshot.Undesired(availability.Value):
				timeline.Forbid(interval(availability.Slot()), "undesired")
			}
		}
	}
	return a.check(name, period, timeline, courses), true
}

func (a analyzer) group(period model.Period, basic model.GroupID) (Report, bool) {
	courses := a.snap.StructuralCoursesOf(period.Id, basic)
	// Transversal groups may run in parallel: only the busiest one surely adds up
	transversal := lo.Map(a.snap.TransversalGroupsOf(basic), func(id model.GroupID, _ int) []*model.Course {
		return a.snap.GroupCourses(period.Id, id)
	})
	if busiest := lo.MaxBy(transversal, func(x, y []*model.Course) bool { return a.minutes(x) > a.minutes(y) }); len(busiest) > 0 {
		courses = append(slices.Clone(courses), busiest...)
	}
	if len(courses) == 0 {
		return Report{}, false
	}
	name := fmt.Sprintf("group %v", basic)
	if group, ok := a.snap.Group(basic); ok && group.Name != "" {
		name = fmt.Sprintf("group %v", group.Name)
	}

	timeline := a.timeline(period, rules.Subject{Group: &basic})
	for _, busy := range a.snap.GroupBookings(basic) {
		timeline.Forbid(interval(busy.Slot), busy.Reason)
	}
	return a.check(name, period, timeline, courses), true
}

// timeline is the period's partition with closed hours, holidays and hard rules' unavailabilities forbidden
func (a analyzer) timeline(period model.Period, subject rules.Subject) *partition.Partition {
	settings := a.snap.Settings
	dates := period.Dates()
	timeline := partition.New(partition.Interval{Start: dates[0], End: dates[len(dates)-1].AddDate(0, 0, 1)})

	working := a.snap.WorkingDates(period.Id)
	for _, date := range dates {
		day := partition.Interval{Start: date, End: date.AddDate(0, 0, 1)}
		switch {
		case a.snap.IsHoliday(date):
			timeline.Forbid(day, "holiday")
		case !slices.ContainsFunc(working, date.Equal):
			timeline.Forbid(day, "closed")
		default:
			timeline.Forbid(between(date, 0, settings.DayStart), "closed")
			timeline.Forbid(between(date, settings.LunchStart, settings.LunchFinish), "lunch")
			timeline.Forbid(between(date, settings.DayFinish, 24*60), "closed")
		}
	}

	for _, rule := range a.catalog.Rules() {
		unavailable, ok := rule.(rules.Unavailable)
		if !ok || !rule.Info().IsHard() || !rule.Info().AppliesTo(period.Id) {
			continue
		}
		reason := fmt.Sprintf("%v[%v]", rule.Kind(), rule.Info().Id)
		for _, slot := range unavailable.Unavailabilities(a.snap, subject, period.Id) {
			timeline.Forbid(interval(slot), reason)
		}
	}
	timeline.Compact()
	return timeline
}

//** Checks

type shape struct {
	duration int
	starts   string
}

func (a analyzer) minutes(courses []*model.Course) int {
	return lo.SumBy(courses, a.snap.Duration)
}

func (a analyzer) check(subject string, period model.Period, timeline *partition.Partition, courses []*model.Course) Report {
	report := Report{Subject: subject, Period: period.Id, Status: OK}

	required := time.Duration(a.minutes(courses)) * time.Minute
	if free := timeline.FreeDuration(); required > free {
		report.fail("%v must be in courses for %v on %v but only %v are free", subject, formatDuration(required), period.Name, formatDuration(free))
	}

	// Courses of the same duration and allowed starts compete for the same slots
	buckets := lo.GroupBy(courses, func(course *model.Course) shape {
		return shape{duration: a.snap.Duration(course), starts: fmt.Sprint(a.snap.AllowedStarts(course.Type))}
	})
	shapes := lo.Keys(buckets)
	slices.SortFunc(shapes, func(x, y shape) int { return cmp.Or(cmp.Compare(x.duration, y.duration), strings.Compare(x.starts, y.starts)) })
	for _, key := range shapes {
		bucket := buckets[key]
		starts := a.snap.AllowedStarts(bucket[0].Type)
		available := timeline.CountPlacements(time.Duration(key.duration)*time.Minute, starts)
		if available < len(bucket) {
			report.fail("%v has %d courses of %v starting at %v on %v but only %d such slots are free",
				subject, len(bucket), formatDuration(time.Duration(key.duration)*time.Minute), formatStarts(starts), period.Name, available)
		}
	}

	// Cheaper bound over every course at once
	shortest := lo.Min(lo.Map(courses, func(course *model.Course, _ int) int { return a.snap.Duration(course) }))
	starts := lo.Uniq(lo.FlatMap(courses, func(course *model.Course, _ int) []int { return a.snap.AllowedStarts(course.Type) }))
	if available := timeline.CountPlacements(time.Duration(shortest)*time.Minute, starts); available < len(courses) {
		report.fail("%v has %d courses on %v but at most %d of them fit in the free time", subject, len(courses), period.Name, available)
	}

	if report.Status == KO {
		glog.Warningf("pre-analysis KO for %v on %v: %v", subject, period.Name, strings.Join(report.Messages, "; "))
	}
	return report
}

//** Helpers

func interval(slot model.Slot) partition.Interval {
	return partition.Interval{Start: slot.StartTime(), End: slot.EndTime()}
}

func between(date time.Time, start, end int) partition.Interval {
	return interval(model.Slot{Date: date, Start: start, Duration: end - start})
}

func formatDuration(duration time.Duration) string {
	return fmt.Sprintf("%dh%02d", int(duration.Hours()), int(duration.Minutes())%60)
}

func formatStarts(starts []int) string {
	return strings.Join(lo.Map(starts, func(start int, _ int) string { return model.FormatMinutes(start) }), ", ")
}
