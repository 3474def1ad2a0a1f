package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

func (snapshot *Snapshot) buildSlots() error {
	snapshot.allowedStarts = make(map[int][]int)
	for _, rule := range snapshot.Input.StartTimeRules {
		if rule.Department != "" && rule.Department != snapshot.Input.Department.Abbrev {
			continue
		}
		starts := append(snapshot.allowedStarts[rule.Duration], rule.AllowedStartTimes...)
		slices.Sort(starts)
		snapshot.allowedStarts[rule.Duration] = slices.Compact(starts)
	}

	snapshot.slotsByPeriodType = make(map[model.PeriodID]map[model.CourseTypeID][]*model.CourseSlot)
	snapshot.slotsByPeriod = make(map[model.PeriodID][]*model.CourseSlot)
	snapshot.instants = make(map[model.PeriodID][]Instant)
	snapshot.slotsByDate = make(map[time.Time][]*model.CourseSlot)

	// Slots are only generated for the course types in use. Fixed courses of a type without any
	// start time rule are still busy, they just cannot be matched to a slot.
	required := lo.Uniq(lo.Map(snapshot.courses, func(course *model.Course, _ int) model.CourseTypeID { return course.Type }))
	courseTypes := lo.Uniq(append(slices.Clone(required), lo.FilterMap(snapshot.Input.FixedCourses, func(fixed model.FixedCourse, _ int) (model.CourseTypeID, bool) {
		courseType, ok := snapshot.courseTypes[fixed.Type]
		if !ok {
			return 0, false
		}
		_, declared := snapshot.allowedStarts[courseType.Duration]
		return fixed.Type, declared
	})...))
	slices.Sort(courseTypes)

	for _, period := range snapshot.Periods {
		snapshot.slotsByPeriodType[period.Id] = make(map[model.CourseTypeID][]*model.CourseSlot)
		for _, typeId := range courseTypes {
			courseType := snapshot.courseTypes[typeId]
			starts, err := snapshot.StartTimes(courseType.Duration)
			if err != nil {
				return err
			}
			for _, date := range snapshot.workingDates[period.Id] {
				for _, start := range starts {
					if start < snapshot.Settings.DayStart || start+courseType.Duration > snapshot.Settings.DayFinish {
						continue
					}
					slot := &model.CourseSlot{
						Slot:       model.Slot{Date: date, Start: start, Duration: courseType.Duration},
						Index:      len(snapshot.slots),
						Period:     period.Id,
						CourseType: typeId,
					}
					snapshot.slots = append(snapshot.slots, slot)
					snapshot.slotsByPeriodType[period.Id][typeId] = append(snapshot.slotsByPeriodType[period.Id][typeId], slot)
					snapshot.slotsByPeriod[period.Id] = append(snapshot.slotsByPeriod[period.Id], slot)
					snapshot.slotsByDate[date] = append(snapshot.slotsByDate[date], slot)
				}
			}
		}

		instants := lo.Uniq(lo.Map(snapshot.slotsByPeriod[period.Id], func(slot *model.CourseSlot, _ int) Instant {
			return Instant{Date: slot.Date, Minute: slot.Start}
		}))
		slices.SortFunc(instants, compareInstants)
		snapshot.instants[period.Id] = instants
	}
	return nil
}

func compareInstants(a, b Instant) int {
	return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.Minute, b.Minute))
}

// StartTimes returns the allowed start times of the courses of a duration. It fails when no rule was declared.
func (snapshot *Snapshot) StartTimes(duration int) ([]int, error) {
	declared, ok := snapshot.allowedStarts[duration]
	if !ok {
		return nil, model.NewConfigurationError(fmt.Sprintf("duration %v", duration), "no allowed start time rule for %v", snapshot.Input.Department.Abbrev)
	}
	step := snapshot.Options.SlotStep
	if step <= 0 {
		return declared, nil
	}
	starts := []int{}
	for start := snapshot.Settings.DayStart; start+duration <= snapshot.Settings.DayFinish; start += step {
		starts = append(starts, start)
	}
	return starts, nil
}

// AllowedStarts returns the start times of a course type, empty when none is declared
func (snapshot *Snapshot) AllowedStarts(courseType model.CourseTypeID) []int {
	starts, _ := snapshot.StartTimes(snapshot.courseTypes[courseType].Duration)
	return starts
}

// Slots returns every course slot, indexed by CourseSlot.Index
func (snapshot *Snapshot) Slots() []*model.CourseSlot {
	return snapshot.slots
}

func (snapshot *Snapshot) SlotsOf(period model.PeriodID) []*model.CourseSlot {
	return snapshot.slotsByPeriod[period]
}

// CompatibleSlots returns the slots a course may be scheduled at: its type's slots within its period
func (snapshot *Snapshot) CompatibleSlots(course *model.Course) []*model.CourseSlot {
	return snapshot.slotsByPeriodType[course.Period][course.Type]
}

// Instants returns the distinct course slot starts of a period, sorted
func (snapshot *Snapshot) Instants(period model.PeriodID) []Instant {
	return snapshot.instants[period]
}

// Covers checks whether a slot is running at an instant
func Covers(slot *model.CourseSlot, instant Instant) bool {
	return slot.Covers(instant.Date, instant.Minute)
}

// SlotsOnDate returns the slots of a date
func (snapshot *Snapshot) SlotsOnDate(date time.Time) []*model.CourseSlot {
	return snapshot.slotsByDate[model.DateOf(date)]
}

// SlotsCovering returns the slots running at an instant
func (snapshot *Snapshot) SlotsCovering(instant Instant) []*model.CourseSlot {
	return lo.Filter(snapshot.slotsByDate[instant.Date], func(slot *model.CourseSlot, _ int) bool {
		return Covers(slot, instant)
	})
}

// OverlappingSlots returns the slots overlapping a time interval
func (snapshot *Snapshot) OverlappingSlots(slot model.Slot) []*model.CourseSlot {
	return lo.Filter(snapshot.slotsByDate[slot.Date], func(other *model.CourseSlot, _ int) bool {
		return other.Overlaps(slot)
	})
}

// HalfDayOf returns the half-day a slot belongs to
func (snapshot *Snapshot) HalfDayOf(slot *model.CourseSlot) model.HalfDay {
	return snapshot.Settings.HalfDayOf(slot.Start)
}

// FixedSlot returns the course slot a fixed course was matched to
func (snapshot *Snapshot) FixedSlot(fixed uint64) (*model.CourseSlot, bool) {
	slot, ok := snapshot.fixedSlots[fixed]
	return slot, ok
}
