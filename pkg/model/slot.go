package model

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateOf truncates a time to its civil date, in UTC
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Slot is a time interval of a given date. It is a value object: never mutated once created.
type Slot struct {
	Date     time.Time
	Start    int // Minutes since midnight
	Duration int // Minutes
}

func (slot Slot) End() int {
	return slot.Start + slot.Duration
}

func (slot Slot) SameDate(other Slot) bool {
	return slot.Date.Equal(other.Date)
}

func (slot Slot) Overlaps(other Slot) bool {
	return slot.SameDate(other) && slot.Start < other.End() && other.Start < slot.End()
}

// Covers checks whether the instant (date, minute) lies within [Start, End)
func (slot Slot) Covers(date time.Time, minute int) bool {
	return slot.Date.Equal(date) && slot.Start <= minute && minute < slot.End()
}

// Intersection length in minutes
func (slot Slot) Intersection(other Slot) int {
	if !slot.Overlaps(other) {
		return 0
	}
	return min(slot.End(), other.End()) - max(slot.Start, other.Start)
}

func (slot Slot) Weekday() time.Weekday {
	return slot.Date.Weekday()
}

// Before checks whether the slot ends before (or when) the other starts
func (slot Slot) Before(other Slot) bool {
	if !slot.SameDate(other) {
		return slot.Date.Before(other.Date)
	}
	return slot.End() <= other.Start
}

func (slot Slot) StartTime() time.Time {
	return slot.Date.Add(time.Duration(slot.Start) * time.Minute)
}

func (slot Slot) EndTime() time.Time {
	return slot.Date.Add(time.Duration(slot.End()) * time.Minute)
}

func (slot Slot) String() string {
	return fmt.Sprintf("%v %v-%v", slot.Date.Format(DateLayout), FormatMinutes(slot.Start), FormatMinutes(slot.End()))
}

// CourseSlot is a candidate (start, duration) placement for the courses of a course type.
type CourseSlot struct {
	Slot
	Index      int // Position within the snapshot's course slots
	Period     PeriodID
	CourseType CourseTypeID
}

func (slot *CourseSlot) String() string {
	return fmt.Sprintf("%v(type %v)", slot.Slot.String(), slot.CourseType)
}

func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DaysBetween counts calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
