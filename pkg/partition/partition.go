package partition

import (
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/samber/lo"
)

// Interval is the half-open time range [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

func (interval Interval) Duration() time.Duration {
	return interval.End.Sub(interval.Start)
}

func (interval Interval) IsEmpty() bool {
	return !interval.Start.Before(interval.End)
}

func (interval Interval) Contains(other Interval) bool {
	return !other.Start.Before(interval.Start) && !other.End.After(interval.End)
}

func (interval Interval) String() string {
	return fmt.Sprintf("[%v, %v)", interval.Start.Format("2006-01-02 15:04"), interval.End.Format("2006-01-02 15:04"))
}

type Attributes struct {
	Forbidden bool
	Reasons   []string // Why the interval is forbidden, sorted and without duplicates
}

func (attributes Attributes) merge(other Attributes) Attributes {
	reasons := lo.Uniq(append(slices.Clone(attributes.Reasons), other.Reasons...))
	slices.Sort(reasons)
	return Attributes{Forbidden: attributes.Forbidden || other.Forbidden, Reasons: reasons}
}

func (attributes Attributes) equal(other Attributes) bool {
	return attributes.Forbidden == other.Forbidden && slices.Equal(attributes.Reasons, other.Reasons)
}

type Entry struct {
	Interval
	Attributes
}

// Partition splits a timeline into contiguous entries sorted by start. Adding an interval splits
// the entries at its bounds and merges its attributes into every entry it covers.
type Partition struct {
	entries []Entry
}

// New returns a partition made of a single free entry spanning the given interval
func New(interval Interval) *Partition {
	if interval.IsEmpty() {
		log.Panicf("cannot partition the empty interval %v", interval)
	}
	return &Partition{entries: []Entry{{Interval: interval}}}
}

func (partition *Partition) Entries() []Entry {
	return partition.entries
}

func (partition *Partition) Span() Interval {
	return Interval{Start: partition.entries[0].Start, End: partition.entries[len(partition.entries)-1].End}
}

// split makes sure an entry boundary exists at t
func (partition *Partition) split(t time.Time) {
	index, found := slices.BinarySearchFunc(partition.entries, t, func(entry Entry, t time.Time) int {
		switch {
		case !entry.End.After(t):
			return -1
		case entry.Start.After(t):
			return 1
		}
		return 0
	})
	if !found || partition.entries[index].Start.Equal(t) {
		return
	}
	entry := partition.entries[index]
	left, right := entry, entry
	left.End, right.Start = t, t
	left.Reasons, right.Reasons = slices.Clone(entry.Reasons), slices.Clone(entry.Reasons)
	partition.entries = slices.Replace(partition.entries, index, index+1, left, right)
}

// Add merges attributes into the part of the interval that lies within the partition
func (partition *Partition) Add(interval Interval, attributes Attributes) {
	span := partition.Span()
	interval.Start = lo.Latest(interval.Start, span.Start)
	interval.End = lo.Earliest(interval.End, span.End)
	if interval.IsEmpty() {
		return
	}
	partition.split(interval.Start)
	partition.split(interval.End)
	for i, entry := range partition.entries {
		if interval.Contains(entry.Interval) {
			partition.entries[i].Attributes = entry.Attributes.merge(attributes)
		}
	}
}

// Forbid is a shorthand adding a forbidding attribute with the given reason
func (partition *Partition) Forbid(interval Interval, reason string) {
	partition.Add(interval, Attributes{Forbidden: true, Reasons: []string{reason}})
}

// Compact merges adjacent entries holding equal attributes
func (partition *Partition) Compact() {
	compacted := []Entry{partition.entries[0]}
	for _, entry := range partition.entries[1:] {
		last := &compacted[len(compacted)-1]
		if last.Attributes.equal(entry.Attributes) {
			last.End = entry.End
			continue
		}
		compacted = append(compacted, entry)
	}
	partition.entries = compacted
}

// Free returns the maximal non-forbidden intervals, sorted
func (partition *Partition) Free() []Interval {
	free := []Interval{}
	for _, entry := range partition.entries {
		if entry.Forbidden {
			continue
		}
		if n := len(free); n > 0 && free[n-1].End.Equal(entry.Start) {
			free[n-1].End = entry.End
			continue
		}
		free = append(free, entry.Interval)
	}
	return free
}

func (partition *Partition) FreeDuration() time.Duration {
	return lo.SumBy(partition.Free(), func(interval Interval) time.Duration { return interval.Duration() })
}

// CountPlacements greedily counts how many pairwise disjoint intervals of the given duration fit in the
// free time, when each must start at one of the given minutes of the day
func (partition *Partition) CountPlacements(duration time.Duration, startMinutes []int) int {
	starts := slices.Clone(startMinutes)
	slices.Sort(starts)
	starts = slices.Compact(starts)

	count := 0
	for _, free := range partition.Free() {
		cursor := free.Start
		for day := dateOf(free.Start); day.Before(free.End); day = day.AddDate(0, 0, 1) {
			for _, minute := range starts {
				start := day.Add(time.Duration(minute) * time.Minute)
				if start.Before(cursor) {
					continue
				}
				if end := start.Add(duration); !end.After(free.End) {
					count++
					cursor = end
				}
			}
		}
	}
	return count
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
