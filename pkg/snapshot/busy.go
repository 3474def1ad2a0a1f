package snapshot

import (
	"fmt"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

func (snapshot *Snapshot) buildBusy() error {
	snapshot.fixedSlots = make(map[uint64]*model.CourseSlot)
	snapshot.tutorBusy = make(map[model.TutorID][]Busy)
	snapshot.roomBusy = make(map[model.RoomID][]Busy)
	snapshot.groupBusy = make(map[model.GroupID][]Busy)

	for _, fixed := range snapshot.Input.FixedCourses {
		period, ok := snapshot.Period(fixed.Period)
		if !ok {
			continue
		}

		matches := lo.Filter(snapshot.slotsByPeriodType[period.Id][fixed.Type], func(slot *model.CourseSlot, _ int) bool {
			return slot.Weekday() == fixed.Weekday && slot.Start == fixed.Start
		})
		if len(matches) > 1 {
			return model.NewConfigurationError(fmt.Sprintf("fixed course %v", fixed.Id),
				"ambiguous placement, %d slots match %v at %v", len(matches), fixed.Weekday, model.FormatMinutes(fixed.Start))
		}
		if len(matches) == 1 {
			snapshot.fixedSlots[fixed.Id] = matches[0]
		}

		reason := fmt.Sprintf("fixed course %v (%v)", fixed.Id, fixed.Department)
		for _, date := range period.Dates() {
			if date.Weekday() != fixed.Weekday {
				continue
			}
			busy := Busy{Slot: model.Slot{Date: date, Start: fixed.Start, Duration: fixed.Duration}, Reason: reason}
			if fixed.Tutor != nil {
				snapshot.tutorBusy[*fixed.Tutor] = append(snapshot.tutorBusy[*fixed.Tutor], busy)
			}
			if fixed.Room != nil {
				for _, basic := range snapshot.BasicRoomsOf(*fixed.Room) {
					snapshot.roomBusy[basic] = append(snapshot.roomBusy[basic], busy)
				}
			}
			for _, basic := range lo.Uniq(lo.FlatMap(fixed.Groups, func(id model.GroupID, _ int) []model.GroupID { return snapshot.basicOf[id] })) {
				snapshot.groupBusy[basic] = append(snapshot.groupBusy[basic], busy)
			}
		}
	}
	return nil
}

// TutorBusy returns the committed bookings of a tutor overlapping a slot
func (snapshot *Snapshot) TutorBusy(tutor model.TutorID, slot model.Slot) []Busy {
	return overlapping(snapshot.tutorBusy[tutor], slot)
}

// RoomBusy returns the committed bookings of any basic room of a room overlapping a slot
func (snapshot *Snapshot) RoomBusy(room model.RoomID, slot model.Slot) []Busy {
	return lo.FlatMap(snapshot.basicRooms[room], func(basic model.RoomID, _ int) []Busy {
		return overlapping(snapshot.roomBusy[basic], slot)
	})
}

// GroupBusy returns the committed bookings of a basic group overlapping a slot
func (snapshot *Snapshot) GroupBusy(basic model.GroupID, slot model.Slot) []Busy {
	return overlapping(snapshot.groupBusy[basic], slot)
}

// TutorBookings returns every committed booking of a tutor
func (snapshot *Snapshot) TutorBookings(tutor model.TutorID) []Busy {
	return snapshot.tutorBusy[tutor]
}

// GroupBookings returns every committed booking of a basic group
func (snapshot *Snapshot) GroupBookings(basic model.GroupID) []Busy {
	return snapshot.groupBusy[basic]
}

func overlapping(busy []Busy, slot model.Slot) []Busy {
	return lo.Filter(busy, func(busy Busy, _ int) bool { return busy.Slot.Overlaps(slot) })
}
