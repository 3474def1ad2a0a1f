package snapshot

import (
	"fmt"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

type rooms struct {
	roomById     map[model.RoomID]*model.Room
	roomTypes    map[model.RoomTypeID]model.RoomType
	basicRooms   map[model.RoomID][]model.RoomID // Rooms without subrooms a room is made of
	containing   map[model.RoomID][]model.RoomID // Rooms made of a basic room, itself included
	allBasic     []model.RoomID
	roomsOfTypes map[model.RoomID][]model.RoomTypeID
}

func (snapshot *Snapshot) buildRooms() error {
	snapshot.roomById = make(map[model.RoomID]*model.Room)
	for i := range snapshot.Input.Rooms {
		room := &snapshot.Input.Rooms[i]
		if room.Id == NoRoom {
			return model.NewConfigurationError(fmt.Sprintf("room %v", room.Name), "room identifier %v is reserved", NoRoom)
		}
		snapshot.roomById[room.Id] = room
	}
	snapshot.roomTypes = lo.KeyBy(snapshot.Input.RoomTypes, func(roomType model.RoomType) model.RoomTypeID { return roomType.Id })

	snapshot.basicRooms = make(map[model.RoomID][]model.RoomID)
	snapshot.containing = make(map[model.RoomID][]model.RoomID)
	for id := range snapshot.roomById {
		basics, err := snapshot.collectBasicRooms(id, map[model.RoomID]bool{})
		if err != nil {
			return err
		}
		basics = lo.Uniq(basics)
		slices.Sort(basics)
		snapshot.basicRooms[id] = basics
		for _, basic := range basics {
			snapshot.containing[basic] = append(snapshot.containing[basic], id)
		}
	}
	for basic := range snapshot.containing {
		slices.Sort(snapshot.containing[basic])
		snapshot.allBasic = append(snapshot.allBasic, basic)
	}
	slices.Sort(snapshot.allBasic)

	snapshot.roomsOfTypes = make(map[model.RoomID][]model.RoomTypeID)
	for _, roomType := range snapshot.Input.RoomTypes {
		for _, member := range roomType.Members {
			if _, ok := snapshot.roomById[member]; !ok {
				return model.NewConfigurationError(fmt.Sprintf("room type %v", roomType.Name), "unknown member room %v", member)
			}
			snapshot.roomsOfTypes[member] = append(snapshot.roomsOfTypes[member], roomType.Id)
		}
	}
	return nil
}

func (snapshot *Snapshot) collectBasicRooms(id model.RoomID, visiting map[model.RoomID]bool) ([]model.RoomID, error) {
	room, ok := snapshot.roomById[id]
	if !ok {
		return nil, model.NewConfigurationError(fmt.Sprintf("room %v", id), "unknown room")
	}
	if visiting[id] {
		return nil, model.NewConfigurationError(fmt.Sprintf("room %v", room.Name), "cyclic room containment")
	}
	if len(room.Subrooms) == 0 {
		return []model.RoomID{id}, nil
	}
	visiting[id] = true
	defer delete(visiting, id)

	result := []model.RoomID{}
	for _, subroom := range room.Subrooms {
		basics, err := snapshot.collectBasicRooms(subroom, visiting)
		if err != nil {
			return nil, err
		}
		result = append(result, basics...)
	}
	return result, nil
}

func (snapshot *Snapshot) buildPossibleRooms() error {
	snapshot.possibleRooms = make(map[model.CourseID][]model.RoomID)
	for _, course := range snapshot.courses {
		var possible []model.RoomID
		switch {
		case course.Room != nil:
			if _, ok := snapshot.roomById[*course.Room]; !ok {
				return model.NewConfigurationError(fmt.Sprintf("course %v", course.Id), "unknown room %v", *course.Room)
			}
			possible = []model.RoomID{*course.Room}
		case course.RoomType != nil:
			roomType, ok := snapshot.roomTypes[*course.RoomType]
			if !ok {
				return model.NewConfigurationError(fmt.Sprintf("course %v", course.Id), "unknown room type %v", *course.RoomType)
			}
			possible = lo.Uniq(roomType.Members)
			slices.Sort(possible)
			if snapshot.Options.Visio {
				possible = append([]model.RoomID{NoRoom}, possible...)
			}
		default:
			continue // No room needed
		}
		snapshot.possibleRooms[course.Id] = possible
	}
	return nil
}

// NeedsRoom checks whether a course must be located
func (snapshot *Snapshot) NeedsRoom(course *model.Course) bool {
	return len(snapshot.possibleRooms[course.Id]) > 0
}

// PossibleRooms returns the rooms a course may be located in, NoRoom first when visio is enabled
func (snapshot *Snapshot) PossibleRooms(course *model.Course) []model.RoomID {
	return snapshot.possibleRooms[course.Id]
}

func (snapshot *Snapshot) Room(id model.RoomID) (*model.Room, bool) {
	room, ok := snapshot.roomById[id]
	return room, ok
}

func (snapshot *Snapshot) RoomTypesOf(room model.RoomID) []model.RoomTypeID {
	return snapshot.roomsOfTypes[room]
}

// BasicRooms returns every room without subrooms, sorted
func (snapshot *Snapshot) BasicRooms() []model.RoomID {
	return snapshot.allBasic
}

// BasicRoomsOf returns the basic rooms a room is made of, itself when it has no subrooms
func (snapshot *Snapshot) BasicRoomsOf(room model.RoomID) []model.RoomID {
	return snapshot.basicRooms[room]
}

// RoomsContaining returns every room a basic room is part of, itself included
func (snapshot *Snapshot) RoomsContaining(basic model.RoomID) []model.RoomID {
	return snapshot.containing[basic]
}

// CoursesInRoom returns the courses of a period that may be located in a room
func (snapshot *Snapshot) CoursesInRoom(period model.PeriodID, room model.RoomID) []*model.Course {
	return lo.Filter(snapshot.coursesByPer[period], func(course *model.Course, _ int) bool {
		return slices.Contains(snapshot.possibleRooms[course.Id], room)
	})
}

// RoomAvailable checks that neither the room nor any of its basic rooms is declared unavailable or busy
func (snapshot *Snapshot) RoomAvailable(room model.RoomID, slot model.Slot) bool {
	if room == NoRoom {
		return true
	}
	for _, basic := range snapshot.basicRooms[room] {
		if lo.SomeBy(snapshot.roomBusy[basic], func(busy Busy) bool { return busy.Slot.Overlaps(slot) }) {
			return false
		}
	}
	for _, id := range append([]model.RoomID{room}, snapshot.basicRooms[room]...) {
		for _, unavailability := range snapshot.roomById[id].Unavailabilities {
			if unavailability.Value == 0 && unavailability.Slot().Overlaps(slot) {
				return false
			}
		}
	}
	return true
}
