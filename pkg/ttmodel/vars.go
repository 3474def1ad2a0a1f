package ttmodel

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/samber/lo"
)

type SchedKey struct {
	Slot   int // Course slot index
	Course model.CourseID
}

type AssignKey struct {
	Slot   int
	Course model.CourseID
	Tutor  model.TutorID
}

type LocateKey struct {
	Slot   int
	Course model.CourseID
	Room   model.RoomID
}

// Vars holds the decision variables. A variable only exists for a compatible combination.
type Vars struct {
	sched    map[SchedKey]milp.Var
	assigned map[AssignKey]milp.Var
	located  map[LocateKey]milp.Var

	// Tutors and rooms of each (slot, course), for the link constraints and decoding
	tutorsOf map[SchedKey][]model.TutorID
	roomsOf  map[SchedKey][]model.RoomID
}

func newVars() *Vars {
	return &Vars{
		sched:    make(map[SchedKey]milp.Var),
		assigned: make(map[AssignKey]milp.Var),
		located:  make(map[LocateKey]milp.Var),
		tutorsOf: make(map[SchedKey][]model.TutorID),
		roomsOf:  make(map[SchedKey][]model.RoomID),
	}
}

func (vars *Vars) newSched(m *milp.Model, slot *model.CourseSlot, course model.CourseID) milp.Var {
	key := SchedKey{Slot: slot.Index, Course: course}
	v := m.NewBool(fmt.Sprintf("sched(%v,%v)", slot, course))
	vars.sched[key] = v
	return v
}

func (vars *Vars) newAssigned(m *milp.Model, slot *model.CourseSlot, course model.CourseID, tutor model.TutorID) milp.Var {
	key := SchedKey{Slot: slot.Index, Course: course}
	v := m.NewBool(fmt.Sprintf("assigned(%v,%v,%v)", slot, course, tutor))
	vars.assigned[AssignKey{Slot: slot.Index, Course: course, Tutor: tutor}] = v
	vars.tutorsOf[key] = append(vars.tutorsOf[key], tutor)
	return v
}

func (vars *Vars) newLocated(m *milp.Model, slot *model.CourseSlot, course model.CourseID, room model.RoomID) milp.Var {
	key := SchedKey{Slot: slot.Index, Course: course}
	v := m.NewBool(fmt.Sprintf("located(%v,%v,%v)", slot, course, room))
	vars.located[LocateKey{Slot: slot.Index, Course: course, Room: room}] = v
	vars.roomsOf[key] = append(vars.roomsOf[key], room)
	return v
}

func (vars *Vars) Sched(slot int, course model.CourseID) (milp.Var, bool) {
	v, ok := vars.sched[SchedKey{Slot: slot, Course: course}]
	return v, ok
}

func (vars *Vars) Assigned(slot int, course model.CourseID, tutor model.TutorID) (milp.Var, bool) {
	v, ok := vars.assigned[AssignKey{Slot: slot, Course: course, Tutor: tutor}]
	return v, ok
}

func (vars *Vars) Located(slot int, course model.CourseID, room model.RoomID) (milp.Var, bool) {
	v, ok := vars.located[LocateKey{Slot: slot, Course: course, Room: room}]
	return v, ok
}

// TutorsOf returns the tutors holding an assigned variable for (slot, course)
func (vars *Vars) TutorsOf(slot int, course model.CourseID) []model.TutorID {
	return vars.tutorsOf[SchedKey{Slot: slot, Course: course}]
}

// RoomsOf returns the rooms holding a located variable for (slot, course)
func (vars *Vars) RoomsOf(slot int, course model.CourseID) []model.RoomID {
	return vars.roomsOf[SchedKey{Slot: slot, Course: course}]
}

func (vars *Vars) NumSched() int {
	return len(vars.sched)
}

func (vars *Vars) NumAssigned() int {
	return len(vars.assigned)
}

func (vars *Vars) NumLocated() int {
	return len(vars.located)
}

// SchedKeys returns every (slot, course) holding a sched variable, sorted by course then slot
func (vars *Vars) SchedKeys() []SchedKey {
	keys := lo.Keys(vars.sched)
	slices.SortFunc(keys, func(a, b SchedKey) int {
		return cmp.Or(cmp.Compare(a.Course, b.Course), cmp.Compare(a.Slot, b.Slot))
	})
	return keys
}

// LocateKeys returns every (slot, course, room) holding a located variable, sorted
func (vars *Vars) LocateKeys() []LocateKey {
	keys := lo.Keys(vars.located)
	slices.SortFunc(keys, func(a, b LocateKey) int {
		return cmp.Or(cmp.Compare(a.Course, b.Course), cmp.Compare(a.Slot, b.Slot), cmp.Compare(a.Room, b.Room))
	})
	return keys
}
