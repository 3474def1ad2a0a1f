package rules

import (
	"errors"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
)

//** NoTwoCoursesInSameRoom

// NoTwoCoursesInSameRoom keeps every basic room to one course at a time, rooms made of subrooms
// occupying all of them. Unavailable or booked rooms are never used.
type NoTwoCoursesInSameRoom struct {
	Base `mapstructure:",squash"`
}

func (*NoTwoCoursesInSameRoom) Kind() string {
	return KindNoTwoCoursesInSameRoom
}

func (*NoTwoCoursesInSameRoom) Target() Target {
	return RoomTarget
}

func (rule *NoTwoCoursesInSameRoom) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *NoTwoCoursesInSameRoom) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

type roomUse struct {
	course *model.Course
	room   model.RoomID
}

func (rule *NoTwoCoursesInSameRoom) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	basics := lo.Uniq(lo.FlatMap(scope.Rooms, func(room model.RoomID, _ int) []model.RoomID { return snap.BasicRoomsOf(room) }))
	slices.Sort(basics)

	for _, basic := range basics {
		uses := []roomUse{}
		for _, room := range snap.RoomsContaining(basic) {
			for _, course := range snap.CoursesInRoom(scope.Period, room) {
				uses = append(uses, roomUse{course: course, room: room})
			}
		}
		if len(uses) < 2 {
			continue
		}
		for _, instant := range snap.Instants(scope.Period) {
			occupied := milp.LinExpr{}
			for _, use := range uses {
				for _, slot := range snap.CompatibleSlots(use.course) {
					if snapshot.Covers(slot, instant) {
						occupied.AddExpr(c.env.LocatedExpr(slot, use.course, use.room), 1)
					}
				}
			}
			if occupied.Len() > 1 {
				c.atMost(occupied, 1, genericOwner, "room %v at %v", basic, instant)
			}
		}
	}

	hard := c.asHard()
	for _, course := range scope.Courses {
		for _, slot := range snap.CompatibleSlots(course) {
			for _, room := range snap.PossibleRooms(course) {
				if !snap.RoomAvailable(room, slot.Slot) {
					hard.forbid(c.env.LocatedExpr(slot, course, room), nil, "room %v unavailable at %v", room, slot)
				}
			}
		}
	}
}

//** LimitedRoomChoices

// LimitedRoomChoices restricts the courses in scope to a list of rooms
type LimitedRoomChoices struct {
	Base          `mapstructure:",squash"`
	PossibleRooms []model.RoomID
}

func (*LimitedRoomChoices) Kind() string {
	return KindLimitedRoomChoices
}

func (*LimitedRoomChoices) Target() Target {
	return RoomTarget
}

func (rule *LimitedRoomChoices) validate() error {
	if len(rule.PossibleRooms) == 0 {
		return errors.New("PossibleRooms must not be empty")
	}
	return nil
}

func (rule *LimitedRoomChoices) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *LimitedRoomChoices) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *LimitedRoomChoices) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	for _, course := range scope.Courses {
		excluded := lo.Without(snap.PossibleRooms(course), rule.PossibleRooms...)
		for _, slot := range snap.CompatibleSlots(course) {
			for _, room := range excluded {
				c.forbid(c.env.LocatedExpr(slot, course, room), genericOwner, "course %v in room %v", course.Id, room)
			}
		}
	}
}

//** RoomSort

// RoomSort makes the courses in scope use the unpreferred room only when the preferred one is taken
type RoomSort struct {
	Base        `mapstructure:",squash"`
	Preferred   model.RoomID
	Unpreferred model.RoomID
}

func (*RoomSort) Kind() string {
	return KindRoomSort
}

func (*RoomSort) Target() Target {
	return RoomTarget
}

func (rule *RoomSort) validate() error {
	if rule.Preferred == rule.Unpreferred {
		return errors.New("Preferred and Unpreferred rooms must differ")
	}
	return nil
}

func (rule *RoomSort) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *RoomSort) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *RoomSort) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	// Rooms sharing a basic room with the preferred one make it taken
	blocking := lo.Uniq(lo.FlatMap(snap.BasicRoomsOf(rule.Preferred), func(basic model.RoomID, _ int) []model.RoomID {
		return snap.RoomsContaining(basic)
	}))

	for _, course := range scope.Courses {
		possible := snap.PossibleRooms(course)
		if !slices.Contains(possible, rule.Preferred) || !slices.Contains(possible, rule.Unpreferred) {
			continue
		}
		for _, slot := range snap.CompatibleSlots(course) {
			unpreferred := c.env.LocatedExpr(slot, course, rule.Unpreferred)
			if unpreferred.IsConstant() || !snap.RoomAvailable(rule.Preferred, slot.Slot) {
				continue
			}
			if !c.hard() {
				c.cost(genericOwner, unpreferred)
				continue
			}
			taken := milp.LinExpr{}
			for _, room := range blocking {
				for _, other := range snap.CoursesInRoom(scope.Period, room) {
					if other.Id == course.Id {
						continue
					}
					for _, otherSlot := range snap.CompatibleSlots(other) {
						if otherSlot.Overlaps(slot.Slot) {
							taken.AddExpr(c.env.LocatedExpr(otherSlot, other, room), 1)
						}
					}
				}
			}
			c.env.Model.AddConstraint(unpreferred.Minus(taken), milp.LessEqual, 0,
				c.tag("course %v prefers room %v to %v at %v", course.Id, rule.Preferred, rule.Unpreferred, slot))
		}
	}
}

//** NoVisio and VisioOnly

// NoVisio keeps the courses in scope in physical rooms
type NoVisio struct {
	Base `mapstructure:",squash"`
}

func (*NoVisio) Kind() string {
	return KindNoVisio
}

func (*NoVisio) Target() Target {
	return RoomTarget
}

func (rule *NoVisio) HardConstraints(env *ttmodel.Env, scope Scope) {
	visio(hardContribution(env, rule, scope), scope, func(room model.RoomID) bool { return room == snapshot.NoRoom })
}

func (rule *NoVisio) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	visio(softContribution(env, rule, scope, weight), scope, func(room model.RoomID) bool { return room == snapshot.NoRoom })
}

// VisioOnly keeps the courses in scope out of physical rooms
type VisioOnly struct {
	Base `mapstructure:",squash"`
}

func (*VisioOnly) Kind() string {
	return KindVisioOnly
}

func (*VisioOnly) Target() Target {
	return RoomTarget
}

func (rule *VisioOnly) HardConstraints(env *ttmodel.Env, scope Scope) {
	if !env.Snapshot.Options.Visio {
		warn(env, rule, "visio is disabled, rule ignored")
		return
	}
	visio(hardContribution(env, rule, scope), scope, func(room model.RoomID) bool { return room != snapshot.NoRoom })
}

func (rule *VisioOnly) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	if !env.Snapshot.Options.Visio {
		warn(env, rule, "visio is disabled, rule ignored")
		return
	}
	visio(softContribution(env, rule, scope, weight), scope, func(room model.RoomID) bool { return room != snapshot.NoRoom })
}

func visio(c contribution, scope Scope, excluded func(model.RoomID) bool) {
	snap := c.env.Snapshot
	for _, course := range scope.Courses {
		for _, slot := range snap.CompatibleSlots(course) {
			for _, room := range snap.PossibleRooms(course) {
				if excluded(room) {
					c.forbid(c.env.LocatedExpr(slot, course, room), genericOwner, "course %v in room %v", course.Id, room)
				}
			}
		}
	}
}
