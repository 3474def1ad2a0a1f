package rules

import (
	"math"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/samber/lo"
)

//** ConsiderTutorsUnavailability

// ConsiderTutorsUnavailability keeps tutors in one course at a time and out of their unavailable or
// already booked slots. It is always hard.
type ConsiderTutorsUnavailability struct {
	Base `mapstructure:",squash"`
}

func (*ConsiderTutorsUnavailability) Kind() string {
	return KindConsiderTutorsUnavailability
}

func (rule *ConsiderTutorsUnavailability) HardConstraints(env *ttmodel.Env, scope Scope) {
	c := hardContribution(env, rule, scope)
	snap := env.Snapshot
	for _, tutor := range scope.Tutors {
		for _, instant := range snap.Instants(scope.Period) {
			c.atMost(env.TutorAt(scope.Period, tutor, instant), 1, nil, "tutor %v at %v", tutor, instant)
		}
		for _, course := range env.TutorCourses(scope.Period, tutor) {
			for _, slot := range snap.CompatibleSlots(course) {
				if snap.Availability(tutor, slot.Slot) == 0 {
					c.forbid(env.PresenceExpr(slot, course, tutor), nil, "tutor %v unavailable at %v", tutor, slot)
				} else if busy := snap.TutorBusy(tutor, slot.Slot); len(busy) > 0 {
					c.forbid(env.PresenceExpr(slot, course, tutor), nil, "tutor %v busy at %v: %v", tutor, slot, busy[0].Reason)
				}
			}
		}
	}
}

func (rule *ConsiderTutorsUnavailability) CostTerms(env *ttmodel.Env, scope Scope, _ float64) {
	rule.HardConstraints(env, scope)
}

//** MinMaxTutorTimePerDay

// MinMaxTutorTimePerDay bounds a tutor's teaching minutes on the days they teach. Zero parameters fall
// back to the tutor's own bounds.
type MinMaxTutorTimePerDay struct {
	Base       `mapstructure:",squash"`
	MaxMinutes int
	MinMinutes int
}

func (*MinMaxTutorTimePerDay) Kind() string {
	return KindMinMaxTutorTimePerDay
}

func (rule *MinMaxTutorTimePerDay) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *MinMaxTutorTimePerDay) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *MinMaxTutorTimePerDay) contribute(c contribution, scope Scope) {
	for _, id := range scope.Tutors {
		tutor, ok := c.env.Snapshot.Tutor(id)
		if !ok {
			continue
		}
		maximum := lo.Ternary(rule.MaxMinutes > 0, rule.MaxMinutes, tutor.MaxMinutesPerDay)
		minimum := lo.Ternary(rule.MinMinutes > 0, rule.MinMinutes, tutor.MinMinutesPerDay)
		if maximum <= 0 && minimum <= 0 {
			continue
		}
		owner := tutorOwner(id)

		for _, date := range c.env.Snapshot.WorkingDates(scope.Period) {
			minutes := c.env.TutorMinutes(scope.Period, id, date)
			if minutes.IsConstant() {
				continue
			}
			day := date.Format(model.DateLayout)
			if maximum > 0 {
				c.atMost(minutes, float64(maximum), owner, "tutor %v max minutes on %v", id, day)
			}
			if minimum > 0 {
				busy := c.env.TutorBusyDay(scope.Period, id, date, model.AllDay)
				short := minutes.Minus(busy.Scale(float64(minimum)))
				rowTag := c.tag("tutor %v min minutes on %v", id, day)
				if c.hard() {
					c.env.Model.AddConstraint(short, milp.GreaterEqual, 0, rowTag)
					continue
				}
				shortfall := c.env.Model.NewBool(rowTag.Detail)
				c.env.Model.AddConstraint(short.Plus(milp.Expr(shortfall).Scale(float64(minimum))), milp.GreaterEqual, 0, rowTag)
				c.cost(owner, milp.Expr(shortfall))
			}
		}
	}
}

//** MinimizeBusyDays

// MinimizeBusyDays packs a tutor's teaching in as few days as the preferred daily duration allows.
// Every extra busy day costs more than the previous one.
type MinimizeBusyDays struct {
	Base `mapstructure:",squash"`
}

func (*MinimizeBusyDays) Kind() string {
	return KindMinimizeBusyDays
}

func (rule *MinimizeBusyDays) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *MinimizeBusyDays) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

// MinimalBusyDays is the number of days a tutor needs to give their required courses
func MinimalBusyDays(snap *snapshot.Snapshot, period model.PeriodID, tutor model.TutorID) int {
	preferred := snap.Settings.DefaultPreferenceDuration
	if preferred <= 0 {
		return 0
	}
	required := lo.SumBy(snap.RequiredCoursesOfTutor(period, tutor), snap.Duration)
	return int(math.Ceil(float64(required) / float64(preferred)))
}

func (rule *MinimizeBusyDays) contribute(c contribution, scope Scope) {
	dates := c.env.Snapshot.WorkingDates(scope.Period)
	for _, tutor := range scope.Tutors {
		minimal := MinimalBusyDays(c.env.Snapshot, scope.Period, tutor)
		if minimal == 0 || minimal >= len(dates) {
			continue
		}
		days := milp.LinExpr{}
		for _, date := range dates {
			days = days.Plus(c.env.TutorBusyDay(scope.Period, tutor, date, model.AllDay))
		}
		c.thresholds(days, minimal+1, len(dates), tutorOwner(tutor), "tutor %v busy days", tutor)
	}
}

//** LimitUndesiredSlotsPerPeriod

// LimitUndesiredSlotsPerPeriod bounds how many undesired slots a tutor teaches in a period
type LimitUndesiredSlotsPerPeriod struct {
	Base     `mapstructure:",squash"`
	MaxSlots int
}

func (*LimitUndesiredSlotsPerPeriod) Kind() string {
	return KindLimitUndesiredSlotsPerPeriod
}

func (rule *LimitUndesiredSlotsPerPeriod) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *LimitUndesiredSlotsPerPeriod) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *LimitUndesiredSlotsPerPeriod) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	for _, tutor := range scope.Tutors {
		undesired := c.env.TutorExpr(tutor, c.env.TutorCourses(scope.Period, tutor), func(slot *model.CourseSlot) bool {
			return snapshot.Undesired(snap.Availability(tutor, slot.Slot))
		})
		if undesired.IsConstant() {
			continue
		}
		_, bound := c.env.Model.Bounds(undesired)
		c.thresholds(undesired, rule.MaxSlots+1, int(bound), tutorOwner(tutor), "tutor %v undesired slots", tutor)
	}
}

func (rule *LimitUndesiredSlotsPerPeriod) validate() error {
	if rule.MaxSlots < 0 {
		return errNegative("MaxSlots")
	}
	return nil
}

//** TutorsPreferences

// TutorsPreferences makes slots cost according to the tutors' declared availability values.
// As a hard rule, undesired slots are forbidden.
type TutorsPreferences struct {
	Base `mapstructure:",squash"`
}

func (*TutorsPreferences) Kind() string {
	return KindTutorsPreferences
}

func (rule *TutorsPreferences) HardConstraints(env *ttmodel.Env, scope Scope) {
	rule.contribute(hardContribution(env, rule, scope), scope)
}

func (rule *TutorsPreferences) CostTerms(env *ttmodel.Env, scope Scope, weight float64) {
	rule.contribute(softContribution(env, rule, scope, weight), scope)
}

func (rule *TutorsPreferences) contribute(c contribution, scope Scope) {
	snap := c.env.Snapshot
	for _, tutor := range scope.Tutors {
		for _, course := range c.env.TutorCourses(scope.Period, tutor) {
			for _, slot := range snap.CompatibleSlots(course) {
				value := snap.Availability(tutor, slot.Slot)
				presence := c.env.PresenceExpr(slot, course, tutor)
				if c.hard() {
					if snapshot.Undesired(value) {
						c.forbid(presence, nil, "tutor %v undesired slot %v", tutor, slot)
					}
					continue
				}
				if cost := c.env.Settings.PreferenceCost(value); cost > 0 {
					c.cost(tutorOwner(tutor), presence.Scale(cost))
				}
			}
		}
	}
}
