package rules

import (
	"fmt"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/golang/glog"
)

// Target tells which variables a rule constrains
type Target int

const (
	ModelTarget Target = 1 << iota // Sched and assigned variables
	RoomTarget                     // Located variables
)

// Rule is a persisted constraint instance. Depending on whether a weight is set, it either contributes
// hard constraints or weighted cost terms. Contributions only go through the env's model.
type Rule interface {
	Kind() string
	Info() *Base
	Target() Target
	Scope(env *ttmodel.Env, period model.PeriodID) Scope
	HardConstraints(env *ttmodel.Env, scope Scope)
	CostTerms(env *ttmodel.Env, scope Scope, weight float64)
}

// Subject is a tutor or a basic group, whose available time the pre-analysis measures
type Subject struct {
	Tutor *model.TutorID
	Group *model.GroupID
}

func (subject Subject) String() string {
	if subject.Tutor != nil {
		return fmt.Sprintf("tutor %v", *subject.Tutor)
	}
	return fmt.Sprintf("group %v", *subject.Group)
}

// Unavailable is implemented by the rules that make time unavailable to a subject when hard
type Unavailable interface {
	Unavailabilities(snap *snapshot.Snapshot, subject Subject, period model.PeriodID) []model.Slot
}

// Base holds the attributes shared by every rule kind, rule parameters are decoded next to them
type Base struct {
	Id         string           `mapstructure:"-"`
	Department string           `mapstructure:"-"`
	Weight     *int             `mapstructure:"-"` // nil stands for a hard rule
	Comment    string           `mapstructure:"-"`
	Periods    []model.PeriodID `mapstructure:"-"` // Empty stands for every period
	Active     bool             `mapstructure:"-"`
	Filter     `mapstructure:",squash"`
}

func (base *Base) Info() *Base {
	return base
}

func (base *Base) Target() Target {
	return ModelTarget
}

// AppliesTo checks whether the rule is active on a period
func (base *Base) AppliesTo(period model.PeriodID) bool {
	return base.Active && (len(base.Periods) == 0 || slices.Contains(base.Periods, period))
}

func (base *Base) IsHard() bool {
	return base.Weight == nil
}

// Scope narrows the period's courses, tutors, basic groups and rooms to the rule's filter
func (base *Base) Scope(env *ttmodel.Env, period model.PeriodID) Scope {
	return base.Filter.Scope(env.Snapshot, period)
}

// tag builds the diagnostic tag of one of the rule's constraints
func tag(rule Rule, format string, args ...any) milp.Tag {
	return ttmodel.Tag(rule.Kind(), rule.Info().Id, format, args...)
}

func warn(env *ttmodel.Env, rule Rule, format string, args ...any) {
	env.Warn(rule.Info().Id, rule.Kind(), format, args...)
}

// Runs checks whether a rule contributes to the model being built
func Runs(env *ttmodel.Env, rule Rule) bool {
	target := rule.Target()
	if env.Stage == ttmodel.RoomStage {
		return target&RoomTarget != 0
	}
	return target&ModelTarget != 0 || (target&RoomTarget != 0 && env.Settings.RoomMode == ttmodel.PreAssign)
}

// Enrich asks a rule to contribute to the model for a period. An empty scope is a silent no-op;
// a configured weight is normalized by the maximal weight and the kind's ponderation.
func Enrich(env *ttmodel.Env, rule Rule, period model.PeriodID) {
	base := rule.Info()
	if !base.AppliesTo(period) || !Runs(env, rule) {
		return
	}
	scope := rule.Scope(env, period)
	if scope.IsEmpty() {
		glog.V(2).Infof("%v[%v] has an empty scope on period %v", rule.Kind(), base.Id, period)
		return
	}

	before := env.Model.NumConstraints()
	if base.IsHard() {
		rule.HardConstraints(env, scope)
	} else {
		weight := float64(*base.Weight) / float64(env.Settings.MaxWeight) * env.Settings.Ponderation(rule.Kind())
		rule.CostTerms(env, scope, weight)
	}
	glog.V(1).Infof("%v[%v] on period %v: %d constraints", rule.Kind(), base.Id, period, env.Model.NumConstraints()-before)
}
