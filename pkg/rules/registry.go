package rules

import (
	"fmt"
	"slices"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/diagnostics"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

//** Kinds

const (
	KindScheduleAllCourses           = "ScheduleAllCourses"
	KindNoSimultaneousGroupCourses   = "NoSimultaneousGroupCourses"
	KindAssignAllCourses             = "AssignAllCourses"
	KindConsiderTutorsUnavailability = "ConsiderTutorsUnavailability"
	KindMinMaxTutorTimePerDay        = "MinMaxTutorTimePerDay"
	KindMinimizeBusyDays             = "MinimizeBusyDays"
	KindLocateAllCourses             = "LocateAllCourses"
	KindNoTwoCoursesInSameRoom       = "NoTwoCoursesInSameRoom"

	KindLimitStartTimeChoices        = "LimitStartTimeChoices"
	KindAvoidStartTimes              = "AvoidStartTimes"
	KindLimitedRoomChoices           = "LimitedRoomChoices"
	KindLunchBreak                   = "LunchBreak"
	KindBreakAroundCourseType        = "BreakAroundCourseType"
	KindSimultaneousCourses          = "SimultaneousCourses"
	KindDependency                   = "Dependency"
	KindPivot                        = "Pivot"
	KindLimitUndesiredSlotsPerPeriod = "LimitUndesiredSlotsPerPeriod"
	KindRoomSort                     = "RoomSort"
	KindNoVisio                      = "NoVisio"
	KindVisioOnly                    = "VisioOnly"
	KindNoCourseOnDay                = "NoCourseOnDay"
	KindTutorsPreferences            = "TutorsPreferences"
	KindStabilize                    = "Stabilize"
)

var registry = map[string]func() Rule{
	KindScheduleAllCourses:           func() Rule { return &ScheduleAllCourses{} },
	KindNoSimultaneousGroupCourses:   func() Rule { return &NoSimultaneousGroupCourses{} },
	KindAssignAllCourses:             func() Rule { return &AssignAllCourses{} },
	KindConsiderTutorsUnavailability: func() Rule { return &ConsiderTutorsUnavailability{} },
	KindMinMaxTutorTimePerDay:        func() Rule { return &MinMaxTutorTimePerDay{} },
	KindMinimizeBusyDays:             func() Rule { return &MinimizeBusyDays{} },
	KindLocateAllCourses:             func() Rule { return &LocateAllCourses{} },
	KindNoTwoCoursesInSameRoom:       func() Rule { return &NoTwoCoursesInSameRoom{} },
	KindLimitStartTimeChoices:        func() Rule { return &LimitStartTimeChoices{} },
	KindAvoidStartTimes:              func() Rule { return &AvoidStartTimes{} },
	KindLimitedRoomChoices:           func() Rule { return &LimitedRoomChoices{} },
	KindLunchBreak:                   func() Rule { return &LunchBreak{} },
	KindBreakAroundCourseType:        func() Rule { return &BreakAroundCourseType{} },
	KindSimultaneousCourses:          func() Rule { return &SimultaneousCourses{} },
	KindDependency:                   func() Rule { return &Dependency{} },
	KindPivot:                        func() Rule { return &Pivot{} },
	KindLimitUndesiredSlotsPerPeriod: func() Rule { return &LimitUndesiredSlotsPerPeriod{} },
	KindRoomSort:                     func() Rule { return &RoomSort{} },
	KindNoVisio:                      func() Rule { return &NoVisio{} },
	KindVisioOnly:                    func() Rule { return &VisioOnly{} },
	KindNoCourseOnDay:                func() Rule { return &NoCourseOnDay{} },
	KindTutorsPreferences:            func() Rule { return &TutorsPreferences{} },
	KindStabilize:                    func() Rule { return &Stabilize{} },
}

// Core kinds are part of every run, a default instance is added when the department declared none
var coreKinds = []string{
	KindScheduleAllCourses,
	KindNoSimultaneousGroupCourses,
	KindAssignAllCourses,
	KindConsiderTutorsUnavailability,
	KindMinMaxTutorTimePerDay,
	KindLocateAllCourses,
	KindNoTwoCoursesInSameRoom,
	KindMinimizeBusyDays,
}

func Kinds() []string {
	kinds := lo.Keys(registry)
	slices.Sort(kinds)
	return kinds
}

//** Decoding

// Decode builds the concrete rule of a persisted instance, its parameters are decoded onto the kind's fields
func Decode(raw model.RawRule, maxWeight int) (Rule, error) {
	constructor, ok := registry[raw.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule kind %q", raw.Kind)
	}
	rule := constructor()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(model.DateLayout),
			mapstructure.StringToSliceHookFunc(","),
		),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           rule,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw.Params); err != nil {
		return nil, fmt.Errorf("cannot decode parameters of %v[%v]: %w", raw.Kind, raw.Id, err)
	}

	if raw.Weight != nil && (*raw.Weight < 1 || *raw.Weight > maxWeight) {
		return nil, fmt.Errorf("weight %d of %v[%v] is outside [1, %d]", *raw.Weight, raw.Kind, raw.Id, maxWeight)
	}

	base := rule.Info()
	base.Id = lo.Ternary(raw.Id == "", uuid.NewString(), raw.Id)
	base.Department = raw.Department
	base.Weight = raw.Weight
	base.Comment = raw.Comment
	base.Periods = raw.Periods
	base.Active = raw.IsActive()

	if validator, ok := rule.(interface{ validate() error }); ok {
		if err := validator.validate(); err != nil {
			return nil, fmt.Errorf("invalid parameters of %v[%v]: %w", raw.Kind, raw.Id, err)
		}
	}
	return rule, nil
}

func errNegative(field string) error {
	return fmt.Errorf("%v must not be negative", field)
}

// New builds an active rule of a kind with no parameter, weight nil standing for a hard rule
func New(kind string, weight *int) Rule {
	rule := registry[kind]()
	base := rule.Info()
	base.Id = uuid.NewString()
	base.Weight = weight
	base.Active = true
	return rule
}

//** Catalog

// Catalog holds the rules of a run
type Catalog struct {
	rules []Rule
}

// NewCatalog decodes the persisted rules, malformed instances are skipped with a warning
func NewCatalog(raws []model.RawRule, maxWeight int, warnings *diagnostics.Collector) *Catalog {
	catalog := &Catalog{}
	for _, raw := range raws {
		rule, err := Decode(raw, maxWeight)
		if err != nil {
			warnings.Warn(raw.Id, raw.Kind, "rule skipped: %v", err)
			continue
		}
		catalog.Add(rule)
	}
	return catalog
}

func (catalog *Catalog) Add(rules ...Rule) {
	catalog.rules = append(catalog.rules, rules...)
}

// WithCoreRules adds a hard instance of every core kind absent from the catalog. MinimizeBusyDays is
// added as a soft rule of maximal weight.
func (catalog *Catalog) WithCoreRules(maxWeight int) *Catalog {
	for _, kind := range coreKinds {
		if lo.SomeBy(catalog.rules, func(rule Rule) bool { return rule.Kind() == kind }) {
			continue
		}
		var weight *int
		if kind == KindMinimizeBusyDays {
			weight = lo.ToPtr(maxWeight)
		}
		catalog.Add(New(kind, weight))
	}
	return catalog
}

func (catalog *Catalog) Rules() []Rule {
	return catalog.rules
}

func (catalog *Catalog) Len() int {
	return len(catalog.rules)
}

// Enrich lets every rule contribute to the env's model, period by period
func (catalog *Catalog) Enrich(env *ttmodel.Env, periods []model.PeriodID) {
	for _, period := range periods {
		for _, rule := range catalog.rules {
			Enrich(env, rule, period)
		}
	}
}
