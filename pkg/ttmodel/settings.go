package ttmodel

import "github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"

// RoomMode tells whether rooms are located by the main model or by a second, room-only model
type RoomMode int

const (
	PreAssign RoomMode = iota
	PostAssign
)

func (mode RoomMode) String() string {
	if mode == PostAssign {
		return "post-assign"
	}
	return "pre-assign"
}

// Stage identifies which model is being built
type Stage int

const (
	MainStage Stage = iota
	RoomStage
)

// Settings gathers the policy constants of a model build
type Settings struct {
	MaxWeight    int
	Ponderations map[string]float64 // By rule kind, 1 when missing
	RoomMode     RoomMode

	ThresholdGrowth     float64 // Cost growth factor of each extra threshold crossed
	PreferenceCostScale float64 // Cost of a slot at the lowest non-zero availability value
	UndesiredFactor     float64 // Extra factor applied to undesired slots' cost
}

func DefaultSettings() Settings {
	return Settings{
		MaxWeight:           8,
		Ponderations:        map[string]float64{},
		RoomMode:            PreAssign,
		ThresholdGrowth:     2,
		PreferenceCostScale: 1,
		UndesiredFactor:     2,
	}
}

func (settings Settings) Ponderation(kind string) float64 {
	if ponderation, ok := settings.Ponderations[kind]; ok {
		return ponderation
	}
	return 1
}

// PreferenceCost is the cost of using a slot of the given availability value, higher values being preferred
func (settings Settings) PreferenceCost(value int) float64 {
	if value <= 0 || value >= model.MaxAvailability {
		return 0
	}
	cost := settings.PreferenceCostScale * float64(model.MaxAvailability-value) / float64(model.MaxAvailability-1)
	if value <= model.UndesiredThreshold {
		cost *= settings.UndesiredFactor
	}
	return cost
}
