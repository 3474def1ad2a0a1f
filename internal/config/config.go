// Package config gathers the settings of the binaries: a .env file, an optional config.json next to
// the executable or given explicitly, then environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/timetabler"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

const FileName = "config.json"

type Config struct {
	Solver           string
	SolverPaths      map[string]string // Executable by solver name
	TimeLimit        time.Duration
	Threads          int
	IgnoreInterrupts bool
	Verbose          bool

	RoomMode            string // "pre-assign" or "post-assign"
	Visio               bool
	SlotStep            int
	MaxWeight           int
	Ponderations        map[string]float64
	ThresholdGrowth     float64
	PreferenceCostScale float64
	UndesiredFactor     float64
	Diagnose            bool

	DatabaseURL string // Postgres DSN or sqlite path
	DataPath    string // Directory of JSON department inputs
}

func Default() Config {
	settings := ttmodel.DefaultSettings()
	return Config{
		Solver:              "cbc",
		SolverPaths:         map[string]string{},
		TimeLimit:           5 * time.Minute,
		RoomMode:            settings.RoomMode.String(),
		MaxWeight:           settings.MaxWeight,
		Ponderations:        map[string]float64{},
		ThresholdGrowth:     settings.ThresholdGrowth,
		PreferenceCostScale: settings.PreferenceCostScale,
		UndesiredFactor:     settings.UndesiredFactor,
		Diagnose:            true,
		DatabaseURL:         "flopedt.db",
		DataPath:            ".",
	}
}

// Load reads the .env file of the working directory when present, then the config file (the
// executable's config.json when file is empty, which may be missing), then the environment.
func Load(file string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("cannot read .env file: %w", err)
	}

	config := Default()
	explicit := file != ""
	if !explicit {
		file = defaultPath()
	}
	if file != "" {
		if err := config.decodeFile(file); err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
			return Config{}, err
		}
	}
	if err := config.override(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return config, config.validate()
}

// Returns the config.json path next to the executable, empty when it cannot be determined
func defaultPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return path.Join(path.Dir(execPath), FileName)
}

func (config *Config) decodeFile(file string) error {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var document map[string]any
	if err := json.Unmarshal(bytes, &document); err != nil {
		return fmt.Errorf("cannot parse %v: %w", file, err)
	}

	if err := config.decode(document); err != nil {
		return fmt.Errorf("cannot decode %v: %w", file, err)
	}
	return nil
}

// decode sets the document's fields onto the config, strings are accepted for every field
func (config *Config) decode(document map[string]any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           config,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(document)
}

//** Environment

var variables = map[string]string{
	"FLOP_SOLVER":            "Solver",
	"FLOP_TIME_LIMIT":        "TimeLimit",
	"FLOP_THREADS":           "Threads",
	"FLOP_IGNORE_INTERRUPTS": "IgnoreInterrupts",
	"FLOP_VERBOSE":           "Verbose",
	"FLOP_ROOM_MODE":         "RoomMode",
	"FLOP_VISIO":             "Visio",
	"FLOP_SLOT_STEP":         "SlotStep",
	"FLOP_MAX_WEIGHT":        "MaxWeight",
	"FLOP_DIAGNOSE":          "Diagnose",
	"DATABASE_URL":           "DatabaseURL",
	"DATA_PATH":              "DataPath",
}

// FLOP_SOLVER_PATH_<NAME> overrides the executable of a solver
const solverPathPrefix = "FLOP_SOLVER_PATH_"

// override decodes the set variables onto the config, variable by variable to name the faulty one
func (config *Config) override(lookup func(string) (string, bool)) error {
	for variable, field := range variables {
		value, ok := lookup(variable)
		if !ok || value == "" {
			continue
		}
		if err := config.decode(map[string]any{field: value}); err != nil {
			return fmt.Errorf("invalid %v: %w", variable, err)
		}
	}

	paths := map[string]string{}
	for _, name := range milp.SolverNames() {
		if value, ok := lookup(solverPathPrefix + strings.ToUpper(name)); ok && value != "" {
			paths[name] = value
		}
	}
	if len(paths) > 0 {
		return config.decode(map[string]any{"SolverPaths": paths})
	}
	return nil
}

func (config Config) validate() error {
	if !lo.Contains(milp.SolverNames(), config.Solver) {
		return fmt.Errorf("unknown solver %q, allowed values are %v", config.Solver, milp.SolverNames())
	}
	if _, err := parseRoomMode(config.RoomMode); err != nil {
		return err
	}
	if config.MaxWeight < 1 {
		return fmt.Errorf("max weight must be positive: %v", config.MaxWeight)
	}
	if config.Threads < 0 || config.SlotStep < 0 || config.TimeLimit < 0 {
		return errors.New("threads, slot step and time limit must not be negative")
	}
	return nil
}

func parseRoomMode(mode string) (ttmodel.RoomMode, error) {
	switch strings.ToLower(mode) {
	case ttmodel.PreAssign.String():
		return ttmodel.PreAssign, nil
	case ttmodel.PostAssign.String():
		return ttmodel.PostAssign, nil
	}
	return 0, fmt.Errorf("unknown room mode %q, allowed values are %q and %q", mode, ttmodel.PreAssign, ttmodel.PostAssign)
}

//** Conversions

func (config Config) NewSolver() (milp.Solver, error) {
	return milp.NewSolver(config.Solver, config.SolverPaths)
}

// Options returns the timetabler options of a validated config
func (config Config) Options() timetabler.Options {
	options := timetabler.DefaultOptions()
	options.Settings.MaxWeight = config.MaxWeight
	options.Settings.RoomMode = lo.Must(parseRoomMode(config.RoomMode))
	options.Settings.Ponderations = config.Ponderations
	options.Settings.ThresholdGrowth = config.ThresholdGrowth
	options.Settings.PreferenceCostScale = config.PreferenceCostScale
	options.Settings.UndesiredFactor = config.UndesiredFactor
	options.Visio = config.Visio
	options.SlotStep = config.SlotStep
	options.IgnoreInterrupts = config.IgnoreInterrupts
	options.Verbose = config.Verbose
	options.Diagnose = config.Diagnose
	return options
}
