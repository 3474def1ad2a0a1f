// Package timetabler runs a whole solve: snapshot, rules, pre-analysis, main model, optional room model
// and commit of the resulting schedule version.
package timetabler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/diagnostics"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/feasibility"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/rules"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/snapshot"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ErrUnsolved is wrapped by every *UnsolvedError
var ErrUnsolved = errors.New("timetable not solved")

// UnsolvedError reports a solve that produced no schedule: nothing was committed
type UnsolvedError struct {
	Stage    string // "main" or "rooms"
	Status   milp.Status
	Conflict *milp.Conflict // Nil when no diagnosis ran or the diagnosis could not conclude
	Log      string
}

func (err *UnsolvedError) Error() string {
	message := fmt.Sprintf("%v model %v", err.Stage, err.Status)
	if err.Conflict != nil {
		message += fmt.Sprintf(", conflicting constraints: %v", strings.Join(err.Conflict.Kinds, ", "))
	}
	return message
}

func (err *UnsolvedError) Unwrap() error {
	return ErrUnsolved
}

type SolveRequest struct {
	Department       string
	Periods          []model.PeriodID
	TrainPrograms    []model.TrainProgramID // Empty stands for every training program
	StabilizeVersion *int                   // Version to stay close to
	TimeLimit        time.Duration
	Threads          int
	TargetVersion    *int // Nil stands for the next free version
}

type Options struct {
	Settings         ttmodel.Settings
	Visio            bool
	SlotStep         int
	IgnoreInterrupts bool
	Verbose          bool
	Diagnose         bool // Look for the conflicting constraint families of an infeasible model
	Analysis         feasibility.Options
}

func DefaultOptions() Options {
	return Options{Settings: ttmodel.DefaultSettings(), Diagnose: true}
}

// Report sums a run up, it is returned along with the run's error when any
type Report struct {
	RunId           string
	Department      string
	Periods         []model.PeriodID
	Version         int // -1 when nothing was committed
	Warnings        []diagnostics.Warning
	Analysis        []feasibility.Report
	Variables       int
	Constraints     int
	RoomVariables   int
	RoomConstraints int
	Status          milp.Status
	Objective       float64
	Costs           []milp.BucketValue
	Conflict        *milp.Conflict
	Elapsed         time.Duration
}

type Timetabler struct {
	store   Store
	solver  milp.Solver
	options Options
}

func New(store Store, solver milp.Solver, options Options) *Timetabler {
	return &Timetabler{
		store:   store,
		solver:  solver,
		options: options,
	}
}

// Solve is a shorthand running a Timetabler with the default options
func Solve(ctx context.Context, store Store, solver milp.Solver, request SolveRequest) (int, *Report, error) {
	return New(store, solver, DefaultOptions()).Solve(ctx, request)
}

// run is the state shared by the steps of one solve
type run struct {
	snap     *snapshot.Snapshot
	catalog  *rules.Catalog
	warnings *diagnostics.Collector
	report   *Report
}

func (timetabler *Timetabler) prepare(ctx context.Context, request SolveRequest) (*run, error) {
	report := &Report{RunId: uuid.NewString(), Department: request.Department, Periods: request.Periods, Version: -1}
	if len(request.Periods) == 0 {
		return &run{report: report}, model.NewConfigurationError("request", "no period to solve")
	}

	input, err := timetabler.store.LoadInput(ctx, request.Department)
	if err != nil {
		return &run{report: report}, fmt.Errorf("cannot load department %v: %w", request.Department, err)
	}
	if request.StabilizeVersion != nil {
		input.Schedules = lo.Reject(input.Schedules, func(scheduled model.ScheduledCourse, _ int) bool {
			return scheduled.Version == *request.StabilizeVersion
		})
		for _, period := range request.Periods {
			schedule, err := timetabler.store.LoadSchedule(ctx, period, *request.StabilizeVersion)
			if err != nil {
				return &run{report: report}, fmt.Errorf("cannot load version %v of period %v: %w", *request.StabilizeVersion, period, err)
			}
			input.Schedules = append(input.Schedules, schedule...)
		}
	}

	snap, err := snapshot.Build(input, snapshot.Options{
		Periods:       request.Periods,
		TrainPrograms: request.TrainPrograms,
		SlotStep:      timetabler.options.SlotStep,
		Visio:         timetabler.options.Visio,
	})
	if err != nil {
		return &run{report: report}, err
	}

	warnings := diagnostics.NewCollector()
	maxWeight := timetabler.options.Settings.MaxWeight
	raws := lo.Filter(input.Rules, func(raw model.RawRule, _ int) bool {
		return raw.Department == "" || raw.Department == request.Department
	})
	catalog := rules.NewCatalog(raws, maxWeight, warnings).WithCoreRules(maxWeight)
	if request.StabilizeVersion != nil {
		stabilize := rules.New(rules.KindStabilize, lo.ToPtr(maxWeight)).(*rules.Stabilize)
		stabilize.Version = *request.StabilizeVersion
		catalog.Add(stabilize)
	}
	glog.Infof("run %v: %d rules for %v", report.RunId, catalog.Len(), request.Department)

	report.Analysis = feasibility.Analyze(snap, catalog, timetabler.options.Analysis)
	return &run{snap: snap, catalog: catalog, warnings: warnings, report: report}, nil
}

// Analyse only runs the pre-analysis
func (timetabler *Timetabler) Analyse(ctx context.Context, request SolveRequest) (*Report, error) {
	start := time.Now()
	r, err := timetabler.prepare(ctx, request)
	r.report.Elapsed = time.Since(start)
	if r.warnings != nil {
		r.report.Warnings = r.warnings.Warnings()
	}
	return r.report, err
}

// Solve builds and solves the timetable of the request's periods and commits it. It returns the committed
// version; unsolved runs return an error wrapping ErrUnsolved and leave the store untouched.
func (timetabler *Timetabler) Solve(ctx context.Context, request SolveRequest) (int, *Report, error) {
	start := time.Now()
	r, err := timetabler.prepare(ctx, request)
	if err == nil {
		err = timetabler.solve(ctx, request, r)
	}
	r.report.Elapsed = time.Since(start)
	if r.warnings != nil {
		r.report.Warnings = r.warnings.Warnings()
	}
	if err != nil {
		glog.Errorf("run %v failed: %v", r.report.RunId, err)
		return -1, r.report, err
	}
	glog.Infof("run %v committed version %v in %v", r.report.RunId, r.report.Version, r.report.Elapsed)
	return r.report.Version, r.report, nil
}

func (timetabler *Timetabler) solve(ctx context.Context, request SolveRequest, r *run) error {
	settings := timetabler.options.Settings
	env := ttmodel.NewMainEnv(r.snap, settings, r.warnings)
	r.catalog.Enrich(env, periodIds(r.snap))
	r.report.Variables, r.report.Constraints = env.Model.NumVars(), env.Model.NumConstraints()
	glog.Infof("main model: %d variables, %d constraints, %d cost buckets", r.report.Variables, r.report.Constraints, env.Model.Costs().Len())

	params := milp.Parameters{
		TimeLimit:        request.TimeLimit,
		Threads:          request.Threads,
		IgnoreInterrupts: timetabler.options.IgnoreInterrupts,
		Verbose:          timetabler.options.Verbose,
	}
	solution, err := timetabler.solver.Solve(ctx, env.Model, params)
	if err != nil {
		return fmt.Errorf("an error occurred during %v execution: %w", timetabler.solver.Name(), err)
	}
	r.report.Status = solution.Status
	glog.Infof("main model %v", solution.Status)

	if !solution.Status.HasSolution() {
		unsolved := &UnsolvedError{Stage: "main", Status: solution.Status, Log: solution.Log}
		if solution.Status == milp.StatusInfeasible && timetabler.options.Diagnose {
			conflict, err := milp.Diagnose(ctx, timetabler.solver, env.Model, params)
			if err != nil {
				glog.Warningf("diagnosis failed: %v", err)
			}
			unsolved.Conflict, r.report.Conflict = conflict, conflict
		}
		return unsolved
	}
	r.report.Objective = solution.Objective
	r.report.Costs = env.Model.Costs().Evaluate(solution.Values)

	decided := Decode(env, solution)
	if settings.RoomMode == ttmodel.PostAssign {
		rooms := roomModel{snap: r.snap, catalog: r.catalog, settings: settings, solver: timetabler.solver}
		if err := rooms.assign(ctx, env, decided, params, r.report); err != nil {
			var unsolved *UnsolvedError
			if errors.As(err, &unsolved) {
				r.report.Conflict = unsolved.Conflict
			}
			return err
		}
	}

	version := 0
	if request.TargetVersion != nil {
		version = *request.TargetVersion
	} else if version, err = timetabler.store.NextVersion(ctx, request.Periods); err != nil {
		return fmt.Errorf("cannot pick a version: %w", err)
	}
	if err := write(ctx, timetabler.store, r.snap, version, decided); err != nil {
		return err
	}
	r.report.Version = version
	return nil
}

func periodIds(snap *snapshot.Snapshot) []model.PeriodID {
	return lo.Map(snap.Periods, func(period model.Period, _ int) model.PeriodID { return period.Id })
}
