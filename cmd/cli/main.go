package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/internal/config"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/feasibility"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/store"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/timetabler"
	"github.com/golang/glog"
	"github.com/samber/lo"
)

const (
	exitSolved     = 10
	exitAnalysisKO = 15
	exitUnsolved   = 20
)

func main() {
	flag.Set("logtostderr", "true")
	// Define arguments
	configPtr := flag.String("config", "", "Path to the JSON configuration file; config.json next to the executable by default")
	filePathPtr := flag.String("file", "", "Path to a JSON department input; the database given by DATABASE_URL is used if empty")
	departmentPtr := flag.String("department", "", "Abbreviation of the department to schedule; the input file's department by default")
	periodsPtr := flag.String("periods", "", "Comma-separated identifiers of the periods to schedule; every period of an input file by default")
	trainProgramsPtr := flag.String("train-programs", "", "Comma-separated identifiers of the training programs to schedule, every one if empty")
	stabilizePtr := flag.Int("stabilize", -1, "Schedule version to stay close to, none if negative")
	targetPtr := flag.Int("target", -1, "Schedule version to write, the next free one if negative")
	timeLimitPtr := flag.Duration("time-limit", 0, "Solver time limit, the configured one if zero")
	threadsPtr := flag.Int("threads", 0, "Solver threads, the configured number if zero")
	solverPtr := flag.String("solver", "", "MILP solver to use, the configured one if empty")
	analyseOnlyPtr := flag.Bool("analyse-only", false, "Only run the pre-analysis")
	strictPtr := flag.Bool("strict", false, "Do not solve when the pre-analysis finds an impossible subject")
	preferencesPtr := flag.Bool("consider-preferences", false, "Undesired tutor slots count as unavailable during the pre-analysis")
	outFilePathPtr := flag.String("out", "", "Path to the file where the schedule will be written as JSON; if empty, it'll be written into the Standard Output")
	csvPtr := flag.String("csv", "", "Prefix of the CSV files where the schedule and the pre-analysis will be exported")
	flag.Parse()
	defer glog.Flush()

	// Validate arguments
	cfg, err := config.Load(*configPtr)
	if err != nil {
		glog.Exitf("cannot load configuration: %v", err)
	}
	if *solverPtr != "" {
		cfg.Solver = strings.ToLower(*solverPtr)
	}
	if *timeLimitPtr > 0 {
		cfg.TimeLimit = *timeLimitPtr
	}
	if *threadsPtr > 0 {
		cfg.Threads = *threadsPtr
	}
	solver, err := cfg.NewSolver()
	if err != nil {
		glog.Exit(err)
	}
	periods, err := parseIds[model.PeriodID](*periodsPtr)
	if err != nil {
		glog.Exitf("invalid periods: %v", err)
	}
	trainPrograms, err := parseIds[model.TrainProgramID](*trainProgramsPtr)
	if err != nil {
		glog.Exitf("invalid training programs: %v", err)
	}

	// Initialize the store
	department := *departmentPtr
	var backend timetabler.Store
	if *filePathPtr != "" {
		input, err := model.InputFromJson(*filePathPtr)
		if err != nil {
			glog.Exitf("cannot parse input file: %v", err)
		}
		department = lo.CoalesceOrEmpty(department, input.Department.Abbrev)
		if len(periods) == 0 {
			periods = lo.Map(input.Periods, func(period model.Period, _ int) model.PeriodID { return period.Id })
		}
		backend = timetabler.NewMemoryStore(input)
	} else {
		if department == "" || len(periods) == 0 {
			glog.Exit("a department and periods must be specified when reading from the database")
		}
		if backend, err = store.Open(cfg.DatabaseURL); err != nil {
			glog.Exit(err)
		}
	}

	request := timetabler.SolveRequest{
		Department:    department,
		Periods:       periods,
		TrainPrograms: trainPrograms,
		TimeLimit:     cfg.TimeLimit,
		Threads:       cfg.Threads,
	}
	if *stabilizePtr >= 0 {
		request.StabilizeVersion = stabilizePtr
	}
	if *targetPtr >= 0 {
		request.TargetVersion = targetPtr
	}

	ctx := context.Background()
	if !cfg.IgnoreInterrupts {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	options := cfg.Options()
	options.Analysis.ConsiderPreferences = *preferencesPtr
	engine := timetabler.New(backend, solver, options)

	// Pre-analysis
	if *analyseOnlyPtr || *strictPtr {
		report, err := engine.Analyse(ctx, request)
		if err != nil {
			glog.Exitf("an error occurred during the pre-analysis: %v", err)
		}
		printAnalysis(report.Analysis)
		if *csvPtr != "" {
			exportAnalysis(*csvPtr, report.Analysis)
		}
		if failed := feasibility.Failed(report.Analysis); len(failed) > 0 {
			printSummary(report)
			glog.Flush()
			os.Exit(exitAnalysisKO)
		} else if *analyseOnlyPtr {
			printSummary(report)
			return
		}
	}

	// Build timetable
	version, report, err := engine.Solve(ctx, request)
	if errors.Is(err, timetabler.ErrUnsolved) {
		printSummary(report)
		glog.Flush()
		os.Exit(exitUnsolved)
	} else if err != nil {
		glog.Exitf("an error occurred during timetable construction: %v", err)
	}

	schedules := make(map[model.PeriodID][]model.ScheduledCourse, len(periods))
	for _, period := range periods {
		schedule, err := backend.LoadSchedule(ctx, period, version)
		if err != nil {
			glog.Exitf("cannot read back version %v of period %v: %v", version, period, err)
		}
		schedules[period] = schedule
	}

	// Marshal output into json
	scheduleJson, err := json.Marshal(schedules)
	if err != nil {
		glog.Exitf("an error occurred while building output json: %v", err)
	}
	if *outFilePathPtr == "" {
		fmt.Println(string(scheduleJson))
	} else if err := os.WriteFile(*outFilePathPtr, scheduleJson, 0666); err != nil {
		glog.Exitf("an error occurred while writing to the output file: %v", err)
	}
	if *csvPtr != "" {
		exportSchedules(*csvPtr, schedules)
		exportAnalysis(*csvPtr, report.Analysis)
	}

	printSummary(report)
	glog.Flush()
	os.Exit(exitSolved)
}

// Parses a comma-separated list of identifiers, empty stands for none
func parseIds[T ~uint64](list string) ([]T, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}
	ids := make([]T, 0)
	for _, field := range strings.Split(list, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, T(id))
	}
	return ids, nil
}

func printAnalysis(reports []feasibility.Report) {
	for _, report := range feasibility.Failed(reports) {
		for _, message := range report.Messages {
			fmt.Fprintf(os.Stderr, "KO %v (period %v): %v\n", report.Subject, report.Period, message)
		}
	}
}

func printSummary(report *timetabler.Report) {
	if report == nil {
		return
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", warning)
	}
	fmt.Printf("Run: %v\n", report.RunId)
	fmt.Printf("Variables: %v\n", report.Variables+report.RoomVariables)
	fmt.Printf("Constraints: %v\n", report.Constraints+report.RoomConstraints)
	if report.Variables > 0 {
		fmt.Printf("Status: %v\n", report.Status)
	}
	if report.Version >= 0 {
		fmt.Printf("Version: %v\n", report.Version)
		fmt.Printf("Objective: %v\n", report.Objective)
	}
	if report.Conflict != nil {
		fmt.Printf("Conflicting constraints: %v\n", strings.Join(report.Conflict.Kinds, ", "))
	}
	fmt.Printf("Elapsed: %v\n", report.Elapsed.Round(time.Millisecond))
}
