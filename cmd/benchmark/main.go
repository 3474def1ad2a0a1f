package main

import (
	"bytes"
	"flag"
	"os"
	"os/exec"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/milp"
	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/model"
	"github.com/gocarina/gocsv"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	exitSolved     = 10
	exitAnalysisKO = 15
	exitUnsolved   = 20
)

type ResultType string

const (
	solved     ResultType = "solved"
	unsolved   ResultType = "unsolved"
	analysisKO ResultType = "analysis-ko"
)

type TestMetadata struct {
	Name    string `csv:"test"`
	Periods int    `csv:"periods"`
	Courses int    `csv:"courses"`
	Tutors  int    `csv:"tutors"`
	Groups  int    `csv:"groups"`
	Rooms   int    `csv:"rooms"`
	Rules   int    `csv:"rules"`
}

type BenchmarkResult struct {
	Run           string `csv:"run"`
	Solver        string `csv:"solver"`
	RoomMode      string `csv:"room_mode"`
	TestMetadata
	Duration      int64      `csv:"duration_ms"`
	Memory        float32    `csv:"memory_mb"`
	CpuPercentage int64      `csv:"cpu_percent"`
	Result        ResultType `csv:"result"`
}

func main() {
	flag.Set("logtostderr", "true")
	executablePtr := flag.String("executable", "../../bin/flopedt", "Path to the CLI executable")
	directoryPtr := flag.String("directory", "../../test/inputs/", "Directory of the JSON department inputs")
	solversPtr := flag.String("solvers", strings.Join(lo.Without(milp.SolverNames(), "enumeration"), ","), "Comma-separated solvers to benchmark")
	timeLimitPtr := flag.Duration("time-limit", 10*time.Minute, "Time limit of every run")
	strictPtr := flag.Bool("strict", false, "Skip the solve of inputs failing the pre-analysis")
	outPtr := flag.String("out", "benchmark_results.csv", "Path to the CSV results")
	flag.Parse()
	defer glog.Flush()

	tests := getTests(*directoryPtr)
	solvers := strings.Split(*solversPtr, ",")
	roomModes := []string{"pre-assign", "post-assign"}
	results := make([]BenchmarkResult, 0, len(tests)*len(solvers)*len(roomModes))

	for _, test := range tests {
		for _, solver := range solvers {
			for _, roomMode := range roomModes {
				glog.Infof("Benchmarking test %q with solver %q and room mode %q", test.Name, solver, roomMode)

				duration, maxMemory, cpuPercentage, result := measure(*executablePtr, solver, roomMode, *timeLimitPtr, *strictPtr, test.Name)

				results = append(results, BenchmarkResult{
					Run:           uuid.NewString(),
					Solver:        solver,
					RoomMode:      roomMode,
					TestMetadata:  test,
					Duration:      duration,
					Memory:        maxMemory,
					CpuPercentage: cpuPercentage,
					Result:        result,
				})
			}
		}
	}

	toCsv(*outPtr, results)
}

func getTests(directory string) []TestMetadata {
	testFiles, err := os.ReadDir(directory)
	if err != nil {
		glog.Exitf("cannot read directory: %v", err)
	}

	tests := make([]TestMetadata, 0, len(testFiles))
	for _, file := range testFiles {
		if file.IsDir() || path.Ext(file.Name()) != ".json" {
			continue
		}
		filename := path.Join(directory, file.Name())
		input, err := model.InputFromJson(filename)
		if err != nil {
			glog.Exitf("cannot parse input file: %v", err)
		}

		tests = append(tests, TestMetadata{
			Name:    filename,
			Periods: len(input.Periods),
			Courses: len(input.Courses),
			Tutors:  len(input.Tutors),
			Groups:  len(input.Groups),
			Rooms:   len(input.Rooms),
			Rules:   len(input.Rules),
		})
	}
	slices.SortFunc(tests, func(a, b TestMetadata) int { return strings.Compare(a.Name, b.Name) })
	return tests
}

func measure(executable, solver, roomMode string, timeLimit time.Duration, strict bool, testFile string) (duration int64, maxMemory float32, cpuPercentage int64, result ResultType) {
	args := []string{"-v", executable, "-solver", solver, "-time-limit", timeLimit.String(), "-file", testFile, "-out", os.DevNull}
	if strict {
		args = append(args, "-strict")
	}
	cmd := exec.Command("/usr/bin/time", args...)
	cmd.Env = append(os.Environ(), "FLOP_ROOM_MODE="+roomMode)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	cmd.Run()
	switch cmd.ProcessState.ExitCode() {
	case exitSolved:
		result = solved
	case exitUnsolved:
		result = unsolved
	case exitAnalysisKO:
		result = analysisKO
	default:
		glog.Exitf("an error occurred during the execution of %q at test %q using solver %q, room mode %q: %v", executable, testFile, solver, roomMode, stdErr.String())
	}
	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) string {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			glog.Exitf("substring %q could not be found", substr)
		}
		return line
	}

	duration = parseDurationLine(getLine("wall clock"))
	maxMemory = parseMemoryLine(getLine("maximum resident set size"))
	cpuPercentage = parseCpuPercentageLine(getLine("percent of cpu"))

	return duration, maxMemory, cpuPercentage, result
}

func toCsv(name string, results []BenchmarkResult) {
	file, err := os.Create(name)
	if err != nil {
		glog.Fatalf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		glog.Fatalf("cannot write CSV records: %v", err)
	}
}

func parseDurationLine(line string) int64 {
	durationStr := strings.Split(line, "(h:mm:ss or m:ss):")[1][1:]
	return parseDuration(durationStr)
}

// Parses an elapsed time of /usr/bin/time into milliseconds
func parseDuration(durationStr string) int64 {
	parts := strings.Split(durationStr, ":")
	secondsParts := strings.Split(parts[len(parts)-1], ".")
	if len(parts) < 2 || len(parts) > 3 || len(secondsParts) != 2 {
		glog.Exitf("unexpected duration format: %v", durationStr)
	}

	var hours int
	if len(parts) == 3 { // h:mm:ss
		hours = lo.Must(strconv.Atoi(parts[0]))
	}
	minutes := lo.Must(strconv.Atoi(parts[len(parts)-2]))
	seconds := lo.Must(strconv.Atoi(secondsParts[0]))
	hundredthOfSeconds := lo.Must(strconv.Atoi(secondsParts[1]))
	return int64(hours*3600+minutes*60+seconds)*1000 + int64(hundredthOfSeconds*10)
}

func parseMemoryLine(line string) float32 {
	memoryStr := strings.TrimSpace(strings.Split(line, ":")[1])
	return float32(lo.Must(strconv.ParseFloat(memoryStr, 32))) / 1024
}

func parseCpuPercentageLine(line string) int64 {
	percentageStr := strings.TrimSuffix(strings.TrimSpace(strings.Split(line, ":")[1]), "%")
	return int64(lo.Must(strconv.Atoi(percentageStr)))
}
