package milp

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type highsSolver struct {
	path string
}

func NewHighsSolver(path string) Solver {
	return &highsSolver{path: path}
}

func (solver *highsSolver) Name() string {
	return "highs"
}

func (solver *highsSolver) Solve(ctx context.Context, model *Model, params Parameters) (Solution, error) {
	if model.NumVars() == 0 {
		return emptySolution(model), nil
	}

	ws, err := newWorkspace("highs")
	if err != nil {
		return Solution{}, err
	}
	defer ws.close()

	modelPath, err := ws.writeModel("model.lp", model)
	if err != nil {
		return Solution{}, err
	}

	args := []string{"--model_file", modelPath, "--solution_file", ws.path("solution.txt")}
	if params.TimeLimit > 0 {
		args = append(args, "--time_limit", strconv.FormatFloat(params.TimeLimit.Seconds(), 'f', -1, 64))
	}
	if params.Threads > 0 {
		options := fmt.Sprintf("threads = %d\nmip_rel_gap = 0\n", params.Threads)
		if err := os.WriteFile(ws.path("options.txt"), []byte(options), 0o644); err != nil {
			return Solution{}, fmt.Errorf("failed to write options file: %v", err)
		}
		args = append(args, "--options_file", ws.path("options.txt"))
	}

	stdOut, err := runSolver(ctx, params, solver.path, args...)
	if err != nil {
		return Solution{}, err
	}

	output, err := ws.read("solution.txt")
	if err != nil {
		return Solution{}, err
	}
	solution := parseHighsSolution(output, model.NumVars())
	solution.Log = stdOut
	return solution, completeSolution(model, &solution)
}

// HiGHS solution files read:
//
//	Model status
//	Optimal
//
//	# Primal solution values
//	Feasible
//	Objective 1
//	# Columns 2
//	x0 1
//	x1 0
//	# Rows 1
//	...
func parseHighsSolution(output string, numVars int) Solution {
	lines := nonEmptyLines(output)

	modelStatus, primalStatus := "", ""
	values := make([]float64, numVars)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case line == "Model status" && i+1 < len(lines):
			i++
			modelStatus = lines[i]
		case line == "# Primal solution values" && i+1 < len(lines):
			i++
			primalStatus = lines[i]
		case strings.HasPrefix(line, "# Columns"):
			count, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "# Columns")))
			if err != nil {
				log.Panicf("invalid column count in highs solution: %v", err)
			}
			for j := 0; j < count && i+1 < len(lines); j++ {
				i++
				fields := strings.Fields(lines[i])
				if len(fields) < 2 {
					log.Panicf("invalid column line in highs solution: %q", lines[i])
				}
				v := parseVarName(fields[0])
				if v < 0 || v >= numVars {
					log.Panicf("unknown column %v in highs solution", fields[0])
				}
				value, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					log.Panicf("invalid value in highs solution: %v", err)
				}
				values[v] = value
			}
		case strings.HasPrefix(line, "# Rows"), strings.HasPrefix(line, "# Dual solution values"):
			i = len(lines) // Rows and duals are not needed
		}
	}

	hasValues := primalStatus == "Feasible"
	switch {
	case modelStatus == "Optimal":
		return Solution{Status: StatusOptimal, Values: values}
	case strings.Contains(modelStatus, "nfeasible"):
		return Solution{Status: StatusInfeasible}
	case strings.Contains(modelStatus, "limit") && hasValues:
		return Solution{Status: StatusFeasible, Values: values}
	case strings.Contains(modelStatus, "limit"):
		return Solution{Status: StatusTimeLimit}
	}
	return Solution{Status: StatusUnknown}
}
