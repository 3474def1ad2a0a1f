package milp

import (
	"context"
	"log"
	"strconv"
	"strings"
)

type cbcSolver struct {
	path string
}

func NewCbcSolver(path string) Solver {
	return &cbcSolver{path: path}
}

func (solver *cbcSolver) Name() string {
	return "cbc"
}

func (solver *cbcSolver) Solve(ctx context.Context, model *Model, params Parameters) (Solution, error) {
	if model.NumVars() == 0 {
		return emptySolution(model), nil
	}

	ws, err := newWorkspace("cbc")
	if err != nil {
		return Solution{}, err
	}
	defer ws.close()

	modelPath, err := ws.writeModel("model.lp", model)
	if err != nil {
		return Solution{}, err
	}

	args := []string{modelPath}
	if params.TimeLimit > 0 {
		args = append(args, "sec", strconv.Itoa(int(params.TimeLimit.Seconds())))
	}
	if params.Threads > 0 {
		args = append(args, "threads", strconv.Itoa(params.Threads))
	}
	args = append(args, "solve", "solu", ws.path("solution.txt"))

	stdOut, err := runSolver(ctx, params, solver.path, args...)
	if err != nil {
		return Solution{}, err
	}

	output, err := ws.read("solution.txt")
	if err != nil {
		return Solution{}, err
	}
	solution := parseCbcSolution(output, model.NumVars())
	solution.Log = stdOut
	return solution, completeSolution(model, &solution)
}

// CBC solution files start with a status line and only list non-zero columns:
//
//	Optimal - objective value 1.00000000
//	      0 x0                     1                       0
func parseCbcSolution(output string, numVars int) Solution {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return Solution{Status: StatusUnknown}
	}

	header := lines[0]
	status := StatusUnknown
	switch {
	case strings.HasPrefix(header, "Optimal"):
		status = StatusOptimal
	case strings.Contains(strings.ToLower(header), "infeasible"):
		status = StatusInfeasible
	case strings.HasPrefix(header, "Stopped"):
		status = StatusFeasible
		if strings.Contains(header, "no integer solution") {
			status = StatusTimeLimit
		}
	}
	if !status.HasSolution() {
		return Solution{Status: status}
	}

	values := make([]float64, numVars)
	for _, line := range lines[1:] {
		fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "**"))
		if len(fields) < 3 {
			continue
		}
		v := parseVarName(fields[1])
		if v < 0 || v >= numVars {
			log.Panicf("unknown column %v in cbc solution", fields[1])
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			log.Panicf("invalid value in cbc solution: %v", err)
		}
		values[v] = value
	}
	return Solution{Status: status, Values: values}
}

// parseVarName returns the index behind an x<index> column name, -1 when it is not one
func parseVarName(name string) int {
	if !strings.HasPrefix(name, "x") {
		return -1
	}
	index, err := strconv.Atoi(name[1:])
	if err != nil {
		return -1
	}
	return index
}
