package milp

import (
	"context"
	"log"
	"strconv"
	"strings"
)

type glpkSolver struct {
	path string
}

func NewGlpkSolver(path string) Solver {
	return &glpkSolver{path: path}
}

func (solver *glpkSolver) Name() string {
	return "glpk"
}

func (solver *glpkSolver) Solve(ctx context.Context, model *Model, params Parameters) (Solution, error) {
	if model.NumVars() == 0 {
		return emptySolution(model), nil
	}

	ws, err := newWorkspace("glpk")
	if err != nil {
		return Solution{}, err
	}
	defer ws.close()

	modelPath, err := ws.writeModel("model.lp", model)
	if err != nil {
		return Solution{}, err
	}

	// glpsol is single-threaded, params.Threads is ignored
	args := []string{"--lp", modelPath, "-w", ws.path("solution.txt")}
	if params.TimeLimit > 0 {
		args = append(args, "--tmlim", strconv.Itoa(int(params.TimeLimit.Seconds())))
	}

	stdOut, err := runSolver(ctx, params, solver.path, args...)
	if err != nil {
		return Solution{}, err
	}

	output, err := ws.read("solution.txt")
	if err != nil {
		return Solution{}, err
	}
	solution := parseGlpkSolution(output, model.NumVars())
	solution.Log = stdOut
	return solution, completeSolution(model, &solution)
}

// glpsol's -w output identifies columns by their order of appearance in the LP file, which is the
// variables' index order since the objective lists every variable:
//
//	s mip 3 2 o 1
//	j 1 1
//	j 2 0
//	e o f
func parseGlpkSolution(output string, numVars int) Solution {
	status := StatusUnknown
	values := make([]float64, numVars)
	for _, line := range nonEmptyLines(output) {
		fields := strings.Fields(line)
		switch fields[0] {
		case "s":
			if len(fields) < 5 {
				log.Panicf("invalid status line in glpk solution: %q", line)
			}
			switch fields[4] {
			case "o":
				status = StatusOptimal
			case "f":
				status = StatusFeasible
			case "n":
				status = StatusInfeasible
			case "u":
				status = StatusTimeLimit
			}
		case "j":
			if len(fields) < 3 {
				log.Panicf("invalid column line in glpk solution: %q", line)
			}
			column, err := strconv.Atoi(fields[1])
			if err != nil || column < 1 || column > numVars {
				log.Panicf("invalid column %v in glpk solution", fields[1])
			}
			value, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				log.Panicf("invalid value in glpk solution: %v", err)
			}
			values[column-1] = value
		}
	}
	if !status.HasSolution() {
		return Solution{Status: status}
	}
	return Solution{Status: status, Values: values}
}
