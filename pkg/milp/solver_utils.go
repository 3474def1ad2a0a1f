package milp

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/samber/lo"
)

// Default executables, looked up in PATH
const (
	cbcPath   = "cbc"
	highsPath = "highs"
	glpkPath  = "glpsol"
)

// Grace period granted to an external solver past its own time limit before it gets killed
const killGrace = time.Minute

// workspace is a temporary directory holding a solver's input and output files
type workspace struct {
	dir string
}

func newWorkspace(prefix string) (*workspace, error) {
	dir, err := os.MkdirTemp("", prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %v", err)
	}
	return &workspace{dir: dir}, nil
}

func (ws *workspace) path(name string) string {
	return filepath.Join(ws.dir, name)
}

func (ws *workspace) close() {
	if err := os.RemoveAll(ws.dir); err != nil {
		glog.Warningf("failed to remove temporary directory %v: %v", ws.dir, err)
	}
}

func (ws *workspace) writeModel(name string, model *Model) (string, error) {
	path := ws.path(name)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create model file: %v", err)
	}
	defer file.Close()

	if err := WriteLP(file, model); err != nil {
		return "", fmt.Errorf("failed to write model file: %v", err)
	}
	return path, nil
}

func (ws *workspace) read(name string) (string, error) {
	content, err := os.ReadFile(ws.path(name))
	if err != nil {
		return "", fmt.Errorf("failed to read solver output: %v", err)
	}
	return string(content), nil
}

// runSolver executes an external solver and returns its standard output.
// Unless interrupts are ignored, cancelling ctx kills the process.
func runSolver(ctx context.Context, params Parameters, executable string, args ...string) (string, error) {
	if params.IgnoreInterrupts {
		ctx = context.WithoutCancel(ctx)
	}
	if params.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, params.TimeLimit+killGrace)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, executable, args...)
	if params.IgnoreInterrupts {
		detach(cmd) // Keep terminal signals away from the solver's process group
	}

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if params.Verbose {
		glog.Infof("running %v %v", executable, args)
	}
	err := cmd.Run()
	if ctx.Err() != nil {
		return stdOut.String(), fmt.Errorf("%v execution was interrupted: %w", executable, ctx.Err())
	}
	if err != nil {
		return stdOut.String(), fmt.Errorf("an error occurred during %v execution: %v : %v", executable, err.Error(), stderr.String())
	}
	return stdOut.String(), nil
}

// emptySolution answers models without variables, which external solvers reject
func emptySolution(model *Model) Solution {
	if len(model.Violated()) > 0 {
		return Solution{Status: StatusInfeasible}
	}
	return Solution{Status: StatusOptimal, Objective: model.Objective().Constant(), Values: []float64{}}
}

func nonEmptyLines(output string) []string {
	return lo.Compact(lo.Map(strings.Split(output, "\n"), func(line string, _ int) string {
		return strings.TrimSpace(line)
	}))
}
