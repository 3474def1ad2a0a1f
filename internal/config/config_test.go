package config

import (
	"os"
	"path"
	"testing"
	"time"

	"github.com/bastos-rcd/FlOpEdt-sub000/pkg/ttmodel"
	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	file := path.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(file, []byte(content), 0666))
	return file
}

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		g := gomega.NewWithT(t)

		// Act
		config, err := Load("")

		// Assert
		g.Expect(err).NotTo(gomega.HaveOccurred())
		g.Expect(config.Solver).To(gomega.Equal("cbc"))
		g.Expect(config.MaxWeight).To(gomega.Equal(8))
		g.Expect(config.Diagnose).To(gomega.BeTrue())
	})

	t.Run("File", func(t *testing.T) {
		g := gomega.NewWithT(t)

		// Arrange
		file := writeConfig(t, `{
			"Solver": "highs",
			"SolverPaths": {"highs": "/opt/highs/bin/highs"},
			"TimeLimit": "90s",
			"RoomMode": "post-assign",
			"Ponderations": {"LunchBreak": 2.5}
		}`)

		// Act
		config, err := Load(file)

		// Assert
		g.Expect(err).NotTo(gomega.HaveOccurred())
		g.Expect(config.Solver).To(gomega.Equal("highs"))
		g.Expect(config.SolverPaths).To(gomega.HaveKeyWithValue("highs", "/opt/highs/bin/highs"))
		g.Expect(config.TimeLimit).To(gomega.Equal(90 * time.Second))
		g.Expect(config.Options().Settings.RoomMode).To(gomega.Equal(ttmodel.PostAssign))
		g.Expect(config.Options().Settings.Ponderation("LunchBreak")).To(gomega.Equal(2.5))
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		g := gomega.NewWithT(t)

		// Arrange
		file := writeConfig(t, `{"Solver": "highs", "Threads": 2}`)
		t.Setenv("FLOP_SOLVER", "glpk")
		t.Setenv("FLOP_THREADS", "4")
		t.Setenv("FLOP_TIME_LIMIT", "2m")
		t.Setenv("FLOP_VISIO", "true")
		t.Setenv("FLOP_SOLVER_PATH_GLPK", "/usr/local/bin/glpsol")

		// Act
		config, err := Load(file)

		// Assert
		g.Expect(err).NotTo(gomega.HaveOccurred())
		g.Expect(config.Solver).To(gomega.Equal("glpk"))
		g.Expect(config.Threads).To(gomega.Equal(4))
		g.Expect(config.TimeLimit).To(gomega.Equal(2 * time.Minute))
		g.Expect(config.Visio).To(gomega.BeTrue())
		g.Expect(config.SolverPaths).To(gomega.HaveKeyWithValue("glpk", "/usr/local/bin/glpsol"))
	})

	t.Run("Invalid values", func(t *testing.T) {
		cases := map[string]string{
			"unknown field":  `{"Solvers": "cbc"}`,
			"unknown solver": `{"Solver": "gurobi"}`,
			"room mode":      `{"RoomMode": "later"}`,
			"max weight":     `{"MaxWeight": 0}`,
			"malformed":      `{"Solver": `,
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				// Act
				_, err := Load(writeConfig(t, content))

				// Assert
				assert.Error(t, err)
			})
		}
	})

	t.Run("Explicit file must exist", func(t *testing.T) {
		// Act
		_, err := Load(path.Join(t.TempDir(), FileName))

		// Assert
		assert.Error(t, err)
	})

	t.Run("Invalid environment", func(t *testing.T) {
		// Arrange
		t.Setenv("FLOP_THREADS", "many")

		// Act
		_, err := Load("")

		// Assert
		assert.ErrorContains(t, err, "invalid FLOP_THREADS")
	})
}

func TestOverride(t *testing.T) {
	lookup := func(environment map[string]string) func(string) (string, bool) {
		return func(variable string) (string, bool) {
			value, ok := environment[variable]
			return value, ok
		}
	}

	t.Run("Typed fields", func(t *testing.T) {
		g := gomega.NewWithT(t)

		// Arrange
		config := Default()

		// Act
		err := config.override(lookup(map[string]string{
			"FLOP_TIME_LIMIT":        "45s",
			"FLOP_DIAGNOSE":          "false",
			"FLOP_MAX_WEIGHT":        "5",
			"FLOP_SOLVER_PATH_HIGHS": "/opt/highs",
			"DATABASE_URL":           "",
		}))

		// Assert
		g.Expect(err).NotTo(gomega.HaveOccurred())
		g.Expect(config.TimeLimit).To(gomega.Equal(45 * time.Second))
		g.Expect(config.Diagnose).To(gomega.BeFalse())
		g.Expect(config.MaxWeight).To(gomega.Equal(5))
		g.Expect(config.SolverPaths).To(gomega.HaveKeyWithValue("highs", "/opt/highs"))
		g.Expect(config.DatabaseURL).To(gomega.Equal(Default().DatabaseURL), "empty variables are ignored")
	})

	t.Run("Malformed values", func(t *testing.T) {
		for variable, value := range map[string]string{
			"FLOP_TIME_LIMIT": "soon",
			"FLOP_DIAGNOSE":   "maybe",
		} {
			// Arrange
			config := Default()

			// Act
			err := config.override(lookup(map[string]string{variable: value}))

			// Assert
			assert.ErrorContains(t, err, "invalid "+variable)
		}
	})
}

func TestOptions(t *testing.T) {
	// Arrange
	config := Default()
	config.SlotStep = 30
	config.Diagnose = false

	// Act
	options := config.Options()

	// Assert
	assert.Equal(t, 30, options.SlotStep)
	assert.False(t, options.Diagnose)
	assert.Equal(t, ttmodel.PreAssign, options.Settings.RoomMode)
	assert.Equal(t, 8, options.Settings.MaxWeight)
}
