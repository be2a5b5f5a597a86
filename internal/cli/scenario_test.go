package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harnessData returns an absolute path under the harness testdata.
func harnessData(t *testing.T, parts ...string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join(append([]string{"..", "harness", "testdata"}, parts...)...))
	require.NoError(t, err)
	return path
}

const failingScenario = `name: wrong-score
description: "Expects a score the game cannot produce"
settings: { team: Owls, rounds: 1, predicted_score: 0 }
claims:
  - { id: c1, text: "x", answer: "TRUE" }
rounds:
  - { verdict: "TRUE", confidence: 1 }
expect:
  score: 5
`

func TestScenario_PassesWithGolden(t *testing.T) {
	scenario := harnessData(t, "scenarios", "perfect-calibrated.yaml")
	golden := harnessData(t, "golden")
	e := newEnv(t)

	stdout, _, err := e.run("", "scenario", "--golden", golden, scenario)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ perfect-calibrated")
	assert.Contains(t, stdout, "Scenarios: 1 passed, 0 failed, 1 total")
}

func TestScenario_Failure(t *testing.T) {
	e := newEnv(t)
	path := e.write("wrong.yaml", failingScenario)

	stdout, _, err := e.run("", "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ wrong-score")
	assert.Contains(t, stdout, "expected score 5, got 1")
}

func TestScenario_LoadError(t *testing.T) {
	e := newEnv(t)
	path := e.write("broken.yaml", "name: x\nbogus: true\n")

	stdout, _, err := e.run("", "scenario", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "✗ broken.yaml")
	assert.Contains(t, stdout, "load:")
}

func TestScenario_UpdateThenCompare(t *testing.T) {
	scenario := harnessData(t, "scenarios", "hints-and-misses.yaml")
	expectedPath := harnessData(t, "golden", "hints-and-misses.golden")
	e := newEnv(t)
	golden := filepath.Join(e.dir, "golden")

	_, _, err := e.run("", "scenario", "--golden", golden, scenario)
	require.Error(t, err, "missing golden file fails")

	_, _, err = e.run("", "scenario", "--golden", golden, "--update", scenario)
	require.NoError(t, err)

	written, err := os.ReadFile(filepath.Join(golden, "hints-and-misses.golden"))
	require.NoError(t, err)
	expected, err := os.ReadFile(expectedPath)
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	_, _, err = e.run("", "scenario", "--golden", golden, scenario)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(golden, "hints-and-misses.golden"), []byte("{}\n"), 0o644))
	stdout, _, err := e.run("", "scenario", "--golden", golden, scenario)
	require.Error(t, err)
	assert.Contains(t, stdout, "trace does not match golden file")
}

func TestScenario_UpdateRequiresGolden(t *testing.T) {
	e := newEnv(t)
	_, _, err := e.run("", "scenario", "--update", "x.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenario_JSONFailure(t *testing.T) {
	e := newEnv(t)
	path := e.write("wrong.yaml", failingScenario)

	stdout, _, err := e.run("", "--format", "json", "scenario", path)
	require.Error(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   ScenarioReport `json:"data"`
		Error  CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeScenario, resp.Error.Code)
	assert.Equal(t, 1, resp.Data.Failed)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}
