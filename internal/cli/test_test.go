package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: adjacent_pair
description: "Two adjacent singletons coalesce"
steps:
  - intern: 3
    as: a
  - intern: 4
    as: b
  - union: [a, b]
    as: ab
assertions:
  - type: decodes_to
    label: ab
    ranges: [[3, 5]]
`

const failingScenario = `name: wrong_ranges
description: "Asserts a range the union does not produce"
steps:
  - intern: 3
    as: a
  - intern: 10
    as: c
  - union: [a, c]
    as: ac
assertions:
  - type: decodes_to
    label: ac
    ranges: [[3, 11]]
`

// scenarioDir writes the given files into a fresh directory.
func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, newTestRootOptions("text"), NewTestCommand)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentDirectory(t *testing.T) {
	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "scenarios directory not found")
}

func TestTestCommandEmptyDirectory(t *testing.T) {
	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandEmptyDirectoryJSON(t *testing.T) {
	out, err := execute(t, newTestRootOptions("json"), NewTestCommand, t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"adjacent_pair.yaml": passingScenario})

	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adjacent_pair\n")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"adjacent_pair.yaml": passingScenario,
		"wrong_ranges.yaml":  failingScenario,
	})

	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_ranges")
	assert.Contains(t, out, "{[3,4) [10,11)}")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"wrong_ranges.yaml": failingScenario})

	out, err := execute(t, newTestRootOptions("json"), NewTestCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandMalformedScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yml": "name: [\n"})

	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"adjacent_pair.yaml": passingScenario})

	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ adjacent_pair (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "adjacent_pair.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"adjacent_pair"`)

	// A second run compares against the file just written.
	out, err = execute(t, newTestRootOptions("json"), NewTestCommand, dir)
	require.NoError(t, err)

	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"adjacent_pair.yaml": passingScenario})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "adjacent_pair.golden"), []byte("{}"), 0644))

	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"adjacent_pair.yaml": passingScenario,
		"wrong_ranges.yaml":  failingScenario,
	})

	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir, "--filter", "adjacent_*")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong_ranges")
}

func TestTestCommandInvalidFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"adjacent_pair.yaml": passingScenario})

	_, err := execute(t, newTestRootOptions("text"), NewTestCommand, dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	out, err := execute(t, newTestRootOptions("text"), NewTestCommand, filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 2 passed, 0 failed, 2 total")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "pair.golden"), goldenFilePath(filepath.Join("scenarios", "pair.yaml")))
	assert.Equal(t, filepath.Join("golden", "x.golden"), goldenFilePath("x.yml"))
}
