package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../../testdata/scenarios"

const failingScenario = `name: wrong_winner
flow:
  - identity: edge-alpha
    submit:
      report_id: r-1
      title: "Later"
      content: "c"
      updated_at: "2025-03-14T10:05:00Z"
  - identity: edge-bravo
    submit:
      report_id: r-1
      title: "Earlier"
      content: "c"
      updated_at: "2025-03-14T10:00:00Z"
assertions:
  - type: latest
    report_id: r-1
    expect:
      title: "Earlier"
`

func TestTestCommand_Scenarios(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ concurrent_edit")
	assert.Contains(t, out, "✓ timestamp_tie")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_Filter(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	out, _, err := execute(cmd, scenariosDir, "--filter", "timestamp_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "timestamp_tie", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_MissingDir(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	_, _, err := execute(cmd, filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_EmptyDir(t *testing.T) {
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommand_FailingScenario(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_winner.yaml"), []byte(failingScenario), 0o644))

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_winner")
	assert.Contains(t, out, "1 failed")
}

func TestTestCommand_UpdateThenCompareGolden(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(scenariosDir, "concurrent_edit.yaml"))
	require.NoError(t, err)
	scenarioPath := filepath.Join(dir, "concurrent_edit.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, src, 0o644))

	cmd := NewTestCommand(&RootOptions{Format: "text"})
	out, _, err := execute(cmd, dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	goldenPath := goldenFilePath(scenarioPath)
	assert.Equal(t, filepath.Join(dir, "golden", "concurrent_edit.golden"), goldenPath)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"concurrent_edit"`)

	// A second run matches the golden it just wrote.
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	_, _, err = execute(cmd, dir)
	require.NoError(t, err)

	// A drifted golden fails the scenario.
	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"concurrent_edit"}`), 0o644))
	cmd = NewTestCommand(&RootOptions{Format: "text"})
	out, _, err = execute(cmd, dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}
