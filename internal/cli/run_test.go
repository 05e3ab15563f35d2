package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: cli_pass
description: open, query and close an in-memory database
calls:
  - method: openDatabase
    args: {path: ":memory:"}
    expect:
      status: success
      result: {id: 1}
  - method: query
    args: {id: 1, sql: "SELECT 1 AS one"}
    expect:
      status: success
      result: {columns: [one], rows: [[1]]}
  - method: closeDatabase
    args: {id: 1}
assertions:
  - type: open_sessions
    count: 0
`

const failingScenario = `
name: cli_fail
description: query on an unknown id is expected to succeed and does not
calls:
  - method: query
    args: {id: 99, sql: "SELECT 1"}
    expect:
      status: success
`

func writeScenario(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestRunRequiresArgs(t *testing.T) {
	configFile, _ := testConfig(t)
	_, _, err := execute(t, "--config", configFile, "run")
	require.Error(t, err)
}

func TestRunPassingScenario(t *testing.T) {
	configFile, _ := testConfig(t)
	path := writeScenario(t, t.TempDir(), "pass.yaml", passingScenario)

	out, _, err := execute(t, "--config", configFile, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS cli_pass")
}

func TestRunFailingScenario(t *testing.T) {
	configFile, _ := testConfig(t)
	dir := t.TempDir()
	writeScenario(t, dir, "a_pass.yaml", passingScenario)
	writeScenario(t, dir, "b_fail.yml", failingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")

	out, _, err := execute(t, "--config", configFile, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 scenarios failed")
	assert.Contains(t, out, "PASS cli_pass")
	assert.Contains(t, out, "FAIL cli_fail")
}

func TestRunJSONTranscript(t *testing.T) {
	configFile, _ := testConfig(t)
	path := writeScenario(t, t.TempDir(), "pass.yaml", passingScenario)

	out, _, err := execute(t, "--config", configFile, "--format", "json", "run", "--transcript", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []ScenarioReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Pass)

	var transcript []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data[0].Transcript, &transcript))
	require.Len(t, transcript, 3)
	assert.Equal(t, "openDatabase", transcript[0]["method"])
	assert.Equal(t, "success", transcript[2]["status"])
}

func TestRunInvalidScenario(t *testing.T) {
	configFile, _ := testConfig(t)
	path := writeScenario(t, t.TempDir(), "bad.yaml", "name: bad\ncalls: not-a-list\n")

	_, _, err := execute(t, "--config", configFile, "run", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenarioFilesMissingPath(t *testing.T) {
	_, err := scenarioFiles([]string{filepath.Join(t.TempDir(), "absent")})
	require.Error(t, err)
}
