package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// copyScenario copies a scenario from testdata into dir.
func copyScenario(t *testing.T, dir, name string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
}

func TestTestCommandPasses(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", scenariosDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ two_way")
	assert.Contains(t, out, "✓ fan_out")
	assert.Contains(t, out, "✓ decomposition_cycle")
	assert.Contains(t, out, "Test Summary: 3 passed, 0 failed, 3 total")
	assert.Contains(t, out, "All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", scenariosDir, "--filter", "two_*")
	require.NoError(t, err)

	assert.Contains(t, out, "two_way")
	assert.NotContains(t, out, "fan_out")
	assert.Contains(t, out, "1 total")
}

func TestTestCommandJSON(t *testing.T) {
	out, err := execute(t, NewTestCommand, "json", scenariosDir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 3, resp.Data.Passed)

	for _, s := range resp.Data.Scenarios {
		if s.Name == "decomposition_cycle" {
			assert.Equal(t, "CYCLE", s.ErrorCode)
		}
	}
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "two_way")

	out, err := execute(t, NewTestCommand, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "golden updated")

	got, err := os.ReadFile(filepath.Join(dir, "golden", "two_way.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosDir, "golden", "two_way.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	// A second run compares against the file just written.
	_, err = execute(t, NewTestCommand, "text", dir)
	require.NoError(t, err)
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	copyScenario(t, dir, "two_way")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "two_way.golden"), []byte("{}"), 0644))

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ two_way")
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: broken\nbogus: 1\n"), 0644))

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandMissingDirectory(t *testing.T) {
	_, err := execute(t, NewTestCommand, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "not found")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b", "golden", "c.golden"), goldenFilePath(filepath.Join("a", "b", "c.yaml")))
}
