// Package commands_test provides tests for CLI command creation and behavior.
package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/treeline-labs/treeline/internal/cli/config"
)

const testSnapshot = `
id: tree-main
name: Main
nodes:
  - id: entry
    type: entry
  - id: home
    label: Home
  - id: settings
    label: Settings
edges:
  - id: e1
    source: entry
    target: home
  - id: e2
    source: home
    target: settings
`

// setupProject points the env-fallback config at a temp project with one
// tree snapshot and JSON output.
func setupProject(t *testing.T) string {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := t.TempDir()
	treesDir := filepath.Join(dir, "trees")
	require.NoError(t, os.MkdirAll(treesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(treesDir, "main.yaml"), []byte(testSnapshot), 0o644))

	t.Setenv("TREELINE_TREES_DIR", treesDir)
	t.Setenv("TREELINE_STATE_PATH", filepath.Join(dir, ".treeline", "state.db"))
	t.Setenv("TREELINE_REPORTS_DIR", filepath.Join(dir, ".treeline", "reports"))
	t.Setenv("TREELINE_PROFILE", filepath.Join(dir, "hosts.star"))
	t.Setenv("TREELINE_OUTPUT", "json")
	return dir
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate <tree-id>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Example)

	for _, flag := range []string{"batch", "skip-edges", "tui", "report"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewPreviewCommand(t *testing.T) {
	cmd := NewPreviewCommand()

	assert.Equal(t, "preview <tree-id>", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("offline"))
}

func TestNewWebCommand(t *testing.T) {
	cmd := NewWebCommand()

	subs := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subs[sub.Name()] = true
	}
	for _, name := range []string{"navigate", "click", "input", "tap", "elements", "info", "capture", "repl"} {
		assert.True(t, subs[name], "subcommand %q should exist", name)
	}
}

func TestNewUICommand(t *testing.T) {
	cmd := NewUICommand()

	for _, flag := range []string{"port", "no-browser", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestTreesCommandListsSnapshots(t *testing.T) {
	setupProject(t)

	cmd := NewTreesCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	require.NoError(t, cmd.Execute())

	var infos []TreeInfo
	require.NoError(t, json.Unmarshal(buf.Bytes(), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "tree-main", infos[0].ID)
	assert.Equal(t, 3, infos[0].Nodes)
	assert.Equal(t, 2, infos[0].ReachableEdges)
	assert.True(t, infos[0].HasEntry)
}

func TestPreviewCommandOffline(t *testing.T) {
	setupProject(t)

	cmd := NewPreviewCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"tree-main", "--offline"})

	require.NoError(t, cmd.Execute())

	var out PreviewOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "offline", out.Source)
	assert.Equal(t, []string{"e1", "e2"}, out.ReachableEdges)
	assert.Equal(t, 3, out.TotalNodes)
}

func TestPreviewCommandUnknownTree(t *testing.T) {
	setupProject(t)

	cmd := NewPreviewCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"nope", "--offline"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

// hostBackend serves the preview and per-edge execute endpoints with a
// canned passing result.
func hostBackend(t *testing.T) *httptest.Server {
	t.Helper()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasPrefix(req.URL.Path, "/server/validation/preview/") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"preview": map[string]any{"totalNodes": 3, "totalEdges": 2},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"success": true, "execution_time": 0.01,
				"actions_executed": 1, "total_actions": 1,
			},
		})
	}))
	t.Cleanup(backend.Close)
	return backend
}

func TestValidateCommandEndToEnd(t *testing.T) {
	setupProject(t)

	backend := hostBackend(t)
	t.Setenv("TREELINE_HOST_URL", backend.URL)

	cmd := NewValidateCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"tree-main"})

	require.NoError(t, cmd.Execute())

	var results struct {
		TreeID  string `json:"TreeID"`
		Summary struct {
			TotalTested int
			Successful  int
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	assert.Equal(t, "tree-main", results.TreeID)
	assert.Equal(t, 2, results.Summary.TotalTested)
	assert.Equal(t, 2, results.Summary.Successful)
}

func TestRunsCommandAfterValidate(t *testing.T) {
	setupProject(t)

	backend := hostBackend(t)
	t.Setenv("TREELINE_HOST_URL", backend.URL)

	validate := NewValidateCommand()
	validate.SetOut(new(bytes.Buffer))
	validate.SetErr(new(bytes.Buffer))
	validate.SetArgs([]string{"tree-main"})
	require.NoError(t, validate.Execute())

	runs := NewRunsCommand()
	buf := new(bytes.Buffer)
	runs.SetOut(buf)
	runs.SetErr(new(bytes.Buffer))
	require.NoError(t, runs.Execute())

	var listed []struct {
		TreeID string
		Status string
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "tree-main", listed[0].TreeID)
	assert.Equal(t, "completed", listed[0].Status)
}

func TestValidateCommandSkipEdges(t *testing.T) {
	setupProject(t)

	backend := hostBackend(t)
	t.Setenv("TREELINE_HOST_URL", backend.URL)

	cmd := NewValidateCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"tree-main", "--skip-edges", "e2"})

	require.NoError(t, cmd.Execute())

	var results struct {
		Summary struct {
			TotalTested int
			Skipped     int
		}
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	assert.Equal(t, 1, results.Summary.TotalTested)
	assert.Equal(t, 1, results.Summary.Skipped)
}
