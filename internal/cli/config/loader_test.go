package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "treeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err, "explicit config file must exist")
	assert.Nil(t, cfg)

	// Without an explicit file the loader falls back to defaults.
	dir := t.TempDir()
	cfg, err = LoadConfig(writeConfig(t, dir, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultTreesDir), cfg.TreesDir)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, "sqlite", cfg.StateBackend)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultUIPort, cfg.GetUIConfig().Port)
	assert.True(t, cfg.GetUIConfig().Watch)
}

func TestLoadFromFile(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	path := writeConfig(t, dir, `
trees_dir: snapshots
host: living-room
device: device2
ui:
  port: 9000
  watch: false
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "snapshots"), cfg.TreesDir)
	assert.Equal(t, "living-room", cfg.Host)
	assert.Equal(t, "device2", cfg.Device)
	assert.Equal(t, 9000, cfg.UI.Port)
	assert.False(t, cfg.UI.Watch)
	assert.Equal(t, dir, cfg.ProjectRoot, "config file directory becomes project root")
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestEnvOverridesFile(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	path := writeConfig(t, dir, "host: living-room\n")

	t.Setenv("TREELINE_HOST", "bedroom")
	t.Setenv("TREELINE_UI__PORT", "7001")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "bedroom", cfg.Host)
	assert.Equal(t, 7001, cfg.UI.Port)
}

func TestFlagsOverrideEverything(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	path := writeConfig(t, dir, "host: living-room\n")
	t.Setenv("TREELINE_HOST", "bedroom")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--host", "kitchen", "--state", "custom.db"}))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "kitchen", cfg.Host)

	// The --state flag maps to state_path, pinned relative to CWD.
	cwd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "custom.db"), cfg.StatePath)
}

func TestUnchangedFlagsDoNotOverride(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	path := writeConfig(t, dir, "host: living-room\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("host", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "living-room", cfg.Host)
}

func TestFindProjectRootUpward(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	assert.Equal(t, root, findProjectRootUpward(nested))
	assert.Empty(t, findProjectRootUpward(t.TempDir()))
}

func TestAbsolutePathsPassThrough(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	dir := t.TempDir()
	path := writeConfig(t, dir, "state_path: /var/lib/treeline/state.db\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/treeline/state.db", cfg.StatePath)
}
