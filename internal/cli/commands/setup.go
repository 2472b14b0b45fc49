// Package commands implements the treeline subcommands.
package commands

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/cli/config"
	"github.com/treeline-labs/treeline/internal/client"
	"github.com/treeline-labs/treeline/internal/loader"
	"github.com/treeline-labs/treeline/internal/profile"
	"github.com/treeline-labs/treeline/internal/state"
	"github.com/treeline-labs/treeline/pkg/core"
)

// getConfig returns the current configuration. It uses the config loaded by
// the root command when available, otherwise falls back to environment
// variables with defaults.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	return &config.Config{
		TreesDir:     getEnvOrDefault("TREELINE_TREES_DIR", config.DefaultTreesDir),
		ProfilePath:  getEnvOrDefault("TREELINE_PROFILE", config.DefaultProfileFile),
		StatePath:    getEnvOrDefault("TREELINE_STATE_PATH", config.DefaultStateFile),
		StateBackend: getEnvOrDefault("TREELINE_STATE_BACKEND", config.DefaultStateBackend),
		ReportsDir:   getEnvOrDefault("TREELINE_REPORTS_DIR", config.DefaultReportsDir),
		Host:         os.Getenv("TREELINE_HOST"),
		Device:       os.Getenv("TREELINE_DEVICE"),
		HostURL:      os.Getenv("TREELINE_HOST_URL"),
		OutputFormat: os.Getenv("TREELINE_OUTPUT"),
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openCatalog loads the tree snapshot catalog from the configured directory.
func openCatalog(cfg *config.Config) (*loader.Catalog, error) {
	catalog := loader.NewCatalog(cfg.TreesDir)
	if err := catalog.Reload(); err != nil {
		return nil, fmt.Errorf("failed to load trees from %s: %w", cfg.TreesDir, err)
	}
	return catalog, nil
}

// findTree resolves a tree ID against the catalog.
func findTree(catalog *loader.Catalog, id string) (*core.Tree, error) {
	tree := catalog.Get(id)
	if tree == nil {
		return nil, fmt.Errorf("tree %q not found (known: %d trees)", id, len(catalog.List()))
	}
	return tree, nil
}

// loadProfiles reads the hosts.star profile file. A missing file is not an
// error when host_url is configured; a synthetic single-host profile is
// returned instead.
func loadProfiles(cfg *config.Config) (*profile.Profiles, error) {
	if _, err := os.Stat(cfg.ProfilePath); err != nil {
		if cfg.HostURL != "" {
			return &profile.Profiles{Hosts: []profile.Host{
				{Name: "default", URL: cfg.HostURL, Default: true},
			}}, nil
		}
		return nil, fmt.Errorf("profile file %s not found (set host_url to skip profiles): %w", cfg.ProfilePath, err)
	}
	return profile.Load(cfg.ProfilePath)
}

// resolveHost picks the host and device to talk to: the configured host name
// when set, otherwise the profile's default host.
func resolveHost(profiles *profile.Profiles, cfg *config.Config) (*profile.Host, string, error) {
	var host *profile.Host
	if cfg.Host != "" {
		host = profiles.Host(cfg.Host)
		if host == nil {
			return nil, "", fmt.Errorf("host %q not found in profile", cfg.Host)
		}
	} else {
		host = profiles.DefaultHost()
		if host == nil {
			return nil, "", fmt.Errorf("profile defines no hosts")
		}
	}

	deviceID := cfg.Device
	if d := host.Device(deviceID); d != nil {
		deviceID = d.ID
	}
	return host, deviceID, nil
}

// newHostClient builds a REST client for the resolved host.
func newHostClient(cmd *cobra.Command, host *profile.Host) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: host.URL,
		Logger:  config.GetLogger(cmd.Context()),
	})
}

// openHistory opens the run-history store for the configured backend.
// The caller must Close the returned store.
func openHistory(cfg *config.Config, cmd *cobra.Command) (core.Store, error) {
	logger := config.GetLogger(cmd.Context())

	var store core.Store
	var dsn string
	switch cfg.StateBackend {
	case "postgres":
		store = state.NewPostgresStore(logger)
		dsn = cfg.StateDSN
		if dsn == "" {
			return nil, fmt.Errorf("state_backend postgres requires state_dsn")
		}
	case "", "sqlite":
		stateDir := filepath.Dir(cfg.StatePath)
		if stateDir != "." && stateDir != "" {
			if err := os.MkdirAll(stateDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		store = state.NewSQLiteStore(logger)
		dsn = cfg.StatePath
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}

	if err := store.Open(dsn); err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate run history: %w", err)
	}
	return store, nil
}

// openBrowser opens the URL in the platform browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_ = cmd.Start()
}
