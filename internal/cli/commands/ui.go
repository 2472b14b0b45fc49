package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/treeline-labs/treeline/internal/cli/config"
	"github.com/treeline-labs/treeline/internal/engine"
	"github.com/treeline-labs/treeline/internal/session"
	"github.com/treeline-labs/treeline/internal/ui"
)

// UIOptions holds options for the ui command.
type UIOptions struct {
	Port      int
	NoBrowser bool
	Watch     bool
}

// NewUICommand creates the ui command.
func NewUICommand() *cobra.Command {
	opts := &UIOptions{}

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the Treeline control panel",
		Long: `Start a local web server providing the validation control panel.

The panel provides:
- Tree overview with last-run health
- Live validation runs with per-edge progress
- Node and edge status coloring
- Run history with per-edge results`,
		Example: `  # Start on the default port
  treeline ui

  # Start on a custom port
  treeline ui --port 3000

  # Start without auto-opening the browser
  treeline ui --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to serve on (default: 8765)")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Watch trees and profile for changes")

	return cmd
}

func runUI(cmd *cobra.Command, opts *UIOptions) error {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	uiCfg := cfg.GetUIConfig()

	// CLI flags override config file
	port := uiCfg.Port
	if opts.Port != 0 {
		port = opts.Port
	}
	autoOpen := uiCfg.AutoOpen
	if opts.NoBrowser {
		autoOpen = false
	}
	watch := uiCfg.Watch
	if cmd.Flags().Changed("watch") {
		watch = opts.Watch
	}

	if _, err := os.Stat(cfg.TreesDir); os.IsNotExist(err) {
		return fmt.Errorf("trees directory does not exist: %s", cfg.TreesDir)
	}

	catalog, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	profiles, err := loadProfiles(cfg)
	if err != nil {
		return err
	}
	host, _, err := resolveHost(profiles, cfg)
	if err != nil {
		return err
	}
	c, err := newHostClient(cmd, host)
	if err != nil {
		return err
	}

	history, err := openHistory(cfg, cmd)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	sess := session.New(nil)
	eng := engine.New(engine.Config{
		Client:  c,
		Session: sess,
		History: history,
		Logger:  logger,
	})

	server, err := ui.NewServer(ui.Config{
		Engine:        eng,
		Session:       sess,
		History:       history,
		Trees:         catalog,
		Profiles:      profiles,
		Port:          port,
		Watch:         watch,
		TreesDir:      cfg.TreesDir,
		ProfilePath:   cfg.ProfilePath,
		SessionSecret: sessionSecret(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if autoOpen {
		go openBrowser(fmt.Sprintf("http://localhost:%d", port))
	}

	fmt.Printf("Starting control panel on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")

	return server.Serve(cmd.Context())
}

// sessionSecret returns the cookie-signing secret, from the environment when
// set.
func sessionSecret() string {
	if secret := os.Getenv("TREELINE_SESSION_SECRET"); secret != "" {
		return secret
	}
	// Default secret for local development only.
	return "treeline-dev-secret-change-in-production" //nolint:gosec
}
