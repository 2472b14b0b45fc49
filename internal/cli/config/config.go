// Package config loads CLI configuration from file, environment and flags.
package config

// Config holds all CLI configuration options.
type Config struct {
	TreesDir     string `mapstructure:"trees_dir"`
	ProfilePath  string `mapstructure:"profile"`
	StatePath    string `mapstructure:"state_path"`
	StateBackend string `mapstructure:"state_backend"`
	StateDSN     string `mapstructure:"state_dsn"`
	ReportsDir   string `mapstructure:"reports_dir"`

	// Host and Device select a host profile entry; HostURL bypasses the
	// profile file entirely for one-off hosts.
	Host    string `mapstructure:"host"`
	Device  string `mapstructure:"device"`
	HostURL string `mapstructure:"host_url"`

	Verbose      bool     `mapstructure:"verbose"`
	OutputFormat string   `mapstructure:"output"`
	UI           UIConfig `mapstructure:"ui"`

	// ProjectRoot is the resolved project directory, never read from file.
	ProjectRoot string `mapstructure:"-"`
}

// UIConfig holds web UI server settings.
type UIConfig struct {
	Port     int  `mapstructure:"port"`
	Watch    bool `mapstructure:"watch"`
	AutoOpen bool `mapstructure:"auto_open"`
}

// Default configuration values.
const (
	DefaultTreesDir     = "trees"
	DefaultProfileFile  = "hosts.star"
	DefaultStateFile    = ".treeline/state.db"
	DefaultReportsDir   = ".treeline/reports"
	DefaultStateBackend = "sqlite"
	DefaultOutput       = "auto" // TTY=text, piped=markdown
	DefaultUIPort       = 8765
)

// GetUIConfig returns the UI settings with defaults applied.
func (c *Config) GetUIConfig() UIConfig {
	ui := c.UI
	if ui.Port == 0 {
		ui.Port = DefaultUIPort
	}
	return ui
}
