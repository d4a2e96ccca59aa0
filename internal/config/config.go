// Package config provides the YAML-based application configuration with
// first-run creation, normalization of partial files, and atomic saves.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"freecal/internal/model"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web view. When
// nil (or either field empty) the server runs unauthenticated.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Input is the tabular event source: a local file path or an http(s)
	// URL (a published spreadsheet CSV is the expected remote case).
	Input string `yaml:"input" json:"input"`

	// Report is an optional path for the text report. Empty means the
	// report goes to stdout only.
	Report string `yaml:"report" json:"report"`

	// Listen is the HTTP listen address used by serve mode.
	Listen string `yaml:"listen" json:"listen"`

	// WeekStart controls which weekday leads the rendered week. Supported
	// values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule (e.g. "*/15 * * * *") for
	// serve-mode re-reads of the input source.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds the HTTP cache for remote input sources.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Snapshot is an optional PNG path; serve mode captures the web view
	// there after each refresh.
	Snapshot string `yaml:"snapshot" json:"snapshot"`

	// ICS is an optional path for the exported weekly calendar.
	ICS string `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input:       "./events.csv",
		Report:      "",
		Listen:      "127.0.0.1:8274",
		WeekStart:   "monday",
		RefreshCron: "*/15 * * * *",
		CacheDir:    "./cache",
		Snapshot:    "",
		ICS:         "",
		BasicAuth:   nil,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs (e.g. older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Input == "" {
		c.Input = "./events.csv"
	}
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8274"
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	case "":
		c.WeekStart = "monday"
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/15 * * * *"
	}
	if c.CacheDir == "" {
		c.CacheDir = "./cache"
	}
}

// WeekStartDay maps the configured week_start onto a weekday. Normalize
// guarantees the value is either "monday" or "sunday".
func (c *Config) WeekStartDay() model.Weekday {
	if c.WeekStart == "sunday" {
		return model.Sunday
	}
	return model.Monday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create the parent directory if needed,
//     write a default config with 0600 perms, and return the defaults.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures the parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(dir, ".freecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
