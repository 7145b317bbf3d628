package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Duration is a time.Duration that reads and writes as a Go duration
// string ("30s", "4h") in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the agent's own tunables. Collector settings (api key,
// proxy, debug) live in the shared INI file, not here.
type Config struct {
	HostName       string   `json:"host_name"`
	HostVersion    string   `json:"host_version"`
	Interval       Duration `json:"interval"`        // flush tick
	ThrottleWindow Duration `json:"throttle_window"` // same-file suppression
	BuildDelay     Duration `json:"build_delay"`
	RefreshWindow  Duration `json:"refresh_window"` // collector version staleness
	StatusInterval Duration `json:"status_interval"`
	ResourcesDir   string   `json:"resources_dir"`
	Workers        int      `json:"workers"`
	LogLevel       string   `json:"log_level"` // "debug" | "info" | "warn" | "error"
	LogJSON        bool     `json:"log_json"`
}

// Defaults returns the default agent configuration.
func Defaults() Config {
	return Config{
		HostName:       "pulse",
		HostVersion:    "unknown",
		Interval:       Duration(30 * time.Second),
		ThrottleWindow: Duration(120 * time.Second),
		BuildDelay:     Duration(10 * time.Second),
		RefreshWindow:  Duration(4 * time.Hour),
		StatusInterval: Duration(60 * time.Second),
		Workers:        2,
		LogLevel:       "info",
	}
}

// GlobalPath returns ~/.config/pulse/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pulse", "config.json"), nil
}

// LoadGlobal reads ~/.config/pulse/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .pulse.json in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".pulse.json", false)
}

func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Zero values fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, c := range []*Config{global, project} {
		if c == nil {
			continue
		}
		if c.HostName != "" {
			result.HostName = c.HostName
		}
		if c.HostVersion != "" {
			result.HostVersion = c.HostVersion
		}
		if c.Interval > 0 {
			result.Interval = c.Interval
		}
		if c.ThrottleWindow > 0 {
			result.ThrottleWindow = c.ThrottleWindow
		}
		if c.BuildDelay > 0 {
			result.BuildDelay = c.BuildDelay
		}
		if c.RefreshWindow > 0 {
			result.RefreshWindow = c.RefreshWindow
		}
		if c.StatusInterval > 0 {
			result.StatusInterval = c.StatusInterval
		}
		if c.ResourcesDir != "" {
			result.ResourcesDir = c.ResourcesDir
		}
		if c.Workers > 0 {
			result.Workers = c.Workers
		}
		if c.LogLevel != "" {
			result.LogLevel = c.LogLevel
		}
		if c.LogJSON {
			result.LogJSON = true
		}
	}
	return result
}

// ApplyEnv overrides cfg with PULSE_* environment variables. Unparseable
// values are ignored.
func ApplyEnv(cfg Config) Config {
	cfg.HostName = env("PULSE_HOST_NAME", cfg.HostName)
	cfg.HostVersion = env("PULSE_HOST_VERSION", cfg.HostVersion)
	cfg.Interval = Duration(envDuration("PULSE_INTERVAL", time.Duration(cfg.Interval)))
	cfg.ThrottleWindow = Duration(envDuration("PULSE_THROTTLE_WINDOW", time.Duration(cfg.ThrottleWindow)))
	cfg.BuildDelay = Duration(envDuration("PULSE_BUILD_DELAY", time.Duration(cfg.BuildDelay)))
	cfg.RefreshWindow = Duration(envDuration("PULSE_REFRESH_WINDOW", time.Duration(cfg.RefreshWindow)))
	cfg.Workers = envInt("PULSE_WORKERS", cfg.Workers)
	cfg.LogLevel = strings.ToLower(env("PULSE_LOG_LEVEL", cfg.LogLevel))
	cfg.LogJSON = envBool("PULSE_LOG_JSON", cfg.LogJSON)
	return cfg
}

// Load merges the global and project files and applies the environment.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, err
	}
	cfg := ApplyEnv(Merge(global, project))
	return cfg, cfg.Validate()
}

// Validate rejects configurations the agent cannot run with.
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New("interval must be > 0")
	}
	if c.ThrottleWindow < 0 {
		return errors.New("throttle_window must be >= 0")
	}
	if c.BuildDelay <= 0 {
		return errors.New("build_delay must be > 0")
	}
	if c.RefreshWindow <= 0 {
		return errors.New("refresh_window must be > 0")
	}
	if c.StatusInterval <= 0 {
		return errors.New("status_interval must be > 0")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be > 0")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func env(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envBool(key string, fallback bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
