package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Merge precedence: project over global over defaults, per field.
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)
	positiveDuration := rapid.Int64Range(1, int64(24*time.Hour))

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasHostName") {
			cfg.HostName = nonEmptyString.Draw(t, "hostName")
		}
		if rapid.Bool().Draw(t, "hasResourcesDir") {
			cfg.ResourcesDir = nonEmptyString.Draw(t, "resourcesDir")
		}
		if rapid.Bool().Draw(t, "hasInterval") {
			cfg.Interval = Duration(positiveDuration.Draw(t, "interval"))
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "HostName",
			global.HostName, project.HostName, defaults.HostName, merged.HostName)
		checkStringField(t, "ResourcesDir",
			global.ResourcesDir, project.ResourcesDir, defaults.ResourcesDir, merged.ResourcesDir)

		want := defaults.Interval
		switch {
		case project.Interval > 0:
			want = project.Interval
		case global.Interval > 0:
			want = global.Interval
		}
		if merged.Interval != want {
			t.Fatalf("Interval: want %v, got %v", time.Duration(want), time.Duration(merged.Interval))
		}
	})
}

func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if time.Duration(d.Interval) != 30*time.Second {
		t.Errorf("Interval: want 30s, got %v", time.Duration(d.Interval))
	}
	if time.Duration(d.ThrottleWindow) != 120*time.Second {
		t.Errorf("ThrottleWindow: want 2m, got %v", time.Duration(d.ThrottleWindow))
	}
	if time.Duration(d.BuildDelay) != 10*time.Second {
		t.Errorf("BuildDelay: want 10s, got %v", time.Duration(d.BuildDelay))
	}
	if time.Duration(d.RefreshWindow) != 4*time.Hour {
		t.Errorf("RefreshWindow: want 4h, got %v", time.Duration(d.RefreshWindow))
	}
	if d.Workers != 2 {
		t.Errorf("Workers: want 2, got %d", d.Workers)
	}
	if err := d.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected non-nil config, got nil")
	}
	if *cfg != Defaults() {
		t.Errorf("got %+v, want defaults", *cfg)
	}
}

func TestLoadGlobalReadsDurations(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "pulse")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	body := `{"host_name":"vim","interval":"45s","refresh_window":"1h"}`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HostName != "vim" {
		t.Errorf("HostName = %q", cfg.HostName)
	}
	if time.Duration(cfg.Interval) != 45*time.Second {
		t.Errorf("Interval = %v", time.Duration(cfg.Interval))
	}
	if time.Duration(cfg.RefreshWindow) != time.Hour {
		t.Errorf("RefreshWindow = %v", time.Duration(cfg.RefreshWindow))
	}
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	tmp := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(orig) })

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "pulse")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(`{"interval": 30}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %T: %v", err, err)
	}
	if parseErr.Path != filepath.Join(cfgDir, "config.json") {
		t.Errorf("Path = %q", parseErr.Path)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PULSE_HOST_NAME", "goland")
	t.Setenv("PULSE_INTERVAL", "5s")
	t.Setenv("PULSE_THROTTLE_WINDOW", "not-a-duration")
	t.Setenv("PULSE_LOG_LEVEL", "DEBUG")
	t.Setenv("PULSE_LOG_JSON", "yes")

	cfg := ApplyEnv(Defaults())
	if cfg.HostName != "goland" {
		t.Errorf("HostName = %q", cfg.HostName)
	}
	if time.Duration(cfg.Interval) != 5*time.Second {
		t.Errorf("Interval = %v", time.Duration(cfg.Interval))
	}
	if cfg.ThrottleWindow != Defaults().ThrottleWindow {
		t.Errorf("bad duration should be ignored, got %v", time.Duration(cfg.ThrottleWindow))
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON = false, want true")
	}
}

func TestValidate(t *testing.T) {
	bad := []func(*Config){
		func(c *Config) { c.Interval = 0 },
		func(c *Config) { c.BuildDelay = 0 },
		func(c *Config) { c.Workers = 0 },
		func(c *Config) { c.RefreshWindow = 0 },
		func(c *Config) { c.RefreshWindow = Duration(-time.Minute) },
		func(c *Config) { c.StatusInterval = 0 },
		func(c *Config) { c.LogLevel = "verbose" },
	}
	for i, mutate := range bad {
		c := Defaults()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestValidate_RejectsZeroRefreshWindowFromEnv(t *testing.T) {
	t.Setenv("PULSE_REFRESH_WINDOW", "0s")
	c := ApplyEnv(Defaults())
	if c.RefreshWindow != 0 {
		t.Fatalf("RefreshWindow = %v, want 0 from env", time.Duration(c.RefreshWindow))
	}
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for refresh_window 0")
	}
}

func TestDurationJSON(t *testing.T) {
	b, err := json.Marshal(Duration(90 * time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"1m30s"` {
		t.Errorf("Marshal = %s", b)
	}
	var d Duration
	if err := json.Unmarshal([]byte(`"250ms"`), &d); err != nil {
		t.Fatal(err)
	}
	if time.Duration(d) != 250*time.Millisecond {
		t.Errorf("Unmarshal = %v", time.Duration(d))
	}
}
