package deps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fakeyudi/pulse/internal/settings"
)

// Release endpoints.
const (
	DefaultReleasesURL = "https://api.github.com/repos/wakatime/wakatime-cli/releases/latest"
	DefaultDownloadURL = "https://github.com/wakatime/wakatime-cli/releases/latest/download"
	DefaultMissingURL  = "https://api.wakatime.com/api/v1/cli-missing"
)

// LocalBuild is what a collector built from source prints for --version.
// Such builds are never replaced.
const LocalBuild = "<local-build>"

// DefaultRefreshWindow is how long a version check stays fresh.
const DefaultRefreshWindow = 4 * time.Hour

// OverrideEnv names an existing collector to use as-is.
const OverrideEnv = "WAKATIME_CLI_LOCATION"

// VersionFunc runs exe --version and returns its trimmed output. A non-nil
// error means the binary is unusable.
type VersionFunc func(ctx context.Context, exe string) (string, error)

// RunVersion is the VersionFunc used outside tests.
func RunVersion(ctx context.Context, exe string) (string, error) {
	out, err := exec.CommandContext(ctx, exe, "--version").CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// StalenessCache is the persisted result of the last release check.
type StalenessCache struct {
	LastCheckedAt int64
	RemoteVersion string
	LastModified  string
}

// Descriptor describes the collector the agent will invoke.
type Descriptor struct {
	// Path is what the dispatcher runs: the override or the stable link.
	Path string
	// Executable is the platform-named binary behind Path.
	Executable   string
	LocalVersion string
	Platform     Platform
	Override     bool
	Cache        StalenessCache
}

// Options configures a Manager. Zero values take defaults.
type Options struct {
	ResourcesDir  string
	Platform      Platform
	RefreshWindow time.Duration
	// Plugin identifies the host in platform-gap reports.
	Plugin   string
	Internal settings.Store
	Fetcher  *Fetcher
	Version  VersionFunc
	Now      func() time.Time
	Logger   *slog.Logger

	ReleasesURL string
	DownloadURL string
	MissingURL  string
}

// Manager guarantees a runnable, current collector at a stable path.
type Manager struct {
	opts       Options
	reportOnce sync.Once
}

// ResourcesDir returns $PULSE_HOME when set and existing, else ~/.pulse.
func ResourcesDir() (string, error) {
	if h := strings.TrimSpace(os.Getenv("PULSE_HOME")); h != "" {
		if fi, err := os.Stat(h); err == nil && fi.IsDir() {
			return h, nil
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".pulse"), nil
}

// NewManager fills in defaults and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.ResourcesDir == "" {
		dir, err := ResourcesDir()
		if err != nil {
			return nil, err
		}
		opts.ResourcesDir = dir
	}
	if opts.Platform == (Platform{}) {
		opts.Platform = Detect()
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(FetcherOptions{Logger: opts.Logger})
	}
	if opts.Version == nil {
		opts.Version = RunVersion
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ReleasesURL == "" {
		opts.ReleasesURL = DefaultReleasesURL
	}
	if opts.DownloadURL == "" {
		opts.DownloadURL = DefaultDownloadURL
	}
	if opts.MissingURL == "" {
		opts.MissingURL = DefaultMissingURL
	}
	if opts.Internal == nil {
		return nil, errors.New("deps: internal settings store is required")
	}
	return &Manager{opts: opts}, nil
}

// ExecutablePath is the platform-named binary in the resources directory.
func (m *Manager) ExecutablePath() string {
	return filepath.Join(m.opts.ResourcesDir, m.opts.Platform.ExecutableName())
}

// LinkPath is the stable path republished after every install.
func (m *Manager) LinkPath() string {
	return filepath.Join(m.opts.ResourcesDir, m.opts.Platform.LinkName())
}

// Ensure installs or updates the collector as needed and returns the path to
// invoke. An error means no usable collector exists.
func (m *Manager) Ensure(ctx context.Context) (Descriptor, error) {
	log := m.opts.Logger
	d := Descriptor{Platform: m.opts.Platform}

	if !m.opts.Platform.Supported() {
		m.reportOnce.Do(func() { m.ReportMissing(ctx) })
	}

	if override := strings.TrimSpace(os.Getenv(OverrideEnv)); override != "" {
		if _, err := os.Stat(override); err == nil {
			log.Debug("using collector override", "path", override)
			d.Path, d.Executable, d.Override = override, override, true
			return d, nil
		}
	}

	exe := m.ExecutablePath()
	d.Executable = exe

	if _, err := os.Stat(exe); err != nil {
		log.Info("installing collector", "path", exe)
		if err := m.Install(ctx); err != nil {
			return d, fmt.Errorf("install collector: %w", err)
		}
	} else {
		current, local := m.IsCurrent(ctx, exe)
		d.LocalVersion = local
		if !current {
			log.Info("upgrading collector", "path", exe, "local_version", local)
			if err := m.Install(ctx); err != nil {
				// The previous binary is untouched and still usable.
				log.Warn("collector upgrade failed", "error", err)
			}
		} else {
			log.Debug("collector is up to date", "version", local)
		}
	}

	if _, err := os.Stat(exe); err != nil {
		return d, fmt.Errorf("collector missing after install: %w", err)
	}

	d.Path = m.LinkPath()
	if err := Publish(exe, d.Path, m.opts.Platform.Windows()); err != nil {
		log.Warn("failed to publish stable collector path", "link", d.Path, "error", err)
		d.Path = exe
	}
	d.Cache = m.cache()
	return d, nil
}

// IsCurrent runs the version check. It returns false when the binary fails
// to report a version or a newer release exists. Network failures count as
// current so an offline start keeps the installed binary.
func (m *Manager) IsCurrent(ctx context.Context, exe string) (bool, string) {
	log := m.opts.Logger

	local, err := m.opts.Version(ctx, exe)
	if err != nil {
		log.Debug("collector version check failed", "path", exe, "output", local, "error", err)
		return false, local
	}
	if local == LocalBuild {
		return true, local
	}

	now := m.opts.Now().Unix()
	if v, ok := m.opts.Internal.Get(settings.SectionInternal, settings.KeyCLIVersionLastAccessed); ok {
		if last, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			if time.Duration(now-last)*time.Second < m.opts.RefreshWindow {
				log.Debug("skipping collector update check", "checked_ago", time.Duration(now-last)*time.Second)
				return true, local
			}
		}
	}

	remote, err := m.LatestVersion(ctx)
	switch {
	case errors.Is(err, ErrNotModified):
		return true, local
	case err != nil:
		log.Warn("failed to fetch latest collector version", "error", err)
		return true, local
	}
	log.Debug("latest collector version", "version", remote)
	return local == remote, local
}

// LatestVersion queries the release metadata. The checked-at timestamp is
// always refreshed; the last-modified token and version are only replaced by
// a 200 response carrying Last-Modified.
func (m *Manager) LatestVersion(ctx context.Context) (string, error) {
	store := m.opts.Internal
	defer func() {
		now := strconv.FormatInt(m.opts.Now().Unix(), 10)
		if err := store.Set(settings.SectionInternal, settings.KeyCLIVersionLastAccessed, now); err != nil {
			m.opts.Logger.Warn("failed to record version check", "error", err)
		}
	}()

	token, _ := store.Get(settings.SectionInternal, settings.KeyCLIVersionLastModified)
	resp, err := m.opts.Fetcher.Get(ctx, m.opts.ReleasesURL, token)
	if err != nil {
		return "", err
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.Unmarshal(resp.Body, &release); err != nil {
		return "", fmt.Errorf("decode release metadata: %w", err)
	}
	if release.TagName == "" {
		return "", errors.New("release metadata has no tag_name")
	}
	if resp.LastModified != "" {
		if err := store.Set(settings.SectionInternal, settings.KeyCLIVersionLastModified, resp.LastModified); err != nil {
			return release.TagName, err
		}
		if err := store.Set(settings.SectionInternal, settings.KeyCLIVersion, release.TagName); err != nil {
			return release.TagName, err
		}
	}
	return release.TagName, nil
}

// Install downloads the release archive for the platform, extracts it into
// the resources directory and marks the binary executable. A failure at any
// step leaves the previous binary in place.
func (m *Manager) Install(ctx context.Context) error {
	dir := m.opts.ResourcesDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, CollectorName+"-*.zip")
	if err != nil {
		return err
	}
	archive := tmp.Name()
	tmp.Close()
	defer os.Remove(archive)

	src := m.opts.DownloadURL + "/" + m.opts.Platform.ArchiveName()
	if err := m.opts.Fetcher.Download(ctx, src, archive); err != nil {
		return fmt.Errorf("download %s: %w", src, err)
	}
	if _, err := Extract(archive, dir); err != nil {
		return err
	}

	exe := m.ExecutablePath()
	if _, err := os.Stat(exe); err != nil {
		return fmt.Errorf("archive did not contain %s: %w", filepath.Base(exe), err)
	}
	if !m.opts.Platform.Windows() {
		if err := os.Chmod(exe, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// ReportMissing tells the gap endpoint there is no build for the platform.
// Failures are logged and ignored.
func (m *Manager) ReportMissing(ctx context.Context) {
	q := url.Values{}
	q.Set("osname", m.opts.Platform.OS)
	q.Set("architecture", m.opts.Platform.Arch)
	q.Set("plugin", m.opts.Plugin)
	target := m.opts.MissingURL + "?" + q.Encode()

	if _, err := m.opts.Fetcher.Get(ctx, target, ""); err != nil {
		m.opts.Logger.Warn("failed to report unsupported platform", "platform", m.opts.Platform.String(), "error", err)
	}
}

func (m *Manager) cache() StalenessCache {
	var c StalenessCache
	store := m.opts.Internal
	if v, ok := store.Get(settings.SectionInternal, settings.KeyCLIVersionLastAccessed); ok {
		c.LastCheckedAt, _ = strconv.ParseInt(v, 10, 64)
	}
	c.RemoteVersion, _ = store.Get(settings.SectionInternal, settings.KeyCLIVersion)
	c.LastModified, _ = store.Get(settings.SectionInternal, settings.KeyCLIVersionLastModified)
	return c
}
