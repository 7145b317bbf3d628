// Package agent owns the heartbeat pipeline: it filters signals, queues
// heartbeats, keeps the collector installed and dispatches batches to it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/pulse/internal/collector"
	"github.com/fakeyudi/pulse/internal/config"
	"github.com/fakeyudi/pulse/internal/deps"
	"github.com/fakeyudi/pulse/internal/dispatch"
	"github.com/fakeyudi/pulse/internal/heartbeat"
	"github.com/fakeyudi/pulse/internal/settings"
	"github.com/fakeyudi/pulse/internal/workerpool"
)

// Installer provides a usable collector executable.
type Installer interface {
	Ensure(ctx context.Context) (deps.Descriptor, error)
}

// Options wires an Agent. Settings, Installer and Logger are required.
type Options struct {
	Config       config.Config
	AgentVersion string
	Settings     settings.Store
	Installer    Installer
	Editor       collector.EditorState
	Spawn        dispatch.SpawnFunc
	Now          func() time.Time
	Logger       *slog.Logger
}

// Agent is the single owner of process-wide state: the readiness flag,
// throttle state and cached credential. Only Install writes the flag and
// the collector path; only Append touches the throttle.
type Agent struct {
	cfg      config.Config
	identity heartbeat.Identity
	store    settings.Store
	creds    *settings.Credentials
	editor   collector.EditorState
	spawn    dispatch.SpawnFunc
	now      func() time.Time
	logger   *slog.Logger

	queue      *heartbeat.Queue
	throttle   *heartbeat.Throttle
	pool       *workerpool.Pool
	installer  Installer
	dispatcher *dispatch.Dispatcher
	watchdog   *Watchdog
	status     *Status

	ready         atomic.Bool
	collectorPath atomic.Pointer[string]
	debugOnce     sync.Once
	closeOnce     sync.Once
	warnings      chan string
}

// New builds an Agent. Nothing runs until Run or Install is called.
func New(opts Options) (*Agent, error) {
	if opts.Settings == nil || opts.Installer == nil {
		return nil, errors.New("agent: settings and installer are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Editor == nil {
		opts.Editor = collector.NewTracker()
	}
	if opts.Spawn == nil {
		opts.Spawn = dispatch.SpawnProcess
	}
	cfg := opts.Config
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = config.Duration(deps.DefaultRefreshWindow)
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = config.Duration(DefaultStatusInterval)
	}

	a := &Agent{
		cfg: cfg,
		identity: heartbeat.Identity{
			HostName:     cfg.HostName,
			HostVersion:  cfg.HostVersion,
			AgentVersion: opts.AgentVersion,
		},
		store:     opts.Settings,
		creds:     settings.NewCredentials(opts.Settings),
		editor:    opts.Editor,
		spawn:     opts.Spawn,
		now:       opts.Now,
		logger:    opts.Logger,
		queue:     heartbeat.NewQueue(),
		throttle:  heartbeat.NewThrottle(time.Duration(cfg.ThrottleWindow).Seconds()),
		pool:      workerpool.New(cfg.Workers, opts.Logger),
		installer: opts.Installer,
		warnings:  make(chan string, 8),
	}
	a.watchdog = NewWatchdog(time.Duration(cfg.BuildDelay), func(project string) {
		a.pool.Submit(func() { a.onBuildCheck(project) })
	})
	a.dispatcher = dispatch.New(dispatch.Config{
		Queue:    a.queue,
		Interval: time.Duration(cfg.Interval),
		Ready:    a.Ready,
		Options:  a.commandOptions,
		Debug:    func() bool { return a.settings().Debug },
		Spawn:    a.spawn,
		Warn:     a.warn,
		Logger:   a.logger,
	})
	a.status = &Status{
		fetch:    a.fetchToday,
		interval: time.Duration(cfg.StatusInterval),
		now:      a.now,
		ready:    a.Ready,
		enabled:  func() bool { return a.settings().StatusBarEnabled },
		logger:   a.logger,
	}
	return a, nil
}

// BuildLogger returns the process logger configured by cfg.
func BuildLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(w, hOpts))
	}
	return slog.New(slog.NewTextHandler(w, hOpts))
}

// Ready reports whether a usable collector has been found. It never goes
// back to false.
func (a *Agent) Ready() bool { return a.ready.Load() }

// CollectorPath is the executable batches are sent to, or "" before Ready.
func (a *Agent) CollectorPath() string {
	if p := a.collectorPath.Load(); p != nil {
		return *p
	}
	return ""
}

// Warnings delivers messages meant for the user rather than the log.
func (a *Agent) Warnings() <-chan string { return a.warnings }

// Credentials exposes the api key cache; SetAPIKey takes effect on the
// next batch.
func (a *Agent) Credentials() *settings.Credentials { return a.creds }

// Status exposes the today summary cache.
func (a *Agent) Status() *Status { return a.status }

// Install runs the collector install/update check and marks the agent
// ready once a usable executable exists.
func (a *Agent) Install(ctx context.Context) error {
	if err := settings.EnsureAPIURL(a.store); err != nil {
		a.logger.Warn("failed to write default api_url", "error", err)
	}
	d, err := a.installer.Ensure(ctx)
	if err != nil {
		a.logger.Error("collector is not available", "error", err)
		return err
	}
	path := d.Path
	a.collectorPath.Store(&path)
	if a.ready.CompareAndSwap(false, true) {
		a.logger.Info("collector ready", "path", path, "version", d.LocalVersion)
	}
	return nil
}

// Run installs the collector, re-checks it every refresh window, dispatches
// on every tick and consumes sources until ctx is cancelled or every source
// has ended. The final drain happens before Run returns.
func (a *Agent) Run(ctx context.Context, sources ...collector.Source) error {
	a.logger.Info("starting pulse agent", "host", a.identity.HostName, "interval", time.Duration(a.cfg.Interval))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return a.runInstallLoop(gctx) })
	g.Go(func() error { return a.dispatcher.Run(gctx) })

	if len(sources) > 0 {
		var srcWG sync.WaitGroup
		for _, src := range sources {
			srcWG.Add(1)
			g.Go(func() error {
				defer srcWG.Done()
				if err := src.Run(gctx, a.Handle); err != nil {
					a.logger.Warn("signal source stopped", "error", err)
				}
				return nil
			})
		}
		g.Go(func() error {
			srcWG.Wait()
			cancel()
			return nil
		})
	}

	err := g.Wait()
	a.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.logger.Info("pulse agent stopped")
	return nil
}

func (a *Agent) runInstallLoop(ctx context.Context) error {
	_ = a.Install(ctx)

	t := time.NewTicker(time.Duration(a.cfg.RefreshWindow))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			_ = a.Install(ctx)
		}
	}
}

// Close stops background work and performs one final synchronous drain. It
// reports whether that drain handed a batch to the collector; calls after
// the first report false.
func (a *Agent) Close() (sent bool) {
	a.closeOnce.Do(func() {
		a.watchdog.Stop()
		a.pool.Close()
		sent = a.dispatcher.Flush(context.Background())
	})
	return sent
}

// Flush sends one batch now.
func (a *Agent) Flush(ctx context.Context) bool {
	return a.dispatcher.Flush(ctx)
}

// SeedThrottle restores throttle state saved by an earlier process.
func (a *Agent) SeedThrottle(file string, ts float64) { a.throttle.Seed(file, ts) }

// LastHeartbeat returns the file and time of the last accepted signal.
func (a *Agent) LastHeartbeat() (string, float64) { return a.throttle.Last() }

// Handle routes a signal from a source.
func (a *Agent) Handle(sig collector.Signal) {
	switch sig.Kind {
	case collector.KindBuildStarted:
		a.BuildStarted(sig.Project)
	case collector.KindBuildProgress:
		a.BuildProgress()
	case collector.KindBuildFinished:
		a.BuildFinished()
	default:
		a.Append(sig)
	}
}

// Append records an activity signal as a heartbeat if the throttle lets it
// through. The enqueue itself runs on the worker pool. It reports whether
// the signal was accepted.
func (a *Agent) Append(sig collector.Signal) (accepted bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("dropping signal after panic", "panic", r)
			accepted = false
		}
	}()
	a.debugOnce.Do(a.checkDebug)

	if sig.Entity == "" {
		return false
	}
	now := heartbeat.Timestamp(a.now())
	if !a.throttle.ShouldRecord(sig.Entity, sig.IsWrite, now) {
		return false
	}

	if a.status.Due() {
		a.pool.Submit(func() { _, _ = a.status.Refresh(context.Background()) })
	}

	building := a.watchdog.Building()
	h := heartbeat.Heartbeat{
		Entity:        sig.Entity,
		Timestamp:     now,
		IsWrite:       sig.IsWrite,
		IsUnsavedFile: !exists(sig.Entity),
		Project:       sig.Project,
		Language:      sig.Language,
		IsBuilding:    building,
		LineStats:     sig.LineStats,
	}
	a.pool.Submit(func() {
		a.queue.Enqueue(h)
		if building {
			a.watchdog.ArmIfIdle()
		}
	})
	return true
}

// BuildStarted records a heartbeat for the active file when a build begins
// and arms the watchdog.
func (a *Agent) BuildStarted(project string) {
	if !a.watchdog.Start(project) {
		return
	}
	if file, ok := a.editor.CurrentActiveFile(project); ok {
		a.Append(collector.Signal{Entity: file, Project: project})
	}
}

// BuildProgress re-arms the watchdog while a build runs.
func (a *Agent) BuildProgress() { a.watchdog.Progress() }

// BuildFinished clears the building state.
func (a *Agent) BuildFinished() { a.watchdog.Finish() }

func (a *Agent) onBuildCheck(project string) {
	if !a.watchdog.Building() || !a.Ready() {
		return
	}
	file, ok := a.editor.CurrentActiveFile(project)
	if !ok {
		return
	}
	a.Append(collector.Signal{Entity: file, Project: project})
}

func (a *Agent) settings() settings.Settings {
	return settings.Load(a.store)
}

func (a *Agent) commandOptions() heartbeat.CommandOptions {
	s := a.settings()
	return heartbeat.CommandOptions{
		Executable: a.CollectorPath(),
		Identity:   a.identity,
		APIKey:     a.creds.APIKey(),
		Proxy:      s.Proxy,
		TargetURL:  s.APIURL,
		Metrics:    s.Metrics,
		Logger:     a.logger,
	}
}

// fetchToday asks the collector for today's summary.
func (a *Agent) fetchToday(ctx context.Context) (string, error) {
	exe := a.CollectorPath()
	if exe == "" {
		return "", ErrNotReady
	}
	argv := []string{exe, "--today"}
	if key := a.creds.APIKey(); key != "" {
		argv = append(argv, "--key", key)
	}
	a.logger.Debug("executing collector", "argv", heartbeat.RedactArgs(argv))

	inv, err := a.spawn(ctx, argv, nil, true)
	if err != nil {
		return "", fmt.Errorf("run collector: %w", err)
	}
	r := inv.Wait()
	a.logger.Debug("collector finished", "exit_code", r.ExitCode)
	text := strings.TrimSpace(r.Stdout + r.Stderr)
	if r.Err != nil {
		return "", fmt.Errorf("collector --today: %w: %s", r.Err, text)
	}
	return text, nil
}

func (a *Agent) checkDebug() {
	if a.settings().Debug {
		a.warn("Debug mode is enabled; your editor may respond slower. Disable it with: pulse settings set debug false")
	}
}

func (a *Agent) warn(msg string) {
	a.logger.Warn(msg)
	select {
	case a.warnings <- msg:
	default:
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
