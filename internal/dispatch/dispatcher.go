// Package dispatch ships queued heartbeats to the collector executable.
package dispatch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fakeyudi/pulse/internal/heartbeat"
)

// DefaultInterval is the flush period.
const DefaultInterval = 30 * time.Second

// Invocation is a started collector run.
type Invocation interface {
	Wait() Result
	Release(done func(Result))
}

// SpawnFunc starts a collector invocation. Tests replace it.
type SpawnFunc func(ctx context.Context, argv []string, input []byte, capture bool) (Invocation, error)

// SpawnProcess is the default SpawnFunc.
func SpawnProcess(ctx context.Context, argv []string, input []byte, capture bool) (Invocation, error) {
	p, err := Spawn(ctx, argv, input, capture)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Config wires a Dispatcher to the rest of the agent. Funcs are called on
// every tick so settings changes apply without a restart.
type Config struct {
	Queue    *heartbeat.Queue
	Interval time.Duration
	// Ready gates every tick; nothing is sent until it reports true.
	Ready   func() bool
	Options func() heartbeat.CommandOptions
	Debug   func() bool
	Spawn   SpawnFunc
	// Warn receives user-facing messages, e.g. when the OS blocks the
	// collector from running.
	Warn   func(msg string)
	Logger *slog.Logger
}

// Dispatcher drains the queue on a fixed tick. Only Run's goroutine calls
// Flush, so at most one batch is in flight.
type Dispatcher struct {
	cfg Config
}

// New returns a Dispatcher with defaults applied.
func New(cfg Config) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Spawn == nil {
		cfg.Spawn = SpawnProcess
	}
	if cfg.Debug == nil {
		cfg.Debug = func() bool { return false }
	}
	if cfg.Warn == nil {
		cfg.Warn = func(string) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{cfg: cfg}
}

// Run ticks until ctx is cancelled, then performs one final drain.
func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			d.Flush(context.WithoutCancel(ctx))
			return nil
		case <-t.C:
			d.Flush(ctx)
		}
	}
}

// Flush sends one batch if the agent is ready and anything is queued. It
// reports whether a batch was handed to the collector.
func (d *Dispatcher) Flush(ctx context.Context) (sent bool) {
	log := d.cfg.Logger
	defer func() {
		if r := recover(); r != nil {
			log.Error("dispatch panicked, batch dropped", "panic", r)
			sent = false
		}
	}()

	if d.cfg.Ready != nil && !d.cfg.Ready() {
		return false
	}
	primary, extras, ok := d.cfg.Queue.NextBatch()
	if !ok {
		return false
	}

	opts := d.cfg.Options()
	if opts.Logger == nil {
		opts.Logger = log
	}
	argv, err := heartbeat.BuildCommand(primary, opts, len(extras) > 0)
	if err != nil {
		log.Error("cannot build collector command, batch dropped", "error", err, "heartbeats", 1+len(extras))
		return false
	}

	var input []byte
	if len(extras) > 0 {
		input = []byte(heartbeat.EncodeExtras(extras) + "\n")
	}

	debug := d.cfg.Debug()
	log.Debug("executing collector", "argv", heartbeat.RedactArgs(argv), "extras", len(extras))

	proc, err := d.cfg.Spawn(ctx, argv, input, debug)
	if err != nil {
		log.Warn("failed to run collector, batch dropped", "error", err, "heartbeats", 1+len(extras))
		d.checkBlocked(opts.Executable, err.Error())
		return false
	}

	if !debug {
		proc.Release(func(r Result) {
			if r.Err != nil {
				log.Warn("collector exited with error", "exit_code", r.ExitCode, "error", r.Err)
			}
		})
		return true
	}

	r := proc.Wait()
	if r.Stdout != "" {
		log.Debug("collector stdout", "output", r.Stdout)
	}
	if r.Stderr != "" {
		log.Debug("collector stderr", "output", r.Stderr)
	}
	log.Debug("collector finished", "exit_code", r.ExitCode)
	if r.Err != nil {
		d.checkBlocked(opts.Executable, r.Stderr+" "+r.Err.Error())
	}
	return true
}

// blockSignatures are failure texts produced when the OS or antivirus
// refuses to run the collector.
var blockSignatures = []string{"Access is denied", "operation not permitted"}

func (d *Dispatcher) checkBlocked(exe, failure string) {
	for _, sig := range blockSignatures {
		if strings.Contains(failure, sig) {
			d.cfg.Warn("The operating system is blocking " + exe + ". Allow it to run so activity can be uploaded.")
			return
		}
	}
}
