package agent

import (
	"sync"
	"time"
)

// DefaultBuildDelay is how long after a build starts the watchdog checks
// whether it is still running.
const DefaultBuildDelay = 10 * time.Second

// Watchdog tracks whether the host is building and fires once per arming
// while it is. fire runs on the timer goroutine and must not block.
type Watchdog struct {
	delay time.Duration
	fire  func(project string)

	mu       sync.Mutex
	building bool
	project  string
	timer    *time.Timer
}

// NewWatchdog returns an idle watchdog.
func NewWatchdog(delay time.Duration, fire func(project string)) *Watchdog {
	if delay <= 0 {
		delay = DefaultBuildDelay
	}
	return &Watchdog{delay: delay, fire: fire}
}

// Start marks project as building and arms the timer. It reports whether
// this was a transition into the building state.
func (w *Watchdog) Start(project string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	started := !w.building
	w.building = true
	w.project = project
	w.armLocked()
	return started
}

// Progress re-arms the timer while building.
func (w *Watchdog) Progress() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.building {
		w.armLocked()
	}
}

// ArmIfIdle arms the timer while building unless a check is already pending.
func (w *Watchdog) ArmIfIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.building && w.timer == nil {
		w.armLocked()
	}
}

// Finish clears the building state and cancels any pending check.
func (w *Watchdog) Finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.building = false
	w.stopLocked()
}

// Building reports whether a build is in progress.
func (w *Watchdog) Building() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.building
}

// Stop cancels any pending check without changing the building state.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopLocked()
}

func (w *Watchdog) armLocked() {
	w.stopLocked()
	var t *time.Timer
	t = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		if w.timer != t {
			w.mu.Unlock()
			return
		}
		w.timer = nil
		building, project := w.building, w.project
		w.mu.Unlock()

		if building {
			w.fire(project)
		}
	})
	w.timer = t
}

func (w *Watchdog) stopLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
