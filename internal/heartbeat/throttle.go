package heartbeat

import (
	"strings"
	"sync"
)

// DefaultThrottleWindow is the minimum spacing, in seconds, between recorded
// non-write signals on the same file.
const DefaultThrottleWindow = 120.0

// ignoredNames are IDE metadata files that never produce heartbeats, matched
// against the whole path.
var ignoredNames = []string{"atlassian-ide-plugin.xml"}

// ignoredSubstrings are path fragments of IDE workspace state.
var ignoredSubstrings = []string{"/.idea/workspace.xml"}

// Throttle suppresses redundant non-write signals. It remembers the last
// accepted file and its timestamp; only accepted signals move that state.
type Throttle struct {
	mu       sync.Mutex
	window   float64
	lastFile string
	lastTime float64
}

// NewThrottle returns a Throttle with the given window in seconds. A
// non-positive window falls back to DefaultThrottleWindow.
func NewThrottle(window float64) *Throttle {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &Throttle{window: window}
}

// Seed sets the last accepted signal. Used when resuming from a known state.
func (t *Throttle) Seed(file string, ts float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastFile = file
	t.lastTime = ts
}

// Last returns the last accepted file and timestamp.
func (t *Throttle) Last() (string, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFile, t.lastTime
}

// ShouldRecord reports whether a signal for file at now should become a
// heartbeat. Write signals always pass. A non-write signal on the last
// accepted file passes only once the window has elapsed.
func (t *Throttle) ShouldRecord(file string, isWrite bool, now float64) bool {
	if !ShouldLogFile(file) {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !isWrite && file == t.lastFile && now-t.lastTime < t.window {
		return false
	}
	t.lastFile = file
	t.lastTime = now
	return true
}

// ShouldLogFile reports whether file is eligible for heartbeats at all.
func ShouldLogFile(file string) bool {
	if file == "" || strings.HasPrefix(file, "mock://") {
		return false
	}
	for _, name := range ignoredNames {
		if file == name {
			return false
		}
	}
	for _, sub := range ignoredSubstrings {
		if strings.Contains(file, sub) {
			return false
		}
	}
	return true
}
