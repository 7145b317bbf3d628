package collector

import (
	"sync"

	"github.com/fakeyudi/pulse/internal/heartbeat"
)

// Tracker is an EditorState built from observed signals. It remembers the
// last entity seen per project.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]string
	last   string
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]string)}
}

// Observe records s as the active file of its project.
func (t *Tracker) Observe(s Signal) {
	if s.Entity == "" {
		return
	}
	t.mu.Lock()
	t.active[s.Project] = s.Entity
	t.last = s.Entity
	t.mu.Unlock()
}

// CurrentActiveFile implements EditorState. An empty project returns the
// most recent file of any project.
func (t *Tracker) CurrentActiveFile(project string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if project == "" {
		return t.last, t.last != ""
	}
	f, ok := t.active[project]
	return f, ok
}

// LineStats implements EditorState. offset counts characters, not bytes;
// line number and cursor position are 1-based.
func (t *Tracker) LineStats(document string, offset int) (heartbeat.LineStats, bool) {
	return lineStats(document, offset)
}

func lineStats(document string, offset int) (heartbeat.LineStats, bool) {
	runes := []rune(document)
	if offset < 0 || offset > len(runes) {
		return heartbeat.LineStats{}, false
	}
	stats := heartbeat.LineStats{LineCount: 1, LineNumber: 1}
	lineStart := 0
	for i, r := range runes {
		if r != '\n' {
			continue
		}
		stats.LineCount++
		if i < offset {
			stats.LineNumber++
			lineStart = i + 1
		}
	}
	stats.CursorPosition = offset - lineStart + 1
	return stats, true
}
