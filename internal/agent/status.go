package agent

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStatusInterval is the minimum spacing between status refreshes.
const DefaultStatusInterval = 60 * time.Second

// ErrNotReady is returned while no collector is available.
var ErrNotReady = errors.New("collector is not ready")

// StatusFunc fetches today's activity summary.
type StatusFunc func(ctx context.Context) (string, error)

// Status caches the "today" summary shown by status bars.
type Status struct {
	fetch    StatusFunc
	interval time.Duration
	now      func() time.Time
	ready    func() bool
	enabled  func() bool
	logger   *slog.Logger

	group singleflight.Group

	mu        sync.Mutex
	text      string
	fetchedAt time.Time
}

// Text returns the cached summary, or "" when the collector is not ready or
// the status bar is disabled.
func (s *Status) Text() string {
	if !s.ready() || !s.enabled() {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Stale reports whether a refresh is due.
func (s *Status) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.fetchedAt) >= s.interval
}

// Due reports whether a background refresh should be started.
func (s *Status) Due() bool {
	return s.ready() && s.Stale() && s.enabled()
}

// Refresh fetches the summary unless it is still fresh. Concurrent callers
// share one fetch. A failed fetch still counts as an attempt, so the next
// one waits a full interval.
func (s *Status) Refresh(ctx context.Context) (string, error) {
	if !s.ready() {
		return "", ErrNotReady
	}
	if !s.Stale() {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.text, nil
	}
	v, err, _ := s.group.Do("today", func() (any, error) {
		s.mu.Lock()
		s.fetchedAt = s.now()
		s.mu.Unlock()

		text, err := s.fetch(ctx)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.text = text
		s.mu.Unlock()
		return text, nil
	})
	if err != nil {
		s.logger.Warn("failed to refresh status", "error", err)
		return "", err
	}
	return v.(string), nil
}
