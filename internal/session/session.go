// Package session carries heartbeat throttle state across short-lived
// processes. A long-running agent keeps its throttle in memory; each
// `pulse heartbeat` run instead restores the last accepted (file, time)
// from disk, applies the throttle, and writes the state back only after
// the heartbeat reached the collector.
package session

import "time"

// Session is the throttle state carried between one-shot heartbeat
// invocations, so a shell hook firing on every prompt does not send a
// heartbeat each time.
type Session struct {
	LastFile string  `json:"last_file"`
	LastTime float64 `json:"last_time"` // seconds since epoch, 4 decimals
	// UpdatedAt is when the state was written; stale state is ignored.
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether s is older than ttl at now.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.UpdatedAt) > ttl
}
