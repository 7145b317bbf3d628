// Package heartbeat defines the heartbeat record and the pieces of the
// pipeline that act on individual records: throttling, queueing, argv
// construction for the collector, and the extra-heartbeats JSON encoding.
package heartbeat

import (
	"math"
	"strconv"
	"time"
)

// Heartbeat is one recorded activity signal. It is created by a producer at
// signal time and is not modified afterwards.
type Heartbeat struct {
	Entity        string     // file path or other identifier, required
	Timestamp     float64    // decimal seconds since the epoch
	IsWrite       bool       // produced by a save
	IsUnsavedFile bool       // the entity does not exist on disk yet
	Project       string     // optional, empty when unknown
	Language      string     // optional, empty when unknown
	IsBuilding    bool       // a build was running when the signal fired
	LineStats     *LineStats // optional, all three values or nothing
}

// LineStats holds the document position at signal time. LineNumber and
// CursorPosition are 1-based.
type LineStats struct {
	LineCount      int `json:"line_count"`
	LineNumber     int `json:"line_number"`
	CursorPosition int `json:"cursor_position"`
}

// Timestamp converts t to decimal seconds rounded to four fractional digits.
func Timestamp(t time.Time) float64 {
	secs := float64(t.UnixNano()) / float64(time.Second)
	return math.Round(secs*10000) / 10000
}

// FormatTimestamp renders ts the way the collector expects it on the command
// line and in the extra-heartbeats payload: plain decimal, four digits.
func FormatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 4, 64)
}
