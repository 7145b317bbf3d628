// Package collector turns editor and filesystem activity into signals for
// the agent.
package collector

import (
	"context"

	"github.com/fakeyudi/pulse/internal/heartbeat"
)

// Kind distinguishes activity signals from build lifecycle events.
type Kind string

const (
	KindActivity      Kind = ""
	KindBuildStarted  Kind = "build_started"
	KindBuildProgress Kind = "build_progress"
	KindBuildFinished Kind = "build_finished"
)

// Signal is one raw event from an editor or the filesystem.
type Signal struct {
	Kind     Kind   `json:"kind,omitempty"`
	Entity   string `json:"entity"`
	IsWrite  bool   `json:"is_write,omitempty"`
	Project  string `json:"project,omitempty"`
	Language string `json:"language,omitempty"`

	// Document and Offset let the source compute line stats when the
	// editor does not send them itself.
	Document  *string              `json:"document,omitempty"`
	Offset    int                  `json:"offset,omitempty"`
	LineStats *heartbeat.LineStats `json:"line_stats,omitempty"`
}

// Source produces signals until ctx is cancelled or its input ends.
type Source interface {
	Run(ctx context.Context, emit func(Signal)) error
}

// EditorState answers questions about the editor the agent cannot observe
// directly.
type EditorState interface {
	// CurrentActiveFile returns the file focused in project's editor.
	CurrentActiveFile(project string) (string, bool)
	// LineStats locates offset within document.
	LineStats(document string, offset int) (heartbeat.LineStats, bool)
}
