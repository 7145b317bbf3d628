package collector

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

const maxLineSize = 8 << 20

// Stream reads newline-delimited JSON signals, one per line, from an editor
// plugin (typically over the agent's stdin).
type Stream struct {
	R        io.Reader
	Editor   *Tracker     // updated with every signal; may be nil
	Projects *GitProjects // fills in a missing project; may be nil
	Logger   *slog.Logger
}

// Run emits one Signal per valid line until the reader is exhausted or ctx
// is cancelled. Malformed lines are logged and skipped.
func (s *Stream) Run(ctx context.Context, emit func(Signal)) error {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	lines := make(chan []byte)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(s.R)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if len(line) == 0 {
				continue
			}
			var sig Signal
			if err := json.Unmarshal(line, &sig); err != nil {
				log.Warn("skipping malformed signal", "error", err)
				continue
			}
			s.complete(&sig)
			emit(sig)
		}
	}
}

func (s *Stream) complete(sig *Signal) {
	if sig.Project == "" && sig.Entity != "" && s.Projects != nil {
		sig.Project = s.Projects.Project(sig.Entity)
	}
	if sig.LineStats == nil && sig.Document != nil {
		if st, ok := lineStats(*sig.Document, sig.Offset); ok {
			sig.LineStats = &st
		}
	}
	sig.Document = nil
	if s.Editor != nil && sig.Kind == KindActivity {
		s.Editor.Observe(*sig)
	}
}
