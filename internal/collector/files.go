package collector

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports file saves under Dir as write signals. It is the fallback
// source for editors without a plugin.
type Watcher struct {
	Dir            string
	IgnorePatterns []string
	Projects       *GitProjects // names the project of each file; may be nil
	Logger         *slog.Logger
}

// Run starts a recursive fsnotify watcher on Dir and emits a write signal
// for every Write/Create of a non-ignored file until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, emit func(Signal)) error {
	log := w.Logger
	if log == nil {
		log = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	patterns, err := w.loadIgnorePatterns()
	if err != nil {
		log.Warn("failed to load ignore patterns", "dir", w.Dir, "error", err)
	}

	// Walk the directory tree and add a watcher for every subdirectory.
	if err := filepath.WalkDir(w.Dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			if d.Name() == ".git" || (path != w.Dir && w.isIgnored(path, patterns)) {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if w.isIgnored(event.Name, patterns) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				// If a new directory was created, watch it too.
				if event.Has(fsnotify.Create) && filepath.Base(event.Name) != ".git" {
					_ = watcher.Add(event.Name)
				}
				continue
			}
			s := Signal{Entity: event.Name, IsWrite: true}
			if w.Projects != nil {
				s.Project = w.Projects.Project(event.Name)
			}
			emit(s)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			log.Debug("file watcher error", "error", err)
		}
	}
}

// isIgnored reports whether path matches any of the given glob patterns.
func (w *Watcher) isIgnored(path string, patterns []string) bool {
	rel := path
	if w.Dir != "" {
		if r, err := filepath.Rel(w.Dir, path); err == nil {
			rel = r
		}
	}
	if strings.HasPrefix(rel, ".git"+string(filepath.Separator)) {
		return true
	}
	base := filepath.Base(path)

	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(pattern, "/")
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}

// loadIgnorePatterns merges the configured patterns with those from
// .gitignore and .pulseignore in Dir.
func (w *Watcher) loadIgnorePatterns() ([]string, error) {
	patterns := make([]string, len(w.IgnorePatterns))
	copy(patterns, w.IgnorePatterns)

	for _, name := range []string{".gitignore", ".pulseignore"} {
		extra, err := readPatternFile(filepath.Join(w.Dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return patterns, err
		}
		patterns = append(patterns, extra...)
	}
	return patterns, nil
}

// readPatternFile reads a gitignore-style file and returns non-empty, non-comment lines.
func readPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}
