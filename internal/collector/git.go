package collector

import (
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// GitRunner executes a git command and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(workDir string, args ...string) (string, error)

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(workDir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = workDir
	out, err := cmd.Output()
	return string(out), err
}

// GitProjects names projects after the repository a file lives in. Lookups
// are cached per directory.
type GitProjects struct {
	Runner GitRunner // if nil, uses the real git subprocess

	mu    sync.Mutex
	cache map[string]string
}

// Project returns the base name of the repository containing file, or ""
// when file is not inside a git work tree.
func (g *GitProjects) Project(file string) string {
	dir := filepath.Dir(file)

	g.mu.Lock()
	if name, ok := g.cache[dir]; ok {
		g.mu.Unlock()
		return name
	}
	g.mu.Unlock()

	runner := g.Runner
	if runner == nil {
		runner = defaultGitRunner
	}
	name := ""
	out, err := runner(dir, "rev-parse", "--show-toplevel")
	if err == nil {
		if top := strings.TrimSpace(out); top != "" {
			name = filepath.Base(top)
		}
	} else if !isExitCode128(err) {
		// git missing or the directory vanished; do not cache.
		return ""
	}

	g.mu.Lock()
	if g.cache == nil {
		g.cache = make(map[string]string)
	}
	g.cache[dir] = name
	g.mu.Unlock()
	return name
}

// isExitCode128 reports whether err is an *exec.ExitError with exit code 128,
// which git uses for "not a git repository".
func isExitCode128(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}
