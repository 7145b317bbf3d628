package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// waitForSignal rewrites path until the watcher reports it or the deadline
// passes; the watcher registers directories asynchronously.
func waitForSignal(t *testing.T, sigs <-chan Signal, path string) Signal {
	t.Helper()
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case s := <-sigs:
			if s.Entity == path {
				return s
			}
		case <-tick.C:
			if err := os.WriteFile(path, []byte(time.Now().String()), 0o644); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			t.Fatalf("no signal for %s", path)
		}
	}
}

func TestWatcherEmitsWrites(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "pkg")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".pulseignore"), []byte("# scratch\n*.log\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &Watcher{
		Dir: dir,
		Projects: &GitProjects{Runner: func(string, ...string) (string, error) {
			return dir + "\n", nil
		}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan Signal, 64)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func(s Signal) { sigs <- s }) }()

	target := filepath.Join(sub, "main.go")
	s := waitForSignal(t, sigs, target)
	if !s.IsWrite {
		t.Error("file save should be a write signal")
	}
	if s.Project != filepath.Base(dir) {
		t.Errorf("Project = %q, want %q", s.Project, filepath.Base(dir))
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}

func TestWatcherIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{Dir: dir, IgnorePatterns: []string{"*.tmp", "build/"}}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("node_modules\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	patterns, err := w.loadIgnorePatterns()
	if err != nil {
		t.Fatal(err)
	}

	cases := map[string]bool{
		filepath.Join(dir, "a.tmp"):            true,
		filepath.Join(dir, "build"):            true,
		filepath.Join(dir, "node_modules"):     true,
		filepath.Join(dir, ".git", "index"):    true,
		filepath.Join(dir, "main.go"):          false,
		filepath.Join(dir, "internal", "x.go"): false,
	}
	for path, want := range cases {
		if got := w.isIgnored(path, patterns); got != want {
			t.Errorf("isIgnored(%q) = %v, want %v", path, got, want)
		}
	}
}
