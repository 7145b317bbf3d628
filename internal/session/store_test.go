package session_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/pulse/internal/session"
)

func TestSessionPersistence(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store, err := session.NewSessionStore()
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}

	rapid.Check(t, func(t *rapid.T) {
		original := &session.Session{
			LastFile: rapid.StringN(1, 100, -1).Draw(t, "file"),
			// four decimals, as produced by heartbeat.Timestamp
			LastTime:  float64(rapid.Int64Range(0, 17_000_000_000_000).Draw(t, "ts")) / 10000,
			UpdatedAt: time.Unix(rapid.Int64Range(0, 1_700_000_000).Draw(t, "updated"), 0).UTC(),
		}
		if err := store.Save(original); err != nil {
			t.Fatalf("Save: %v", err)
		}
		loaded, err := store.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if loaded.LastFile != original.LastFile || loaded.LastTime != original.LastTime {
			t.Errorf("got (%q, %v), want (%q, %v)", loaded.LastFile, loaded.LastTime, original.LastFile, original.LastTime)
		}
		if !loaded.UpdatedAt.Equal(original.UpdatedAt) {
			t.Errorf("UpdatedAt = %v, want %v", loaded.UpdatedAt, original.UpdatedAt)
		}
	})

	entries, err := os.ReadDir(filepath.Join(tmp, "pulse"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "throttle.json" {
		t.Errorf("leftover files in data dir: %v", entries)
	}
}

func TestLoadReturnsErrNoSession(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.NewSessionStore()
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("expected ErrNoSession, got: %v", err)
	}
}

func TestDelete(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	store, err := session.NewSessionStore()
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete without a file: %v", err)
	}
	if err := store.Save(&session.Session{LastFile: "/a.go", LastTime: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("state survived Delete: %v", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	store, err := session.NewSessionStore()
	if err != nil {
		t.Fatalf("NewSessionStore: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, "pulse", "throttle.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = store.Load()
	if err == nil || errors.Is(err, session.ErrNoSession) {
		t.Errorf("Load = %v, want a parse error", err)
	}
}

func TestExpired(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	s := &session.Session{UpdatedAt: now.Add(-time.Hour)}
	if !s.Expired(now, time.Minute) {
		t.Error("hour-old state should be expired with a minute ttl")
	}
	if s.Expired(now, 2*time.Hour) {
		t.Error("hour-old state should be live with a two hour ttl")
	}
}

func TestSaveFailurePropagatesError(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root; permission checks are ineffective")
	}

	tmp := t.TempDir()
	if err := os.Chmod(tmp, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(tmp, 0o755) })
	t.Setenv("XDG_DATA_HOME", tmp)

	if _, err := session.NewSessionStore(); err == nil {
		t.Fatal("expected error creating store in unwritable directory, got nil")
	}
}
