package heartbeat

import (
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"
)

var testIdentity = Identity{HostName: "goland", HostVersion: "2024.1", AgentVersion: "0.3.0"}

func TestBuildCommandFullArgv(t *testing.T) {
	t.Setenv("NO_PROXY", "")
	t.Setenv("no_proxy", "")

	h := Heartbeat{
		Entity:        "/src/my project/main.go",
		Timestamp:     1700000000.25,
		IsWrite:       true,
		IsUnsavedFile: true,
		IsBuilding:    true,
		Project:       "my project",
		Language:      "Go",
		LineStats:     &LineStats{LineCount: 42, LineNumber: 7, CursorPosition: 3},
	}
	opts := CommandOptions{
		Executable: "/home/u/.pulse/wakatime-cli",
		Identity:   testIdentity,
		APIKey:     "waka_abc",
		Proxy:      "https://user:pw@proxy.local:3128",
		TargetURL:  "https://api.wakatime.com/api/v1",
		Metrics:    true,
	}

	got, err := BuildCommand(h, opts, true)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	want := []string{
		"/home/u/.pulse/wakatime-cli",
		"--plugin", "goland/2024.1 goland-agent/0.3.0",
		"--entity", "/src/my project/main.go",
		"--time", "1700000000.2500",
		"--key", "waka_abc",
		"--lines-in-file", "42",
		"--alternate-project", "my project",
		"--alternate-language", "Go",
		"--write",
		"--is-unsaved-entity",
		"--category", "building",
		"--metrics",
		"--proxy", "https://user:pw@proxy.local:3128",
		"--extra-heartbeats",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("argv mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestBuildCommandUnknownHostAborts(t *testing.T) {
	_, err := BuildCommand(Heartbeat{Entity: "/a"}, CommandOptions{Executable: "cli"}, false)
	if !errors.Is(err, ErrUnknownHost) {
		t.Fatalf("err = %v, want ErrUnknownHost", err)
	}
}

// Property: absent project and language never produce their flags, and
// arbitrary entity strings travel as a single untouched argv element.
func TestBuildCommandOptionalFlagsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := Heartbeat{
			Entity:    rapid.StringN(1, 64, -1).Draw(t, "entity"),
			Timestamp: 1,
		}
		argv, err := BuildCommand(h, CommandOptions{Executable: "cli", Identity: testIdentity}, false)
		if err != nil {
			t.Fatalf("BuildCommand: %v", err)
		}
		for _, flag := range []string{"--alternate-project", "--alternate-language", "--key", "--proxy", "--extra-heartbeats", "--lines-in-file"} {
			if slices.Contains(argv, flag) {
				t.Fatalf("unexpected %s in %q", flag, argv)
			}
		}
		i := slices.Index(argv, "--entity")
		if i < 0 || argv[i+1] != h.Entity {
			t.Fatalf("entity not passed verbatim: %q", argv)
		}
	})
}

func TestBuildCommandMalformedProxySkipped(t *testing.T) {
	argv, err := BuildCommand(Heartbeat{Entity: "/a", Timestamp: 1}, CommandOptions{
		Executable: "cli",
		Identity:   testIdentity,
		Proxy:      "proxy.local:notaport",
		TargetURL:  "https://api.wakatime.com",
	}, false)
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if slices.Contains(argv, "--proxy") {
		t.Fatalf("malformed proxy applied: %q", argv)
	}
}

func TestProxyFor(t *testing.T) {
	t.Setenv("NO_PROXY", "internal.example.com")
	t.Setenv("no_proxy", "internal.example.com")

	cases := []struct {
		name    string
		proxy   string
		target  string
		want    string
		wantErr bool
	}{
		{"applies", "http://proxy:8080", "https://api.wakatime.com", "http://proxy:8080", false},
		{"no target", "socks5://proxy:1080", "", "socks5://proxy:1080", false},
		{"loopback bypass", "http://proxy:8080", "http://localhost:14400/api/v1", "", false},
		{"no_proxy bypass", "http://proxy:8080", "https://internal.example.com/api", "", false},
		{"missing scheme", "proxy:8080", "https://api.wakatime.com", "", true},
		{"bad port", "http://proxy:port", "https://api.wakatime.com", "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ProxyFor(c.proxy, c.target)
			if (err != nil) != c.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, c.wantErr)
			}
			if got != c.want {
				t.Fatalf("ProxyFor = %q, want %q", got, c.want)
			}
		})
	}
}
