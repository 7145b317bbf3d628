package heartbeat

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"golang.org/x/net/http/httpproxy"
)

// ErrUnknownHost is returned when the host tool's name is not known. The
// collector rejects heartbeats without a plugin string, so nothing is built.
var ErrUnknownHost = errors.New("host tool name is unknown")

// Identity names the host tool and this agent for the --plugin argument.
type Identity struct {
	HostName     string
	HostVersion  string
	AgentVersion string
}

// PluginString renders the identity as "<host>/<version> <host>-agent/<version>".
func (id Identity) PluginString() (string, error) {
	if id.HostName == "" {
		return "", ErrUnknownHost
	}
	return fmt.Sprintf("%s/%s %s-agent/%s", id.HostName, id.HostVersion, id.HostName, id.AgentVersion), nil
}

// CommandOptions carries the process-wide inputs of a collector invocation.
type CommandOptions struct {
	Executable string
	Identity   Identity
	APIKey     string
	Proxy      string // raw proxy setting, may be empty or malformed
	TargetURL  string // the collector's upload endpoint, used to decide whether Proxy applies
	Metrics    bool
	Logger     *slog.Logger
}

// BuildCommand returns the argv for sending h. Every value is its own argv
// element; nothing is quoted or joined.
func BuildCommand(h Heartbeat, opts CommandOptions, hasExtras bool) ([]string, error) {
	plugin, err := opts.Identity.PluginString()
	if err != nil {
		return nil, err
	}

	args := []string{opts.Executable, "--plugin", plugin}
	args = append(args, "--entity", h.Entity)
	args = append(args, "--time", FormatTimestamp(h.Timestamp))
	if opts.APIKey != "" {
		args = append(args, "--key", opts.APIKey)
	}
	if h.LineStats != nil {
		args = append(args, "--lines-in-file", strconv.Itoa(h.LineStats.LineCount))
	}
	if h.Project != "" {
		args = append(args, "--alternate-project", h.Project)
	}
	if h.Language != "" {
		args = append(args, "--alternate-language", h.Language)
	}
	if h.IsWrite {
		args = append(args, "--write")
	}
	if h.IsUnsavedFile {
		args = append(args, "--is-unsaved-entity")
	}
	if h.IsBuilding {
		args = append(args, "--category", "building")
	}
	if opts.Metrics {
		args = append(args, "--metrics")
	}

	if opts.Proxy != "" {
		proxy, err := ProxyFor(opts.Proxy, opts.TargetURL)
		if err != nil {
			if opts.Logger != nil {
				opts.Logger.Error("proxy setting ignored", "proxy", RedactURL(opts.Proxy), "error", err)
			}
		} else if proxy != "" {
			args = append(args, "--proxy", proxy)
		}
	}

	if hasExtras {
		args = append(args, "--extra-heartbeats")
	}
	return args, nil
}

// ProxyFor returns proxy when it should be used to reach target, or "" when
// target bypasses it (NO_PROXY, loopback). A malformed proxy is an error.
func ProxyFor(proxy, target string) (string, error) {
	u, err := url.Parse(proxy)
	if err != nil {
		return "", fmt.Errorf("parse proxy: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("proxy %q must look like scheme://[user:pass@]host[:port]", RedactURL(proxy))
	}
	if u.Port() != "" {
		if _, err := strconv.Atoi(u.Port()); err != nil {
			return "", fmt.Errorf("proxy port %q is not a number", u.Port())
		}
	}

	if target == "" {
		return proxy, nil
	}
	t, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse target url: %w", err)
	}

	cfg := httpproxy.Config{
		HTTPProxy:  proxy,
		HTTPSProxy: proxy,
		NoProxy:    httpproxy.FromEnvironment().NoProxy,
	}
	via, err := cfg.ProxyFunc()(t)
	if err != nil {
		return "", fmt.Errorf("resolve proxy: %w", err)
	}
	if via == nil {
		return "", nil
	}
	return proxy, nil
}
