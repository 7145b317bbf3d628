// Package shell installs prompt hooks that report the working directory as
// activity through `pulse heartbeat`.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
)

// Supported lists the shells a hook exists for.
var Supported = []string{"bash", "zsh"}

// PluginPath returns the path where the hook file for shell is written.
func PluginPath(shell string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pulse", "pulse.plugin."+shell), nil
}

// Install writes the hook file for shell and returns the line the user must
// add to their rc file.
func Install(shell, executable string) (string, error) {
	path, err := PluginPath(shell)
	if err != nil {
		return "", err
	}

	var content string
	switch shell {
	case "zsh":
		content = ZshPlugin
	case "bash":
		content = BashPlugin
	default:
		return "", fmt.Errorf("unsupported shell for plugin: %s (supported: zsh, bash)", shell)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	content = fmt.Sprintf("_pulse_bin=%q\n", executable) + content
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing plugin file: %w", err)
	}
	return fmt.Sprintf("source %s  # add to %s", path, rcFileName(shell)), nil
}

// IsInstalled reports whether the hook file exists on disk.
func IsInstalled(shell string) bool {
	path, err := PluginPath(shell)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func rcFileName(shell string) string {
	switch shell {
	case "zsh":
		return "~/.zshrc"
	case "bash":
		return "~/.bashrc"
	default:
		return "~/." + shell + "rc"
	}
}
