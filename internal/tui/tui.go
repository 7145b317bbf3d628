// Package tui renders pulse's terminal output.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Field is one labelled line of a report.
type Field struct {
	Label string
	Value string
}

// Report renders a titled block of fields. Empty values print as "(none)".
// With styled false the output is plain text suitable for pipes.
func Report(title string, fields []Field, styled bool) string {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}

	var b strings.Builder
	if styled {
		b.WriteString(titleStyle.Render(title))
	} else {
		b.WriteString("## " + title)
	}
	b.WriteString("\n")

	for _, f := range fields {
		label := fmt.Sprintf("%-*s", width+1, f.Label+":")
		value := f.Value
		if styled {
			label = labelStyle.Render(label)
			if value == "" {
				value = dimStyle.Render("(none)")
			}
		} else if value == "" {
			value = "(none)"
		}
		b.WriteString("  " + label + " " + value + "\n")
	}
	return b.String()
}

// StatusBar renders text the way an editor status bar item would show it.
func StatusBar(text string, styled bool) string {
	if text == "" {
		text = "no activity yet today"
	}
	if !styled {
		return text
	}
	return statusBarStyle.Render(text)
}

// Warning renders a user-facing warning line.
func Warning(msg string, styled bool) string {
	if !styled {
		return "warning: " + msg
	}
	return warnStyle.Render("⚠ " + msg)
}
