package tui

import (
	"strings"
	"testing"
)

func TestReport_Plain(t *testing.T) {
	out := Report("Collector", []Field{
		{Label: "Path", Value: "/home/u/.pulse/wakatime-cli"},
		{Label: "Version", Value: ""},
	}, false)

	want := "## Collector\n" +
		"  Path:    /home/u/.pulse/wakatime-cli\n" +
		"  Version: (none)\n"
	if out != want {
		t.Errorf("Report =\n%q\nwant\n%q", out, want)
	}
}

func TestReport_StyledKeepsValues(t *testing.T) {
	out := Report("Collector", []Field{{Label: "Path", Value: "/opt/cli"}}, true)
	if !strings.Contains(out, "Collector") || !strings.Contains(out, "/opt/cli") {
		t.Errorf("styled output lost content: %q", out)
	}
}

func TestStatusBar(t *testing.T) {
	if got := StatusBar("", false); got != "no activity yet today" {
		t.Errorf("StatusBar(\"\") = %q", got)
	}
	if got := StatusBar("3 hrs 4 mins", false); got != "3 hrs 4 mins" {
		t.Errorf("StatusBar = %q", got)
	}
}

func TestWarning_Plain(t *testing.T) {
	if got := Warning("blocked", false); got != "warning: blocked" {
		t.Errorf("Warning = %q", got)
	}
}
