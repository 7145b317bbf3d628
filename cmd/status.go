package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/deps"
	"github.com/fakeyudi/pulse/internal/settings"
	"github.com/fakeyudi/pulse/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collector install state without touching the network",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, internal, err := stores()
		if err != nil {
			return err
		}
		dir := cfg.ResourcesDir
		if dir == "" {
			if dir, err = deps.ResourcesDir(); err != nil {
				return err
			}
		}
		p := deps.Detect()
		link := filepath.Join(dir, p.LinkName())
		if _, err := os.Stat(link); err != nil {
			link = ""
		}

		checked := ""
		if v, ok := internal.Get(settings.SectionInternal, settings.KeyCLIVersionLastAccessed); ok {
			if sec, err := strconv.ParseInt(v, 10, 64); err == nil && sec > 0 {
				checked = time.Unix(sec, 0).Format("2006-01-02 15:04:05 MST")
			}
		}
		latest, _ := internal.Get(settings.SectionInternal, settings.KeyCLIVersion)
		s := settings.Load(user)

		keyState := "missing"
		if settings.NewCredentials(user).APIKey() != "" {
			keyState = "set"
		}

		fields := []tui.Field{
			{Label: "Collector", Value: link},
			{Label: "Platform", Value: p.String()},
			{Label: "Latest", Value: latest},
			{Label: "Checked", Value: checked},
			{Label: "API key", Value: keyState},
			{Label: "API URL", Value: s.APIURL},
			{Label: "Debug", Value: strconv.FormatBool(s.Debug)},
			{Label: "Settings", Value: user.Path()},
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Report("Status", fields, term.IsTerminal(os.Stdout.Fd())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
