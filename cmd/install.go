package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/deps"
	"github.com/fakeyudi/pulse/internal/tui"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or update wakatime-cli",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, internal, err := stores()
		if err != nil {
			return err
		}
		mgr, err := newManager(user, internal)
		if err != nil {
			return err
		}
		d, err := mgr.Ensure(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.Report("Collector", describe(d), term.IsTerminal(os.Stdout.Fd())))
		return nil
	},
}

// describe lists what is known about the installed collector.
func describe(d deps.Descriptor) []tui.Field {
	checked := ""
	if d.Cache.LastCheckedAt > 0 {
		checked = time.Unix(d.Cache.LastCheckedAt, 0).Format("2006-01-02 15:04:05 MST")
	}
	source := "managed"
	if d.Override {
		source = "override (" + deps.OverrideEnv + ")"
	}
	return []tui.Field{
		{Label: "Path", Value: d.Path},
		{Label: "Executable", Value: d.Executable},
		{Label: "Source", Value: source},
		{Label: "Platform", Value: fmt.Sprintf("%s (supported: %t)", d.Platform, d.Platform.Supported())},
		{Label: "Version", Value: d.LocalVersion},
		{Label: "Latest", Value: d.Cache.RemoteVersion},
		{Label: "Checked", Value: checked},
	}
}

func init() {
	rootCmd.AddCommand(installCmd)
}
