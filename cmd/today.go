package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/tui"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Print today's coding activity as reported by wakatime-cli",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newAgent(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := commandContext(cmd)
		if err := a.Install(ctx); err != nil {
			return fmt.Errorf("collector unavailable: %w", err)
		}
		text, err := a.Status().Refresh(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tui.StatusBar(text, term.IsTerminal(os.Stdout.Fd())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(todayCmd)
}
