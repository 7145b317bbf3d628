package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/shell"
)

var hookCmd = &cobra.Command{
	Use:       "hook <bash|zsh>",
	Short:     "Install a shell hook that records terminal activity",
	Args:      cobra.ExactArgs(1),
	ValidArgs: shell.Supported,
	RunE: func(cmd *cobra.Command, args []string) error {
		exe, err := os.Executable()
		if err != nil {
			exe = "pulse"
		}
		line, err := shell.Install(args[0], exe)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Hook written. Add this line to your shell rc file:\n  %s\n", line)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hookCmd)
}
