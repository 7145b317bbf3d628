package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/agent"
	"github.com/fakeyudi/pulse/internal/config"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is built from cfg once it is loaded.
var logger = slog.Default()

var (
	hostNameFlag    string
	hostVersionFlag string
	logLevelFlag    string
)

var rootCmd = &cobra.Command{
	Use:           "pulse",
	Short:         "Record editor activity and ship it to wakatime-cli",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config files, then PULSE_* env, then flags.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		c := config.ApplyEnv(config.Merge(global, project))

		if hostNameFlag != "" {
			c.HostName = hostNameFlag
		}
		if hostVersionFlag != "" {
			c.HostVersion = hostVersionFlag
		}
		if logLevelFlag != "" {
			c.LogLevel = logLevelFlag
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		cfg = c
		logger = agent.BuildLogger(cfg, cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&hostNameFlag, "host-name", "", "name of the host tool reported in --plugin (overrides config)")
	pf.StringVar(&hostVersionFlag, "host-version", "", "version of the host tool (overrides config)")
	pf.StringVar(&logLevelFlag, "log-level", "", "debug, info, warn or error (overrides config)")
}
