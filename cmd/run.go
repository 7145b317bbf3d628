package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/collector"
	"github.com/fakeyudi/pulse/internal/tui"
)

var (
	runWatch  []string
	runStdin  bool
	runIgnore []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent until interrupted or its input ends",
	Long: `Run the agent. Signals come from an editor plugin writing JSON lines on
stdin (--stdin) and/or from watching directories for saved files (--watch).
Queued heartbeats are flushed to wakatime-cli every interval and once more
on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !runStdin && len(runWatch) == 0 {
			return errors.New("nothing to record: pass --stdin and/or --watch DIR")
		}

		tracker := collector.NewTracker()
		projects := &collector.GitProjects{}

		var sources []collector.Source
		if runStdin {
			sources = append(sources, &collector.Stream{
				R:        cmd.InOrStdin(),
				Editor:   tracker,
				Projects: projects,
				Logger:   logger,
			})
		}
		for _, dir := range runWatch {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", dir, err)
			}
			sources = append(sources, &collector.Watcher{
				Dir:            abs,
				IgnorePatterns: runIgnore,
				Projects:       projects,
				Logger:         logger,
			})
		}

		a, err := newAgent(tracker)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		styled := term.IsTerminal(os.Stderr.Fd())
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-a.Warnings():
					fmt.Fprintln(cmd.ErrOrStderr(), tui.Warning(msg, styled))
				}
			}
		}()

		return a.Run(ctx, sources...)
	},
}

func init() {
	runCmd.Flags().StringSliceVar(&runWatch, "watch", nil, "directory to watch for saved files (repeatable)")
	runCmd.Flags().BoolVar(&runStdin, "stdin", false, "read editor signals as JSON lines from stdin")
	runCmd.Flags().StringSliceVar(&runIgnore, "ignore", nil, "glob of paths to ignore while watching (repeatable)")
	rootCmd.AddCommand(runCmd)
}

// commandContext returns the command's context, or Background when run
// outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
