package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/agent"
	"github.com/fakeyudi/pulse/internal/collector"
	"github.com/fakeyudi/pulse/internal/session"
)

var (
	hbEntity   string
	hbWrite    bool
	hbProject  string
	hbLanguage string
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Send a single heartbeat for a file",
	Long: `Send a single heartbeat. The throttle state is saved between runs, so
repeated calls for the same file within the throttle window are skipped.
Suitable for shell hooks and editor plugins without a long-lived process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if hbEntity == "" {
			return errors.New("--entity is required")
		}
		entity, err := filepath.Abs(hbEntity)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", hbEntity, err)
		}

		a, err := newAgent(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := session.NewSessionStore()
		if err != nil {
			logger.Warn("heartbeat state unavailable, throttling this run only", "error", err)
		}
		restoreThrottle(a, store)

		if err := a.Install(commandContext(cmd)); err != nil {
			return fmt.Errorf("collector unavailable: %w", err)
		}

		sig := collector.Signal{
			Entity:   entity,
			IsWrite:  hbWrite,
			Project:  hbProject,
			Language: hbLanguage,
		}
		if sig.Project == "" {
			sig.Project = (&collector.GitProjects{}).Project(entity)
		}
		if !a.Append(sig) {
			fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s (throttled)\n", entity)
			return nil
		}
		// Close drains the queue synchronously.
		if !a.Close() {
			return fmt.Errorf("heartbeat for %s was not handed to the collector; rerun with --log-level debug for details", entity)
		}
		saveThrottle(a, store)
		fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat sent for %s\n", entity)
		return nil
	},
}

func restoreThrottle(a *agent.Agent, store session.SessionStore) {
	if store == nil {
		return
	}
	s, err := store.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			logger.Warn("ignoring saved heartbeat state", "error", err)
		}
		return
	}
	if s.Expired(time.Now(), time.Duration(cfg.ThrottleWindow)) {
		return
	}
	a.SeedThrottle(s.LastFile, s.LastTime)
}

func saveThrottle(a *agent.Agent, store session.SessionStore) {
	if store == nil {
		return
	}
	file, ts := a.LastHeartbeat()
	if err := store.Save(&session.Session{LastFile: file, LastTime: ts, UpdatedAt: time.Now()}); err != nil {
		logger.Warn("failed to save heartbeat state", "error", err)
	}
}

func init() {
	heartbeatCmd.Flags().StringVar(&hbEntity, "entity", "", "file the activity happened in")
	heartbeatCmd.Flags().BoolVar(&hbWrite, "write", false, "the file was saved")
	heartbeatCmd.Flags().StringVar(&hbProject, "project", "", "project name (default: git repository name)")
	heartbeatCmd.Flags().StringVar(&hbLanguage, "language", "", "language override")
	rootCmd.AddCommand(heartbeatCmd)
}
