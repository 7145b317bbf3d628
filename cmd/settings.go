package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/pulse/internal/heartbeat"
	"github.com/fakeyudi/pulse/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and write the shared wakatime settings file",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a value from the [settings] section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _, err := stores()
		if err != nil {
			return err
		}
		v, ok := user.Get(settings.SectionSettings, args[0])
		if !ok {
			return fmt.Errorf("%s is not set", args[0])
		}
		if args[0] == settings.KeyAPIKey {
			v = heartbeat.ObfuscateKey(v)
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a value into the [settings] section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if key == settings.KeyAPIKey {
			return fmt.Errorf("use 'pulse settings set-key' to change %s", key)
		}
		user, _, err := stores()
		if err != nil {
			return err
		}
		if err := user.Set(settings.SectionSettings, key, value); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
		return nil
	},
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Validate and store the api key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(args[0])
		if err := settings.ValidateAPIKey(key); err != nil {
			return fmt.Errorf("%w: expected a UUID, optionally prefixed with waka_", err)
		}
		user, _, err := stores()
		if err != nil {
			return err
		}
		creds := settings.NewCredentials(user)
		if creds.UsesVault() {
			return fmt.Errorf("%s is configured; the key comes from the vault command", settings.KeyAPIKeyVaultCmd)
		}
		if err := creds.SetAPIKey(key); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "api key saved (%s)\n", heartbeat.ObfuscateKey(key))
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsSetKeyCmd)
	rootCmd.AddCommand(settingsCmd)
}
