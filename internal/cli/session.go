package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"finboard/internal/log"
	"finboard/internal/report"
	"finboard/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and clear stored sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles with a stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		_, _, res, err := openBackend(ctx, cfg, log.Discard())
		if err != nil {
			return err
		}
		defer res.Close()

		profiles, err := res.Profiles(ctx)
		if err != nil {
			return fmt.Errorf("list profiles: %w", err)
		}
		for _, p := range profiles {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

// sessionClearCmd signs a profile out everywhere. Running servers sharing the
// backend hear about it through the broadcaster.
var sessionClearCmd = &cobra.Command{
	Use:   "clear <profile>",
	Short: "Clear the session of one profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.LogLevel)
		if cfg.SessionBackend == "memory" {
			logger.Warn("Memory session backend is per process; nothing to clear")
			return nil
		}

		_, _, res, err := openBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer res.Close()

		profile := args[0]
		store := session.NewStore(res.Persister, res.Broadcaster, session.WithLogger(logger))
		defer store.Close()
		if err := store.Clear(ctx, profile); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		if err := report.NewTrigger(nil, res.Links, logger).Forget(ctx, profile); err != nil {
			return fmt.Errorf("drop report links: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared session for %s\n", profile)
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionListCmd, sessionClearCmd)
	rootCmd.AddCommand(sessionCmd)
}
