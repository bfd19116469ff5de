package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finboard",
	Short: "Personal finance dashboard",
	Long: `finboard serves the server-rendered finance dashboard in front of the
REST backend. It keeps per-profile sessions, role-guarded pages, selectable
lists with bulk delete and report downloads.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx as the command context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML config file (default $FINBOARD_CONFIG)")
}
