// Package cli is the maintenance-agent command line: the HTTP server plus
// operator commands for the manual index, the request log and auth.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/maintenance-agent/internal/config"
)

var version = "dev"

var (
	configPath string
	envFiles   []string
)

// newApp builds the services for commands that need them
var newApp = NewApp

var rootCmd = &cobra.Command{
	Use:   "maintenance-agent",
	Short: "Visual inspection diagnostics backed by equipment manuals",
	Long: `maintenance-agent classifies inspection images, retrieves the matching
passages from the equipment manuals and records every diagnosis for the
maintenance dashboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default config.yaml when present)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files loaded before reading the environment")
}

// SetVersion sets the version reported by the server and the version command
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the command line with ctx
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	return config.Load(configPath)
}

// openApp loads configuration, installs the process logger and wires the services
func openApp(cmd *cobra.Command) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := cfg.Log.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return newApp(cmd.Context(), cfg, logger)
}
