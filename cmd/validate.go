package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/matrixise/tokend/internal/config"
	"github.com/matrixise/tokend/internal/logger"
)

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file syntax and values without running the daemon.`,
	RunE:  validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	// Setup logger
	logger.Setup(logLevel)

	// Load config
	cfg, databaseURL, err := config.LoadWithDefaults(cfgFile)
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		return err
	}

	slog.Info("✓ Configuration valid",
		"genesis_path", cfg.GenesisPath,
		"receivers", len(cfg.Receivers),
		"prune_interval", cfg.PruneInterval,
		"audit_interval", cfg.AuditInterval,
		"log_level", cfg.LogLevel,
		"http_port", cfg.HTTPPort,
		"database_url_set", databaseURL != "",
	)

	return nil
}
