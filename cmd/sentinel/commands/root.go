package commands

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/causalstack/causal-sentinel/internal/config"
	"github.com/causalstack/causal-sentinel/internal/utils"
)

const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Causal Sentinel - metric crash detection and causal impact analysis",
	Long: `Causal Sentinel watches business metric series for sudden crashes,
links them to risky engineering events, and estimates the causal revenue
impact with a confounder-adjusted regression.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Local overrides for SENTINEL_* variables; absence is fine.
		_ = godotenv.Load()
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (default: SENTINEL_CONFIG or built-in defaults)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gendataCmd)
}

// loadConfig resolves configuration and builds the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
