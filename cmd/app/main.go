package main

import (
	"fmt"
	"os"

	"FinFolio/internal/di"
	"FinFolio/pkg/config"
	"FinFolio/pkg/server"

	"github.com/spf13/cobra"
)

var configPath string

// rootCmd is the base command for the FinFolio CLI
var rootCmd = &cobra.Command{
	Use:   "finfolio",
	Short: "LLM-assisted portfolio advisor",
	Long: `FinFolio turns a natural-language investment request into a proposed
portfolio allocation, backed by historical performance metrics, a validation
pass and a Markdown report.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML configuration (defaults and environment only when empty)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildApp loads configuration, applies overrides and wires the application.
func buildApp(override func(*config.Config)) (*server.App, func(), error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, nil, fmt.Errorf("validate config: %w", err)
		}
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, cleanup, nil
}
