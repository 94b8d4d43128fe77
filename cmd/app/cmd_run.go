package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"FinFolio/internal/usecase"
	"FinFolio/pkg/config"

	"github.com/spf13/cobra"
)

// runCmd executes one pipeline run and prints the report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a portfolio for one request",
	Long: `Run the advisory pipeline once. Without --request the command asks for
capital, time horizon, risk tolerance and preferences, and composes the
request from the answers.

Examples:
  finfolio run
  finfolio run --request "Invest $10000 for 5 years, medium risk, focus on tech"
  finfolio run --config config/config.yaml --output ./reports`,
	RunE: runGenerate,
}

var (
	runRequest   string
	runOutputDir string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runRequest, "request", "", "Investment request text (prompts when empty)")
	runCmd.Flags().StringVar(&runOutputDir, "output", "", "Artifact directory (overrides pipeline.output_dir)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	request := strings.TrimSpace(runRequest)
	if request == "" {
		var err error
		request, err = readRequest(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
	}

	app, cleanup, err := buildApp(func(cfg *config.Config) {
		if runOutputDir != "" {
			cfg.Pipeline.OutputDir = runOutputDir
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nGenerating portfolio, this can take a minute...")
	res := app.Generate(ctx, request)

	fmt.Fprintln(out, "\n--- Portfolio Report ---")
	fmt.Fprintln(out, res.State.Report)
	fmt.Fprintln(out, "--- End of Report ---")
	if res.OutputDir != "" {
		fmt.Fprintf(out, "\nArtifacts saved to: %s\n", res.OutputDir)
	}

	if res.Status != usecase.RunStatusSuccess {
		return fmt.Errorf("run %s at %s: %s", res.Status, res.State.Step, res.State.Error)
	}
	return nil
}
