package main

import (
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the portfolio HTTP API",
	Long: `Serve POST /api/portfolio, GET /healthz and the Prometheus endpoint
until SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, cleanup, err := buildApp(nil)
		if err != nil {
			return err
		}
		defer cleanup()
		return app.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
