package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/tandem/internal/config"
	"github.com/BioHazard786/tandem/internal/logging"
	"github.com/BioHazard786/tandem/internal/server"
)

var (
	flagPort int
	flagHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay",
	Long: `Run the signaling relay.

Examples:
  tandem serve
  tandem serve --port 8080
  PORT=8080 ALLOWED_ORIGINS=https://app.example tandem serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "listen port (env PORT, default 3000)")
	serveCmd.Flags().StringVar(&flagHost, "host", "", "listen host (env HOST)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadServer(config.ServerOptions{
		Host:     flagHost,
		Port:     flagPort,
		LogLevel: flagLogLevel,
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.Init(cfg.LogLevel)
	log.Debug("Relay configuration",
		"addr", cfg.Addr(),
		"send_buffer", cfg.SendBuffer,
		"read_limit", cfg.ReadLimit,
		"allowed_origins", cfg.AllowedOrigins,
	)

	return server.New(cfg, log).Run(ctx)
}
