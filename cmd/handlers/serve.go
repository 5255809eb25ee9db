package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pressroom/internal/config"
	"pressroom/internal/logger"
	"pressroom/internal/server"
)

// NewServeCmd creates the serve command for the HTTP service.
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the pipeline HTTP service",
		Long: `Start the pressroom HTTP service.

The service exposes:
  • POST /api/pipeline/run   — scheduled batch trigger (bearer token)
  • GET  /api/topics/{id}/quality — on-demand quality verdict
  • GET  /health

An external scheduler (e.g. hourly cron) authenticates against the
trigger with the configured shared secret.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	cfg := config.Get()
	if port != 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}

	orch, st, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(orch, st, cfg.Server)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
		return srv.Shutdown(ctx)
	}
}
