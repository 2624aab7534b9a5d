package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mcp-food-log/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP tool server",
	Long: `Run the HTTP tool server.

Tools are invoked with POST / and a JSON body {"name": ..., "arguments": {...}}.
GET /health and GET /metrics are also served.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "host address (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if serveHost != "" {
		a.cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		a.cfg.Server.Port = servePort
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// A failed initial load leaves an empty log; reload_today retries.
	if err := a.manager.Load(ctx); err != nil {
		a.logger.Warn(ctx, "initial load failed", zap.Error(err))
	}

	srv, err := server.NewFoodLogServer(&server.Config{
		Host:  a.cfg.Server.Host,
		Port:  a.cfg.Server.Port,
		Goals: a.goals(),
	}, server.Deps{
		Manager: a.manager,
		Parser:  a.parser,
		Prefs:   a.prefs,
		Steps:   a.store,
		Store:   a.store,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case sig := <-sigCh:
		a.logger.Info(ctx, "received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			a.logger.Error(ctx, "server error", zap.Error(err))
			return err
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.logger.Error(ctx, "error during shutdown", zap.Error(err))
		return err
	}
	return nil
}
