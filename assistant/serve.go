package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	handler "github.com/xiaot623/gogo/assistant/internal/transport/http"
	"github.com/xiaot623/gogo/assistant/internal/transport/ws"
)

// serveCmd runs the HTTP API and the voice gateway
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the websocket voice gateway",
	Long: `Serve the read API under /v1, Prometheus metrics on /metrics and the
websocket voice gateway on /v1/voice.

Examples:
  # Serve on the configured port
  assistant serve

  # Serve with deterministic replies and no network retrieval
  LLM_MODE=mock RETRIEVAL_MODE=static assistant serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	gateway := ws.NewGateway(a.svc, ws.Options{
		APIKey:         cfg.Server.VoiceAPIKey,
		ListenTimeout:  cfg.Server.ListenTimeout,
		SessionTimeout: cfg.Server.SessionTimeout,
	}, logger)
	server := handler.NewServer(a.svc, gateway, logger)

	logger.Info("starting assistant",
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.String("database", cfg.Storage.DatabaseURL),
		zap.String("llm_mode", cfg.LLM.Mode),
		zap.String("retrieval_mode", cfg.Retrieval.Mode),
		zap.String("location_mode", cfg.Location.Mode),
	)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("shutting down assistant")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	gateway.Shutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", zap.Error(err))
	}

	logger.Info("assistant stopped")
	return nil
}
