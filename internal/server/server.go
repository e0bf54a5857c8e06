package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"corebank/internal/config"

	"go.uber.org/zap"
)

// Serve runs the HTTP server until SIGINT or SIGTERM, then cancels background
// work and drains in-flight requests.
func Serve(ctx context.Context, cancel context.CancelFunc, cfg config.ServerConfig, router http.Handler, zl *zap.Logger, background ...<-chan struct{}) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("http server listening", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-serveErr:
		zl.Error("http server failed", zap.Error(runErr))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http server shutdown", zap.Error(err))
	}
	for _, done := range background {
		select {
		case <-done:
		case <-shutdownCtx.Done():
			zl.Warn("background worker did not stop in time")
		}
	}

	zl.Info("server stopped")
	return runErr
}
