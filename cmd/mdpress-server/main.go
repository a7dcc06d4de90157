// Command mdpress-server runs the editor backend: session workspaces,
// markdown-to-PDF conversion, and the live preview websocket.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/mdpress/mdpress/internal/config"
	"github.com/mdpress/mdpress/internal/server"
)

// shutdownGrace bounds how long in-flight requests may run after a
// termination signal.
const shutdownGrace = 10 * time.Second

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	_, _ = maxprocs.Set(maxprocs.Logger(log.Sugar().Debugf))

	if err := run(log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(log *zap.Logger) error {
	cfg := config.ServerFromEnv()

	srv, err := server.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := srv.Close(); cerr != nil {
			log.Warn("closing server resources", zap.Error(cerr))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.RunCleanup(ctx.Done())

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("workspaces", cfg.WorkspacesRoot),
			zap.Duration("ttl", cfg.TTL))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
