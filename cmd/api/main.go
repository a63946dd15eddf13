package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/kirillkom/graph-pattern-predictor/internal/adapters/http"
	"github.com/kirillkom/graph-pattern-predictor/internal/bootstrap"
	"github.com/kirillkom/graph-pattern-predictor/internal/config"
	"github.com/kirillkom/graph-pattern-predictor/internal/observability/logging"
	"github.com/kirillkom/graph-pattern-predictor/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewLogger("api", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("api_failed", "error", err)
		os.Exit(1)
	}
}

// run serves until ctx is done or the listener fails. Every resource it
// opens is closed before it returns.
func run(ctx context.Context, cfg config.Config) error {
	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:  "api",
		Registry: httpMetrics.Registry(),
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Handler())
	mux.Handle("/", httpadapter.NewRouter(cfg, app.Predictor).Handler())

	addr := net.JoinHostPort(cfg.APIHost, cfg.APIPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      httpMetrics.Middleware("api", mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("api_listening", "addr", addr, "patterns", len(app.Session.Patterns))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
