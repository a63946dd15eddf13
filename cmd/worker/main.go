package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/graph-pattern-predictor/internal/bootstrap"
	"github.com/kirillkom/graph-pattern-predictor/internal/config"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/observability/logging"
)

var errQueueRequired = errors.New("worker requires NATS_URL")

func main() {
	_ = godotenv.Load()
	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewLogger("worker", cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

// run answers prediction requests until ctx is done. Every resource it
// opens is closed before it returns.
func run(ctx context.Context, cfg config.Config) error {
	if cfg.NATSURL == "" {
		return errQueueRequired
	}

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Service:   "worker",
		WithQueue: true,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           app.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSRequestSubject)
	err = app.Queue.SubscribePredictRequests(ctx, func(handlerCtx context.Context, line string) (*domain.ResultRecord, error) {
		entity, ok, err := app.Normalizer.Normalize(line)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.WrapError(domain.ErrInvalidInput, "normalize", errors.New("input line skipped"))
		}
		record, err := app.Predictor.PredictOne(handlerCtx, entity)
		if err != nil {
			return nil, err
		}
		if err := app.Queue.Emit(handlerCtx, *record); err != nil {
			slog.Warn("publish_record_failed", "entity", entity.String(), "error", err)
		}
		return record, nil
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}
