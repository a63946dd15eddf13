package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/graph-pattern-predictor/internal/config"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/usecase"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/curie"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/fusion"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/modelstore/localfs"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/reduction"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/resilience"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/sparql"
	"github.com/kirillkom/graph-pattern-predictor/internal/observability/metrics"
)

type Options struct {
	Service string
	// Registry receives the prediction metrics; nil creates a private one.
	Registry *prometheus.Registry
	// WithRunLog records streaming runs when POSTGRES_DSN is set.
	WithRunLog bool
	// WithQueue connects to NATS when NATS_URL is set.
	WithQueue bool
}

// App holds the session and every wired component. The session is built
// once and shared read-only.
type App struct {
	Config  config.Config
	Session domain.Session

	Predictor  *usecase.PredictUseCase
	Normalizer *usecase.Normalizer
	Stream     *usecase.StreamUseCase
	Metrics    *metrics.PredictionMetrics

	Runs  *postgres.RunRepository
	Queue *nats.Queue

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	extraPrefixes, err := curie.ParsePrefixes(cfg.CURIEPrefixes)
	if err != nil {
		return nil, err
	}

	store, err := localfs.New(cfg.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	service := opts.Service
	if service == "" {
		service = "predict"
	}
	app.Metrics = metrics.NewPredictionMetrics(service, opts.Registry)

	executor := resilience.NewExecutor(ResilienceConfig(cfg), resilience.WithObserver(app.Metrics))
	client := sparql.NewWithOptions(cfg.SPARQLEndpoint, sparql.Options{
		HTTPClient:         &http.Client{},
		ResilienceExecutor: executor,
	})
	calibrator := sparql.NewCalibrator(client, sparql.CalibrationOptions{
		Queries:    cfg.CalibrationQueries,
		Factor:     cfg.CalibrationFactor,
		MinTimeout: cfg.CalibrationMinTimeout(),
		MaxTimeout: cfg.CalibrationMaxTimeout(),
	})

	session, err := usecase.NewSessionBuilder(store, reduction.NewReducer(), calibrator).Build(ctx, usecase.SessionOptions{
		Endpoint:         client.Endpoint(),
		MaxQueries:       cfg.MaxQueries,
		ReductionVariant: cfg.ClusteringVariant,
		FusionMethods:    cfg.FusionMethods,
		Timeout:          cfg.QueryTimeout(),
		Limits: domain.Limits{
			MaxResults:              cfg.MaxResults,
			MaxCandidatesPerPattern: cfg.MaxTargetCandidatesPerPattern,
		},
	})
	if err != nil {
		return nil, err
	}
	app.Session = session

	gateway := sparql.NewGateway(client, sparql.GatewayOptions{
		Parallelism: cfg.QueryParallelism,
		ResultLimit: cfg.QueryResultLimit,
		Observer:    app.Metrics,
	})
	app.Predictor = usecase.NewPredictUseCase(session, gateway, fusion.NewEngine(cfg.FusionRRFK), app.Metrics)
	app.Normalizer = usecase.NewNormalizer(curie.NewResolver(extraPrefixes), cfg.DropBadURIs)

	var runs ports.RunRecorder
	if opts.WithRunLog && cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
		app.Runs = postgres.NewRunRepository(db)
		if err := app.Runs.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		runs = app.Runs
	}

	if opts.WithQueue && cfg.NATSURL != "" {
		queue, err := nats.New(cfg.NATSURL, nats.Options{
			RequestSubject:     cfg.NATSRequestSubject,
			ResultSubject:      cfg.NATSResultSubject,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		app.closeFns = append(app.closeFns, queue.Close)
		app.Queue = queue
	}

	app.Stream = usecase.NewStreamUseCase(session, app.Normalizer, app.Predictor, runs, app.Metrics, usecase.StreamOptions{
		BatchSize: cfg.ChunkSize(),
	})

	ok = true
	return app, nil
}

// ResilienceConfig maps the SPARQL_RETRY_* and SPARQL_BREAKER_* settings.
func ResilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.SPARQLRetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.SPARQLRetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.SPARQLRetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          cfg.SPARQLBreakerEnabled,
		BreakerMinRequests:      uint32(max(cfg.SPARQLBreakerMinRequests, 0)),
		BreakerFailureRatio:     cfg.SPARQLBreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(cfg.SPARQLBreakerOpenTimeoutSeconds) * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (a *App) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
	a.closeFns = nil
}
