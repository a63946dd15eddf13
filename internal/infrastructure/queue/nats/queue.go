package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/resilience"
)

const (
	workerQueueGroup = "workers"
	clientName       = "graph-pattern-predictor"
)

// Queue carries prediction requests to workers and publishes finished
// records.
type Queue struct {
	conn           *nats.Conn
	requestSubject string
	resultSubject  string
	executor       *resilience.Executor
}

type Options struct {
	RequestSubject string
	ResultSubject  string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
	// RetryOnFailedConnect defaults to true so a worker can start before
	// the broker.
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func (o Options) natsOptions() []nats.Option {
	retry := o.RetryOnFailedConnect == nil || *o.RetryOnFailedConnect
	return []nats.Option{
		nats.Name(clientName),
		nats.Timeout(orDefault(o.ConnectTimeout, 2*time.Second)),
		nats.ReconnectWait(orDefault(o.ReconnectWait, 2*time.Second)),
		nats.MaxReconnects(orDefault(o.MaxReconnects, 60)),
		nats.RetryOnFailedConnect(retry),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			slog.Error("nats_async_error", "subject", subject, "error", err)
		}),
	}
}

func orDefault[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func New(url string, options Options) (*Queue, error) {
	conn, err := nats.Connect(url, options.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		requestSubject: options.RequestSubject,
		resultSubject:  options.ResultSubject,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Emit publishes a finished record on the result subject. Without a result
// subject it does nothing.
func (q *Queue) Emit(ctx context.Context, record domain.ResultRecord) error {
	if q.resultSubject == "" {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = resilience.Do(ctx, q.executor, "nats.publish", func(context.Context) (struct{}, error) {
		return struct{}{}, q.conn.Publish(q.resultSubject, payload)
	}, classifyNATSError)
	if err != nil {
		return resilience.AsTemporary("nats publish", fmt.Errorf("publish %s: %w", q.resultSubject, err), classifyNATSError)
	}
	return nil
}

// PredictHandler answers one request line with its record.
type PredictHandler func(ctx context.Context, line string) (*domain.ResultRecord, error)

// SubscribePredictRequests serves request/reply predictions in the worker
// queue group until ctx is done, then drains the subscription.
func (q *Queue) SubscribePredictRequests(ctx context.Context, handler PredictHandler) error {
	sub, err := q.conn.QueueSubscribe(q.requestSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		record, err := handler(handlerCtx, string(msg.Data))
		if err != nil {
			slog.Error("predict_request_failed", "source", string(msg.Data), "error", err)
		}
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(buildReply(record, err)); err != nil {
			slog.Error("predict_reply_failed", "source", string(msg.Data), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func buildReply(record *domain.ResultRecord, err error) []byte {
	if err == nil && record == nil {
		err = errors.New("no record produced")
	}
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return payload
	}
	payload, mErr := json.Marshal(record)
	if mErr != nil {
		payload, _ = json.Marshal(map[string]string{"error": mErr.Error()})
	}
	return payload
}
