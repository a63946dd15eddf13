package nats

import (
	"errors"

	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// classifyNATSError retries publishes that failed on connection state.
func classifyNATSError(err error) resilience.Classification {
	return resilience.Classify(err, func(err error) bool {
		return errors.Is(err, nats.ErrNoServers) ||
			errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, nats.ErrConnectionClosed) ||
			errors.Is(err, nats.ErrDisconnected) ||
			errors.Is(err, nats.ErrConnectionReconnecting)
	})
}
