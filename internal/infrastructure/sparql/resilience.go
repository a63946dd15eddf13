package sparql

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/resilience"
)

// HTTPStatusError is a non-2xx answer from the endpoint.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("sparql %s status: %s", e.Operation, e.Status)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}

// classifySPARQLError retries overload answers and network failures. Only
// server-side statuses count against the breaker: a 400 means the query
// was bad, not that the endpoint is unhealthy.
func classifySPARQLError(err error) resilience.Classification {
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && !resilience.IsCircuitOpen(err) {
		return resilience.Classification{
			Retryable:     retryableStatus(statusErr.StatusCode),
			RecordFailure: statusErr.StatusCode >= http.StatusInternalServerError,
		}
	}
	return resilience.Classify(err, func(err error) bool {
		var netErr net.Error
		return errors.As(err, &netErr)
	})
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
