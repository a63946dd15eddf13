package resilience

import (
	"context"
	"errors"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// Classification tells the executor whether to retry a failed call and
// whether the failure counts against the breaker.
type Classification struct {
	Retryable     bool
	RecordFailure bool
}

type Classifier func(err error) Classification

var (
	permanent = Classification{RecordFailure: true}
	transient = Classification{Retryable: true, RecordFailure: true}
)

// Classify settles the cases every transport shares: nil and cancelled
// calls are neither retried nor recorded, an open breaker is transient.
// Anything else is transient when isTransient says so.
func Classify(err error, isTransient func(error) bool) Classification {
	switch {
	case err == nil:
		return Classification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Classification{}
	case IsCircuitOpen(err):
		return transient
	case isTransient != nil && isTransient(err):
		return transient
	default:
		return permanent
	}
}

// AsTemporary marks err as domain.ErrTemporary when classify would retry it.
// Context errors pass through untouched.
func AsTemporary(operation string, err error, classify Classifier) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if classify == nil {
		classify = func(err error) Classification { return Classify(err, nil) }
	}
	if classify(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
