package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput            = errors.New("invalid input")
	ErrMalformedInputTerm      = errors.New("malformed input term")
	ErrNoTrainedModel          = errors.New("no trained model found")
	ErrFusionContractViolation = errors.New("fusion contract violation")
	ErrCandidateMisaligned     = errors.New("candidate set not aligned with patterns")
	ErrUnsupportedFusionMethod = errors.New("unsupported fusion method")
	ErrGateway                 = errors.New("candidate retrieval failed")
	ErrTemporary               = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
