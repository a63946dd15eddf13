package httpadapter

import (
	"net/http"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/infrastructure/resilience"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrMalformedInputTerm),
		domain.IsKind(err, domain.ErrUnsupportedFusionMethod):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary), resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
