package usecase

import (
	"log/slog"
	"strings"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/kirillkom/graph-pattern-predictor/internal/core/ports"
)

// Normalizer parses raw input lines into entities. In tolerant mode lines that
// are malformed or cannot be curified are logged and skipped.
type Normalizer struct {
	resolver ports.IdentifierResolver
	tolerant bool
}

func NewNormalizer(resolver ports.IdentifierResolver, tolerant bool) *Normalizer {
	return &Normalizer{resolver: resolver, tolerant: tolerant}
}

func (n *Normalizer) Normalize(line string) (domain.Entity, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false, nil
	}

	entity, err := domain.ParseTerm(line)
	if err != nil {
		if n.tolerant {
			slog.Warn("skip_malformed_term", "line", line, "error", err)
			return "", false, nil
		}
		return "", false, err
	}

	if n.tolerant && n.resolver != nil {
		if _, err := n.resolver.Curify(entity); err != nil {
			slog.Warn("skip_uncurifiable_term", "entity", entity.String(), "error", err)
			return "", false, nil
		}
	}
	return entity, true, nil
}

// Dedupe drops later duplicates and keeps first-seen order.
func Dedupe(entities []domain.Entity) []domain.Entity {
	seen := make(map[domain.Entity]struct{}, len(entities))
	out := make([]domain.Entity, 0, len(entities))
	for _, e := range entities {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
