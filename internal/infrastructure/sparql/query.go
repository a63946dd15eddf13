package sparql

import (
	"fmt"
	"strings"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

const probeQuery = "SELECT * WHERE { ?s ?p ?o } LIMIT 1"

// BuildPatternQuery renders one pattern as a SELECT over ?source/?target with
// the given entities bound to ?source.
func BuildPatternQuery(pattern domain.Pattern, entities []domain.Entity, limit int) (string, error) {
	if len(pattern.Triples) == 0 {
		return "", fmt.Errorf("pattern has no triples")
	}
	if len(entities) == 0 {
		return "", fmt.Errorf("no source entities")
	}
	if !bindsVar(pattern, domain.TargetVar) {
		return "", fmt.Errorf("pattern does not bind %s", domain.TargetVar)
	}

	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(domain.SourceVar)
	b.WriteString(" ")
	b.WriteString(domain.TargetVar)
	b.WriteString(" WHERE {\n VALUES ")
	b.WriteString(domain.SourceVar)
	b.WriteString(" {")
	for _, e := range entities {
		b.WriteString(" ")
		b.WriteString(e.String())
	}
	b.WriteString(" }\n")
	for _, t := range pattern.Triples {
		fmt.Fprintf(&b, " %s %s %s .\n", t[0], t[1], t[2])
	}
	b.WriteString("}")
	if limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d", limit)
	}
	return b.String(), nil
}

func bindsVar(pattern domain.Pattern, v string) bool {
	for _, t := range pattern.Triples {
		for _, term := range t {
			if term == v {
				return true
			}
		}
	}
	return false
}
