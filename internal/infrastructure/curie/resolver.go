package curie

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// DefaultPrefixes are the namespaces commonly found in linked open data.
var DefaultPrefixes = map[string]string{
	"rdf":     "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
	"rdfs":    "http://www.w3.org/2000/01/rdf-schema#",
	"owl":     "http://www.w3.org/2002/07/owl#",
	"xsd":     "http://www.w3.org/2001/XMLSchema#",
	"skos":    "http://www.w3.org/2004/02/skos/core#",
	"foaf":    "http://xmlns.com/foaf/0.1/",
	"dc":      "http://purl.org/dc/elements/1.1/",
	"dcterms": "http://purl.org/dc/terms/",
	"schema":  "http://schema.org/",
	"dbo":     "http://dbpedia.org/ontology/",
	"dbp":     "http://dbpedia.org/property/",
	"dbr":     "http://dbpedia.org/resource/",
	"dbc":     "http://dbpedia.org/resource/Category:",
	"yago":    "http://yago-knowledge.org/resource/",
	"wd":      "http://www.wikidata.org/entity/",
	"wdt":     "http://www.wikidata.org/prop/direct/",
	"geo":     "http://www.w3.org/2003/01/geo/wgs84_pos#",
	"prov":    "http://www.w3.org/ns/prov#",
}

var localNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_.\-]*[A-Za-z0-9_\-])?$`)

type namespace struct {
	prefix string
	iri    string
}

// Resolver maps IRIs to prefix:local form. Namespaces are tried longest
// first so nested namespaces win over their parents.
type Resolver struct {
	namespaces []namespace
}

func NewResolver(extra map[string]string) *Resolver {
	merged := make(map[string]string, len(DefaultPrefixes)+len(extra))
	for p, ns := range DefaultPrefixes {
		merged[p] = ns
	}
	for p, ns := range extra {
		merged[p] = ns
	}

	r := &Resolver{namespaces: make([]namespace, 0, len(merged))}
	for p, ns := range merged {
		r.namespaces = append(r.namespaces, namespace{prefix: p, iri: ns})
	}
	sort.Slice(r.namespaces, func(i, j int) bool {
		if len(r.namespaces[i].iri) != len(r.namespaces[j].iri) {
			return len(r.namespaces[i].iri) > len(r.namespaces[j].iri)
		}
		return r.namespaces[i].prefix < r.namespaces[j].prefix
	})
	return r
}

// ParsePrefixes reads "prefix=namespace" pairs separated by commas.
func ParsePrefixes(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		prefix, ns, ok := strings.Cut(item, "=")
		prefix, ns = strings.TrimSpace(prefix), strings.TrimSpace(ns)
		if !ok || prefix == "" || ns == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse curie prefixes", fmt.Errorf("bad entry %q", item))
		}
		out[prefix] = ns
	}
	return out, nil
}

// Curify returns the compact form of an IRI. Literals are returned verbatim.
func (r *Resolver) Curify(entity domain.Entity) (string, error) {
	if entity.IsLiteral() {
		return entity.String(), nil
	}
	iri := entity.IRI()
	if iri == "" {
		return "", domain.WrapError(domain.ErrMalformedInputTerm, "curify", fmt.Errorf("%q is not an IRI", entity))
	}
	for _, ns := range r.namespaces {
		if !strings.HasPrefix(iri, ns.iri) {
			continue
		}
		local := iri[len(ns.iri):]
		if !localNamePattern.MatchString(local) {
			return "", domain.WrapError(domain.ErrInvalidInput, "curify", fmt.Errorf("invalid local name %q in %s", local, iri))
		}
		return ns.prefix + ":" + local, nil
	}
	return "", domain.WrapError(domain.ErrInvalidInput, "curify", fmt.Errorf("no known namespace for %s", iri))
}
