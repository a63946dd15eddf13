package sparql

import (
	"strings"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
)

// Results is the application/sparql-results+json document.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]Binding `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

type Binding struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Term renders the binding in canonical N3. Blank nodes have no stable
// identity across queries and report ok=false.
func (b Binding) Term() (domain.Entity, bool) {
	switch b.Type {
	case "uri":
		return domain.Entity("<" + b.Value + ">"), true
	case "literal", "typed-literal":
		term := `"` + escapeLiteral(b.Value) + `"`
		switch {
		case b.Lang != "":
			term += "@" + b.Lang
		case b.Datatype != "":
			term += "^^<" + b.Datatype + ">"
		}
		return domain.Entity(term), true
	default:
		return "", false
	}
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escapeLiteral(v string) string {
	return literalEscaper.Replace(v)
}
