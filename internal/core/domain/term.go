package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const xsdString = "http://www.w3.org/2001/XMLSchema#string"

// Entity is a graph node reference in canonical N3 form: `<iri>` or a quoted
// literal with an optional language tag or datatype. Two entities are equal
// when their canonical strings are equal.
type Entity string

var langTagPattern = regexp.MustCompile(`^[A-Za-z]+(-[A-Za-z0-9]+)*$`)

// ParseTerm parses a single N3 term. The line must start with '<' (IRI) or
// '"' (literal); anything else is ErrMalformedInputTerm.
func ParseTerm(line string) (Entity, error) {
	term := strings.TrimSpace(line)
	if term == "" {
		return "", WrapError(ErrMalformedInputTerm, "parse term", fmt.Errorf("empty term"))
	}

	switch term[0] {
	case '<':
		if err := validateIRIRef(term); err != nil {
			return "", WrapError(ErrMalformedInputTerm, "parse term", err)
		}
	case '"':
		if err := validateLiteral(term); err != nil {
			return "", WrapError(ErrMalformedInputTerm, "parse term", err)
		}
	default:
		return "", WrapError(ErrMalformedInputTerm, "parse term",
			fmt.Errorf("expected term to start with < or \", got %q", term))
	}
	return Entity(term), nil
}

// EntityFromIRI wraps a bare IRI into its canonical form.
func EntityFromIRI(iri string) (Entity, error) {
	return ParseTerm("<" + strings.TrimSpace(iri) + ">")
}

func (e Entity) String() string { return string(e) }

func (e Entity) IsIRI() bool { return strings.HasPrefix(string(e), "<") }

func (e Entity) IsLiteral() bool { return strings.HasPrefix(string(e), `"`) }

// IRI returns the IRI without angle brackets, or "" for literals.
func (e Entity) IRI() string {
	if !e.IsIRI() {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(string(e), "<"), ">")
}

// MatchKey identifies the RDF term behind e independent of its spelling.
// Literals compare by unescaped lexical value, lower-cased language tag and
// datatype, with xsd:string folded into the plain literal. IRIs and
// unparsable terms key by their canonical string.
func (e Entity) MatchKey() string {
	term := string(e)
	if !e.IsLiteral() {
		return term
	}
	end := closingQuote(term)
	if end < 0 {
		return term
	}
	lexical, err := unescapeLexical(term[1:end])
	if err != nil {
		return term
	}
	suffix := term[end+1:]
	switch {
	case strings.HasPrefix(suffix, "@"):
		suffix = "@" + strings.ToLower(suffix[1:])
	case suffix == "^^<"+xsdString+">":
		suffix = ""
	}
	return "\"" + lexical + "\"\x00" + suffix
}

// unescapeLexical resolves the N3 string escapes of a literal body.
func unescapeLexical(body string) (string, error) {
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(body) {
			return "", fmt.Errorf("dangling escape")
		}
		i++
		switch body[i] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(body[i])
		case 'u', 'U':
			width := 4
			if body[i] == 'U' {
				width = 8
			}
			if i+1+width > len(body) {
				return "", fmt.Errorf("short unicode escape")
			}
			code, err := strconv.ParseUint(body[i+1:i+1+width], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", fmt.Errorf("invalid unicode escape %q", body[i-1:i+1+width])
			}
			b.WriteRune(rune(code))
			i += width
		default:
			return "", fmt.Errorf("unknown escape \\%c", body[i])
		}
	}
	return b.String(), nil
}

func validateIRIRef(term string) error {
	if len(term) < 2 || term[len(term)-1] != '>' {
		return fmt.Errorf("unterminated IRI %q", term)
	}
	iri := term[1 : len(term)-1]
	if iri == "" {
		return fmt.Errorf("empty IRI")
	}
	if strings.ContainsAny(iri, "<>\"{}|^`\\ \t") {
		return fmt.Errorf("invalid character in IRI %q", term)
	}
	return nil
}

func validateLiteral(term string) error {
	end := closingQuote(term)
	if end < 0 {
		return fmt.Errorf("unterminated literal %q", term)
	}
	suffix := term[end+1:]
	switch {
	case suffix == "":
		return nil
	case strings.HasPrefix(suffix, "@"):
		if !langTagPattern.MatchString(suffix[1:]) {
			return fmt.Errorf("invalid language tag in %q", term)
		}
		return nil
	case strings.HasPrefix(suffix, "^^"):
		return validateIRIRef(suffix[2:])
	default:
		return fmt.Errorf("unexpected literal suffix in %q", term)
	}
}

// closingQuote returns the index of the quote closing the literal that opens
// at index 0, honouring backslash escapes.
func closingQuote(term string) int {
	for i := 1; i < len(term); i++ {
		switch term[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
