package domain

// Variables every learned pattern binds.
const (
	SourceVar = "?source"
	TargetVar = "?target"
)

// Triple is one pattern statement; each position is an N3 term or a ?variable.
type Triple [3]string

// Pair is a ground-truth (source, target) association.
type Pair struct {
	Source Entity `json:"source"`
	Target Entity `json:"target"`
}

// Pattern is a learned, pre-scored query template. Its index in the session's
// pattern sequence is the key that aligns candidate sets across calls.
type Pattern struct {
	Triples   []Triple `json:"triples"`
	Score     float64  `json:"score"`
	Precision float64  `json:"precision,omitempty"`
	Recall    float64  `json:"recall,omitempty"`
	Matches   []Pair   `json:"matches,omitempty"`
}

// F1 is the harmonic mean of the pattern's training precision and recall.
func (p Pattern) F1() float64 {
	if p.Precision+p.Recall <= 0 {
		return 0
	}
	return 2 * p.Precision * p.Recall / (p.Precision + p.Recall)
}

// ScoredPair carries the training score of one ground-truth pair.
type ScoredPair struct {
	Pair
	Score    float64 `json:"score"`
	Coverage int     `json:"coverage,omitempty"`
}

// Model is a loaded training artifact.
type Model struct {
	Artifact    string       `json:"-"`
	Patterns    []Pattern    `json:"patterns"`
	GroundTruth []ScoredPair `json:"ground_truth"`
}
