package domain

import "time"

// ResultRecord is the transport-ready prediction for one entity. The JSON
// keys follow the established output format so existing consumers of
// prediction dumps read it unchanged.
type ResultRecord struct {
	Entity               Entity       `json:"source"`
	OriginalResultLength int          `json:"orig_result_length"`
	PerPatternCandidates [][]Entity   `json:"graph_pattern_target_candidates"`
	FusedResults         FusionResult `json:"fused_results"`
}

// Limits are the bandwidth caps applied by the bundler. Zero (or, for
// MaxCandidatesPerPattern, anything below one) means unlimited.
type Limits struct {
	MaxResults              int
	MaxCandidatesPerPattern int
}

// Session is the startup-loaded, read-only configuration shared by every
// prediction call.
type Session struct {
	Endpoint      string
	ModelArtifact string
	Timeout       time.Duration
	Patterns      []Pattern
	Methods       []FusionMethod
	Limits        Limits
}

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// PredictionRun is the bookkeeping row of one streaming run.
type PredictionRun struct {
	ID            string
	ModelArtifact string
	Endpoint      string
	PatternCount  int
	Timeout       time.Duration
	StartedAt     time.Time

	Status       RunStatus
	Processed    int
	Elapsed      time.Duration
	FinishedAt   *time.Time
	ErrorMessage string
}
