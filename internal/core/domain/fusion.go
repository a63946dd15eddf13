package domain

import (
	"fmt"
	"strings"
)

// FusionMethod names a strategy that combines per-pattern candidates into one
// ranked list.
type FusionMethod string

const (
	FusionBasic      FusionMethod = "basic"
	FusionTargetOccs FusionMethod = "target_occs"
	FusionPrecisions FusionMethod = "precisions"
	FusionFMeasures  FusionMethod = "f_measures"
	FusionRRF        FusionMethod = "rrf"
)

const (
	fusionAll        = "all"
	fusionClassifier = "classifier"
)

// AllFusionMethods lists every implemented method in output order.
func AllFusionMethods() []FusionMethod {
	return []FusionMethod{FusionBasic, FusionTargetOccs, FusionPrecisions, FusionFMeasures, FusionRRF}
}

// ParseFusionMethods validates a comma-delimited selector. An empty selector
// or "all" selects every implemented method.
func ParseFusionMethods(selector string) ([]FusionMethod, error) {
	known := make(map[FusionMethod]bool)
	for _, m := range AllFusionMethods() {
		known[m] = true
	}

	var out []FusionMethod
	seen := make(map[FusionMethod]bool)
	for _, raw := range strings.Split(selector, ",") {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if name == fusionAll {
			return AllFusionMethods(), nil
		}
		if name == fusionClassifier {
			return nil, WrapError(ErrUnsupportedFusionMethod, "parse fusion methods", fmt.Errorf(
				"%q selects trained classifier fusions, but model artifacts carry no trained classifiers; use %q or a list of %s",
				name, fusionAll, joinMethods(AllFusionMethods())))
		}
		m := FusionMethod(name)
		if !known[m] {
			return nil, WrapError(ErrUnsupportedFusionMethod, "parse fusion methods",
				fmt.Errorf("unknown method %q, expected %q or any of %s", name, fusionAll, joinMethods(AllFusionMethods())))
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return AllFusionMethods(), nil
	}
	return out, nil
}

func joinMethods(methods []FusionMethod) string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// ScoredTarget is one ranked entry of a fused list.
type ScoredTarget struct {
	Target Entity  `json:"target"`
	Score  float64 `json:"score"`
}

// FusionResult maps each fusion method to its rank-ordered targets.
type FusionResult map[FusionMethod][]ScoredTarget
