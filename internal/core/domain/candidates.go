package domain

import "sort"

// TargetSet is the set of targets one pattern suggests for one entity.
type TargetSet map[Entity]struct{}

func NewTargetSet(targets ...Entity) TargetSet {
	set := make(TargetSet, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return set
}

func (s TargetSet) Add(target Entity) { s[target] = struct{}{} }

// Sorted returns the targets in ascending canonical order.
func (s TargetSet) Sorted() []Entity {
	out := make([]Entity, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CandidateSet is aligned 1:1 with the session's pattern sequence. Patterns
// that found nothing hold an empty set, never a missing slot.
type CandidateSet []TargetSet

// NewCandidateSet returns n empty target sets.
func NewCandidateSet(n int) CandidateSet {
	cs := make(CandidateSet, n)
	for i := range cs {
		cs[i] = TargetSet{}
	}
	return cs
}
