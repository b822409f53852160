package engine

import (
	"github.com/JetBrains-Research/KotlinMemoryModelResearch/internal/litmus"
)

// recorder aggregates trial outcomes for one run: the outcome histogram,
// per-classification counters, and the retained violation evidence.
//
// Mutated only by the controlling goroutine, strictly after each trial's
// join, so it needs no locking.
type recorder struct {
	oracle      *litmus.OutcomeSet
	hist        map[string]uint64
	forbidden   uint64
	unexpected  uint64
	evidence    []litmus.Evidence
	maxEvidence int
}

func newRecorder(t *litmus.Test, maxEvidence int) *recorder {
	return &recorder{
		oracle:      &t.Outcomes,
		hist:        make(map[string]uint64),
		maxEvidence: maxEvidence,
	}
}

// record tallies the outcome and returns its classification.
func (r *recorder) record(o litmus.Outcome) litmus.Classification {
	r.hist[o.Key()]++
	class := r.oracle.Classify(o)
	switch class {
	case litmus.Forbidden:
		r.forbidden++
	case litmus.Unexpected:
		r.unexpected++
	}
	return class
}

// retain keeps a violation record up to the evidence cap. Violations past
// the cap still count in the histogram and counters; only the detailed
// record is dropped.
func (r *recorder) retain(ev litmus.Evidence) {
	if len(r.evidence) >= r.maxEvidence {
		return
	}
	r.evidence = append(r.evidence, ev)
}

// histogram returns a copy of the outcome histogram.
func (r *recorder) histogram() map[string]uint64 {
	out := make(map[string]uint64, len(r.hist))
	for k, v := range r.hist {
		out[k] = v
	}
	return out
}
