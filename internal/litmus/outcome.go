package litmus

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the tuple of final register values produced by one trial, all
// workers' registers concatenated in worker order. Every trial produces
// exactly one Outcome, captured after all workers have joined and before the
// next reset.
type Outcome []int64

// Key returns the canonical histogram key for the outcome, e.g. "0,5".
func (o Outcome) Key() string {
	var b strings.Builder
	for i, v := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(v, 10))
	}
	return b.String()
}

// Equal reports whether two outcomes are identical tuples.
func (o Outcome) Equal(other Outcome) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Predicate classifies outcomes that cannot be enumerated as explicit
// tuples, such as "the anomaly counter is nonzero".
type Predicate struct {
	// Name labels the predicate in reports and validation errors.
	Name string

	// Match reports whether the outcome belongs to the predicate's set.
	Match func(Outcome) bool
}

// Classification is the oracle's verdict on one outcome.
type Classification int

const (
	// Allowed means the outcome is in the allowed set.
	Allowed Classification = iota

	// Forbidden means the outcome is in the forbidden set: the harness
	// witnessed a violation.
	Forbidden

	// Unexpected means the outcome is in neither set. It is reported but
	// fails the run only under closed-world checking.
	Unexpected
)

func (c Classification) String() string {
	switch c {
	case Allowed:
		return "allowed"
	case Forbidden:
		return "forbidden"
	case Unexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// OutcomeSet is the test oracle: disjoint allowed and forbidden outcome
// sets, as explicit tuples and/or predicates.
type OutcomeSet struct {
	Allowed   []Outcome
	Forbidden []Outcome

	AllowedIf   []Predicate
	ForbiddenIf []Predicate

	// ClosedWorld upgrades Unexpected outcomes to run failures: anything
	// not explicitly allowed is treated as a violation.
	ClosedWorld bool
}

// Validate rejects oracles whose explicit allowed and forbidden tuples
// overlap. Predicate overlap cannot be checked statically; Classify resolves
// it in favor of Forbidden so an overlap can never mask a violation.
func (s *OutcomeSet) Validate() error {
	if len(s.Allowed) == 0 && len(s.AllowedIf) == 0 && !s.ClosedWorld {
		return fmt.Errorf("outcome oracle has no allowed set")
	}
	forbidden := make(map[string]bool, len(s.Forbidden))
	for _, o := range s.Forbidden {
		forbidden[o.Key()] = true
	}
	for _, o := range s.Allowed {
		if forbidden[o.Key()] {
			return fmt.Errorf("outcome %s is both allowed and forbidden", o.Key())
		}
	}
	for _, p := range s.ForbiddenIf {
		if p.Match == nil {
			return fmt.Errorf("forbidden predicate %q has no match function", p.Name)
		}
	}
	for _, p := range s.AllowedIf {
		if p.Match == nil {
			return fmt.Errorf("allowed predicate %q has no match function", p.Name)
		}
	}
	return nil
}

// Classify returns the oracle's verdict. Forbidden matches win over allowed
// ones, and explicit tuples are consulted before predicates.
func (s *OutcomeSet) Classify(o Outcome) Classification {
	for _, f := range s.Forbidden {
		if o.Equal(f) {
			return Forbidden
		}
	}
	for _, p := range s.ForbiddenIf {
		if p.Match(o) {
			return Forbidden
		}
	}
	for _, a := range s.Allowed {
		if o.Equal(a) {
			return Allowed
		}
	}
	for _, p := range s.AllowedIf {
		if p.Match(o) {
			return Allowed
		}
	}
	return Unexpected
}
