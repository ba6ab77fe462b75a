// Package conflict resolves explicitly asserted conflicts between two cited
// sources by authority tier alone.
package conflict

import (
	"errors"
	"fmt"

	"github.com/coolbeans/lexcanon/pkg/source"
)

var (
	// ErrAssertionMismatch is returned when the assertion does not name the two sources.
	ErrAssertionMismatch = errors.New("conflict assertion does not name both sources")

	// ErrUnclassified is returned when either source has no authority tier.
	ErrUnclassified = errors.New("conflicting source has no authority level")
)

// Assertion records that two sources disagree on a point. Assertions are
// authored; the resolver never discovers conflicts on its own.
type Assertion struct {
	Left  source.CanonicalID `json:"left" yaml:"left"`
	Right source.CanonicalID `json:"right" yaml:"right"`
	Point string             `json:"point" yaml:"point"`
	Note  string             `json:"note,omitempty" yaml:"note,omitempty"`
}

// Names reports whether the assertion is about exactly left and right,
// in either order.
func (a Assertion) Names(left, right source.CanonicalID) bool {
	return (a.Left == left && a.Right == right) || (a.Left == right && a.Right == left)
}

// Outcome is the kind of a resolution.
type Outcome string

const (
	// OutcomeControlling means one source outranks the other.
	OutcomeControlling Outcome = "controlling"

	// OutcomeIndeterminate means both sources share a tier. It must be
	// escalated to editorial review and is not an error.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Resolution is the result of resolving one assertion.
type Resolution struct {
	Outcome     Outcome
	Assertion   Assertion
	Controlling source.Source
	Subordinate source.Source

	// Tied holds both sources, in assertion order, when the outcome is indeterminate.
	Tied [2]source.Source
}

// Resolved reports whether a controlling source was determined.
func (r Resolution) Resolved() bool {
	return r.Outcome == OutcomeControlling
}

// Resolve decides which of a and b controls on the asserted point. The
// higher tier always controls, whatever the argument order; equal tiers
// yield OutcomeIndeterminate.
func Resolve(a, b source.Source, assertion Assertion) (Resolution, error) {
	if a.CanonicalID() == b.CanonicalID() || !assertion.Names(a.CanonicalID(), b.CanonicalID()) {
		return Resolution{}, fmt.Errorf("%w: assertion on %s/%s, sources %s/%s",
			ErrAssertionMismatch, assertion.Left, assertion.Right, a.CanonicalID(), b.CanonicalID())
	}
	for _, s := range []source.Source{a, b} {
		if !s.AuthorityLevel().Valid() {
			return Resolution{}, fmt.Errorf("%w: %s", ErrUnclassified, s.CanonicalID())
		}
	}

	if a.CanonicalID() != assertion.Left {
		a, b = b, a
	}

	switch {
	case a.AuthorityLevel().Outranks(b.AuthorityLevel()):
		return Resolution{Outcome: OutcomeControlling, Assertion: assertion, Controlling: a, Subordinate: b}, nil
	case b.AuthorityLevel().Outranks(a.AuthorityLevel()):
		return Resolution{Outcome: OutcomeControlling, Assertion: assertion, Controlling: b, Subordinate: a}, nil
	}
	return Resolution{Outcome: OutcomeIndeterminate, Assertion: assertion, Tied: [2]source.Source{a, b}}, nil
}
