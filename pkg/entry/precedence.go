package entry

import (
	"slices"
	"strings"

	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// Order returns the sources of a validated entry in precedence order:
// authority tier (tier 1 first), then jurisdiction in canonical order
// (federal before state, then by code), then normalized citation. Source
// type and canonical id break any remaining ties, so the result does not
// depend on the authored order. The comparator is fixed.
func Order(entry ValidatedEntry) []source.Source {
	ordered := entry.Sources()
	slices.SortStableFunc(ordered, compareSources)
	return ordered
}

func compareSources(a, b source.Source) int {
	if a.AuthorityLevel() != b.AuthorityLevel() {
		if a.AuthorityLevel().Outranks(b.AuthorityLevel()) {
			return -1
		}
		return 1
	}

	da, db := a.Descriptor(), b.Descriptor()
	if c := types.CompareJurisdictions(da.Jurisdiction(), db.Jurisdiction()); c != 0 {
		return c
	}
	if c := strings.Compare(da.NormalizedCitation(), db.NormalizedCitation()); c != 0 {
		return c
	}
	if da.Type() != db.Type() {
		if da.Type() < db.Type() {
			return -1
		}
		return 1
	}
	return strings.Compare(string(a.CanonicalID()), string(b.CanonicalID()))
}

// Publication is the reader-facing, precedence-ordered view of an entry.
type Publication struct {
	Slug         string
	Title        string
	LastVerified types.Date
	Sources      []source.Source
}

// Publish validates entry and, when it has no violations, returns its
// ordered publication. An entry with violations is never published.
func Publish(entry ContentEntry) (Publication, []Violation) {
	validated, violations := Validate(entry)
	if len(violations) > 0 {
		return Publication{}, violations
	}
	return Publication{
		Slug:         validated.Slug(),
		Title:        validated.Title(),
		LastVerified: validated.LastVerified(),
		Sources:      Order(validated),
	}, nil
}
