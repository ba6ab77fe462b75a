package entry

import (
	"fmt"

	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// ContentEntry is an authored entry together with the sources it cites.
type ContentEntry struct {
	Slug         string
	Title        string
	LastVerified types.Date

	// ClaimsDisclosure is set when the entry presents itself as disclosing
	// its primary sources. Such an entry must cite at least one source.
	ClaimsDisclosure bool

	Sources []source.Source
}

// ValidatedEntry is a ContentEntry that passed Validate with no violations.
// It can only be obtained from Validate.
type ValidatedEntry struct {
	slug         string
	title        string
	lastVerified types.Date
	sources      []source.Source
}

func (v ValidatedEntry) Slug() string             { return v.slug }
func (v ValidatedEntry) Title() string            { return v.title }
func (v ValidatedEntry) LastVerified() types.Date { return v.lastVerified }

// Sources returns a copy of the entry's sources in authored order.
func (v ValidatedEntry) Sources() []source.Source {
	return append([]source.Source(nil), v.sources...)
}

// Validate checks every source of entry and the entry-level invariants. It
// never stops at the first problem: all violations are returned, in source
// order, followed by entry-level ones. The ValidatedEntry is only meaningful
// when no violations are returned.
func Validate(entry ContentEntry) (ValidatedEntry, []Violation) {
	var violations []Violation
	firstByID := make(map[source.CanonicalID]int, len(entry.Sources))

	for index, src := range entry.Sources {
		violations = append(violations, checkSource(entry.Slug, index, src)...)

		identity := source.GenerateID(src.Descriptor())
		if first, seen := firstByID[identity]; seen {
			violation := sourceViolation(DuplicateCanonicalID, entry.Slug, index, src,
				fmt.Sprintf("resolves to the same canonical id as source %d; merge the two citations", first))
			violation.CanonicalID = identity
			violations = append(violations, violation)
			continue
		}
		firstByID[identity] = index
	}

	if entry.ClaimsDisclosure && len(entry.Sources) == 0 {
		violations = append(violations, Violation{
			Kind:    EmptyDisclosure,
			Slug:    entry.Slug,
			Index:   NoSource,
			Message: "entry claims primary source disclosure but cites no sources",
		})
	}

	if len(violations) > 0 {
		return ValidatedEntry{}, violations
	}
	return ValidatedEntry{
		slug:         entry.Slug,
		title:        entry.Title,
		lastVerified: entry.LastVerified,
		sources:      append([]source.Source(nil), entry.Sources...),
	}, nil
}

func checkSource(slug string, index int, src source.Source) []Violation {
	var violations []Violation
	descriptor := src.Descriptor()

	expectedLevel := source.Classify(descriptor)
	switch level := src.AuthorityLevel(); {
	case !level.Valid():
		violations = append(violations, sourceViolation(MissingAuthorityLevel, slug, index, src,
			"source has no authority level"))
	case level != expectedLevel:
		violations = append(violations, sourceViolation(AuthorityLevelMismatch, slug, index, src,
			fmt.Sprintf("recorded %s but %s classifies as %s", level, descriptor.Type(), expectedLevel)))
	}

	expectedID := source.GenerateID(descriptor)
	switch id := src.CanonicalID(); {
	case id.IsZero():
		violations = append(violations, sourceViolation(MissingCanonicalID, slug, index, src,
			"source has no canonical id"))
	case id != expectedID:
		violations = append(violations, sourceViolation(CanonicalIDMismatch, slug, index, src,
			fmt.Sprintf("recorded id %s does not match generated id %s", id, expectedID)))
	}

	return violations
}
