package corpus

import (
	"fmt"
	"strings"

	"github.com/coolbeans/lexcanon/pkg/entry"
	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// BuildOptions controls how stored records become engine values.
type BuildOptions struct {
	// RequireIdentity leaves tiers and ids that were never persisted unset,
	// so validation reports them as missing.
	RequireIdentity bool
}

// BuildSource turns a stored source into an engine Source. Persisted tier
// and id are kept as stored so that validation can compare them with the
// derived values; absent ones are derived unless opts.RequireIdentity is set.
func BuildSource(record SourceRecord, registry *types.JurisdictionRegistry, opts BuildOptions) (source.Source, error) {
	sourceType, err := source.ParseSourceType(strings.TrimSpace(record.Type))
	if err != nil {
		return source.Source{}, err
	}
	jurisdiction, err := registry.Resolve(record.Jurisdiction)
	if err != nil {
		return source.Source{}, err
	}

	input := source.Input{
		Title:        record.Title,
		Type:         sourceType,
		Jurisdiction: jurisdiction,
		Citation:     record.Citation,
		URL:          record.URL,
	}
	if record.PublicationDate != "" {
		published, err := types.ParseDate(record.PublicationDate)
		if err != nil {
			return source.Source{}, fmt.Errorf("publication_date: %w", err)
		}
		input.PublicationDate = &published
	}

	descriptor, err := source.NewDescriptor(input)
	if err != nil {
		return source.Source{}, err
	}
	derived := source.NewSource(descriptor)

	level := derived.AuthorityLevel()
	if record.AuthorityLevel != "" {
		if level, err = source.ParseAuthorityLevel(record.AuthorityLevel); err != nil {
			return source.Source{}, err
		}
	} else if opts.RequireIdentity {
		level = source.LevelUnset
	}

	id := derived.CanonicalID()
	if record.CanonicalID != "" {
		if id, err = source.ParseCanonicalID(record.CanonicalID); err != nil {
			return source.Source{}, err
		}
	} else if opts.RequireIdentity {
		id = ""
	}

	return source.Restore(descriptor, level, id), nil
}

// BuildEntry turns a stored entry into a ContentEntry. Sources that cannot
// be built are left out and reported as MalformedSource violations.
func BuildEntry(record EntryRecord, registry *types.JurisdictionRegistry, opts BuildOptions) (entry.ContentEntry, []entry.Violation) {
	content, _, violations := buildEntry(record, registry, opts)
	return content, violations
}

// buildEntry also returns, for each built source, its index in record.Sources.
func buildEntry(record EntryRecord, registry *types.JurisdictionRegistry, opts BuildOptions) (entry.ContentEntry, []int, []entry.Violation) {
	var violations []entry.Violation
	content := entry.ContentEntry{
		Slug:             record.Slug,
		Title:            record.Title,
		ClaimsDisclosure: record.Disclosure(),
	}

	if record.LastVerified != "" {
		verified, err := types.ParseDate(record.LastVerified)
		if err != nil {
			violations = append(violations, entry.Violation{
				Kind:    entry.MalformedSource,
				Slug:    record.Slug,
				Index:   entry.NoSource,
				Message: fmt.Sprintf("last_verified: %v", err),
			})
		}
		content.LastVerified = verified
	}

	positions := make([]int, 0, len(record.Sources))
	for index, sourceRecord := range record.Sources {
		built, err := BuildSource(sourceRecord, registry, opts)
		if err != nil {
			violations = append(violations, entry.Violation{
				Kind:     entry.MalformedSource,
				Slug:     record.Slug,
				Index:    index,
				Citation: sourceRecord.Label(),
				Message:  err.Error(),
			})
			continue
		}
		content.Sources = append(content.Sources, built)
		positions = append(positions, index)
	}

	return content, positions, violations
}

// Check builds and validates a stored entry. Violation indexes always refer
// to positions in record.Sources. The ValidatedEntry is only meaningful when
// no violations are returned.
func Check(record EntryRecord, registry *types.JurisdictionRegistry, opts BuildOptions) (entry.ValidatedEntry, []entry.Violation) {
	content, positions, violations := buildEntry(record, registry, opts)

	validated, validationViolations := entry.Validate(content)
	for _, violation := range validationViolations {
		// Authored sources that failed to build are already reported.
		if violation.Kind == entry.EmptyDisclosure && len(record.Sources) > 0 {
			continue
		}
		if violation.Index != entry.NoSource {
			violation.Index = positions[violation.Index]
		}
		violations = append(violations, violation)
	}

	if len(violations) > 0 {
		return entry.ValidatedEntry{}, violations
	}
	return validated, nil
}

// Stamp returns a copy of record with each buildable source's derived tier
// and canonical id written in, replacing any stale persisted values.
// Sources that cannot be built are copied unchanged.
func Stamp(record EntryRecord, registry *types.JurisdictionRegistry) EntryRecord {
	stamped := cloneEntryRecord(record)
	for i, sourceRecord := range stamped.Sources {
		sourceRecord.AuthorityLevel = ""
		sourceRecord.CanonicalID = ""
		built, err := BuildSource(sourceRecord, registry, BuildOptions{})
		if err != nil {
			continue
		}
		sourceRecord.AuthorityLevel = built.AuthorityLevel().String()
		sourceRecord.CanonicalID = built.CanonicalID().String()
		stamped.Sources[i] = sourceRecord
	}
	return stamped
}

// IdentityChange records one persisted tier or id that Restamp rewrote.
type IdentityChange struct {
	Slug     string `json:"slug"`
	Index    int    `json:"index"`
	Citation string `json:"citation"`
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// Restamp returns a snapshot whose entries are stamped with their derived
// tiers and ids, and the persisted values it overwrote. Values that were
// never persisted are filled in without being reported.
func Restamp(snapshot *Snapshot) (*Snapshot, []IdentityChange) {
	var changes []IdentityChange
	entries := snapshot.Entries()
	for i, record := range entries {
		stamped := Stamp(record, snapshot.Registry())
		for index, before := range record.Sources {
			after := stamped.Sources[index]
			if before.AuthorityLevel != "" && before.AuthorityLevel != after.AuthorityLevel {
				changes = append(changes, IdentityChange{
					Slug: record.Slug, Index: index, Citation: before.Label(),
					Field: "authority_level", Previous: before.AuthorityLevel, Current: after.AuthorityLevel,
				})
			}
			if before.CanonicalID != "" && before.CanonicalID != after.CanonicalID {
				changes = append(changes, IdentityChange{
					Slug: record.Slug, Index: index, Citation: before.Label(),
					Field: "canonical_id", Previous: before.CanonicalID, Current: after.CanonicalID,
				})
			}
		}
		entries[i] = stamped
	}
	return snapshot.withEntries(entries), changes
}

