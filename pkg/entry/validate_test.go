package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

var registry = types.DefaultJurisdictionRegistry()

func descriptor(t testing.TB, sourceType source.SourceType, code, citationText string) source.Descriptor {
	t.Helper()
	jurisdiction, err := registry.Resolve(code)
	require.NoError(t, err)
	d, err := source.NewDescriptor(source.Input{
		Type:         sourceType,
		Jurisdiction: jurisdiction,
		Citation:     citationText,
	})
	require.NoError(t, err)
	return d
}

func newSource(t testing.TB, sourceType source.SourceType, code, citationText string) source.Source {
	t.Helper()
	return source.NewSource(descriptor(t, sourceType, code, citationText))
}

func kinds(violations []Violation) []ViolationKind {
	result := make([]ViolationKind, len(violations))
	for i, v := range violations {
		result[i] = v.Kind
	}
	return result
}

func TestValidateClean(t *testing.T) {
	entry := ContentEntry{
		Slug:             "form-5472",
		Title:            "Form 5472 for foreign-owned LLCs",
		LastVerified:     types.Date{Year: 2026, Month: 2, Day: 14},
		ClaimsDisclosure: true,
		Sources: []source.Source{
			newSource(t, source.ConstitutionalOrStatutory, "US", "26 U.S.C. § 6038A"),
			newSource(t, source.ImplementingRegulation, "US", "26 C.F.R. § 1.6038A-2"),
		},
	}

	validated, violations := Validate(entry)
	require.Empty(t, violations)
	assert.Equal(t, "form-5472", validated.Slug())
	assert.Equal(t, entry.LastVerified, validated.LastVerified())
	assert.Len(t, validated.Sources(), 2)
}

func TestValidateMissingCanonicalID(t *testing.T) {
	d := descriptor(t, source.ConstitutionalOrStatutory, "US", "8 U.S.C. § 1184(b)")
	entry := ContentEntry{
		Slug: "b1-b2",
		Sources: []source.Source{
			source.Restore(d, source.Tier1, ""),
			newSource(t, source.AgencyGuidance, "US", "9 FAM 402.2"),
		},
	}

	validated, violations := Validate(entry)
	require.Len(t, violations, 1)
	assert.Equal(t, MissingCanonicalID, violations[0].Kind)
	assert.Equal(t, 0, violations[0].Index)
	assert.Equal(t, "8 U.S.C. § 1184(b)", violations[0].Citation)
	assert.Equal(t, ValidatedEntry{}, validated)
}

func TestValidateDuplicateCanonicalID(t *testing.T) {
	entry := ContentEntry{
		Slug: "form-5472",
		Sources: []source.Source{
			newSource(t, source.ConstitutionalOrStatutory, "US", "26 U.S.C. § 6038A"),
			newSource(t, source.ConstitutionalOrStatutory, "US", "26 USC 6038A"),
		},
	}

	_, violations := Validate(entry)
	require.Len(t, violations, 1)
	assert.Equal(t, DuplicateCanonicalID, violations[0].Kind)
	assert.Equal(t, 1, violations[0].Index)
	assert.Equal(t, "26 USC 6038A", violations[0].Citation)
	assert.Contains(t, violations[0].Message, "source 0")
}

func TestValidateDuplicateReportedPerRepeat(t *testing.T) {
	entry := ContentEntry{
		Slug: "triplicate",
		Sources: []source.Source{
			newSource(t, source.AgencyGuidance, "US", "9 FAM 402.2"),
			newSource(t, source.AgencyGuidance, "US", "9 fam 402-2"),
			newSource(t, source.AgencyGuidance, "US", "9  FAM  402.2"),
		},
	}

	_, violations := Validate(entry)
	assert.Equal(t, []ViolationKind{DuplicateCanonicalID, DuplicateCanonicalID}, kinds(violations))
}

func TestValidateSameCitationDifferentTypeIsNotDuplicate(t *testing.T) {
	entry := ContentEntry{
		Slug: "section-101",
		Sources: []source.Source{
			newSource(t, source.ConstitutionalOrStatutory, "US", "Section 101"),
			newSource(t, source.AgencyGuidance, "US", "Section 101"),
		},
	}

	_, violations := Validate(entry)
	assert.Empty(t, violations)
}

func TestValidateEntryLevel(t *testing.T) {
	tests := []struct {
		name     string
		entry    ContentEntry
		expected []ViolationKind
	}{
		{
			name:     "disclosure with no sources",
			entry:    ContentEntry{Slug: "empty", ClaimsDisclosure: true},
			expected: []ViolationKind{EmptyDisclosure},
		},
		{
			name:     "no disclosure claim and no sources",
			entry:    ContentEntry{Slug: "glossary"},
			expected: []ViolationKind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, violations := Validate(tt.entry)
			assert.Equal(t, tt.expected, kinds(violations))
			for _, v := range violations {
				assert.Equal(t, NoSource, v.Index)
			}
		})
	}
}

func TestValidateBypassedClassification(t *testing.T) {
	d := descriptor(t, source.AgencyGuidance, "US", "IRS Pub. 15")
	id := source.GenerateID(d)
	other := descriptor(t, source.AgencyGuidance, "US", "IRS Pub. 334")

	tests := []struct {
		name     string
		src      source.Source
		expected []ViolationKind
	}{
		{"unset level", source.Restore(d, source.LevelUnset, id), []ViolationKind{MissingAuthorityLevel}},
		{"wrong level", source.Restore(d, source.Tier1, id), []ViolationKind{AuthorityLevelMismatch}},
		{"stale id", source.Restore(d, source.Tier4, source.GenerateID(other)), []ViolationKind{CanonicalIDMismatch}},
		{"nothing recorded", source.Restore(d, source.LevelUnset, ""), []ViolationKind{MissingAuthorityLevel, MissingCanonicalID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, violations := Validate(ContentEntry{Slug: "payroll", Sources: []source.Source{tt.src}})
			assert.Equal(t, tt.expected, kinds(violations))
		})
	}
}

func TestValidateDoesNotAliasInput(t *testing.T) {
	sources := []source.Source{newSource(t, source.ConstitutionalOrStatutory, "US", "8 U.S.C. § 1101")}
	validated, violations := Validate(ContentEntry{Slug: "visa", Sources: sources})
	require.Empty(t, violations)

	sources[0] = newSource(t, source.AgencyGuidance, "US", "9 FAM 402.2")
	assert.Equal(t, source.Tier1, validated.Sources()[0].AuthorityLevel())
}

func TestViolationString(t *testing.T) {
	v := Violation{Kind: MissingCanonicalID, Slug: "b1-b2", Index: 0, Citation: "8 U.S.C. § 1184(b)", Message: "source has no canonical id"}
	assert.Equal(t, `b1-b2[0]: MissingCanonicalId ("8 U.S.C. § 1184(b)"): source has no canonical id`, v.String())

	entryLevel := Violation{Kind: EmptyDisclosure, Slug: "empty", Index: NoSource, Message: "no sources"}
	assert.Equal(t, "empty: EmptyDisclosure: no sources", entryLevel.String())
}
