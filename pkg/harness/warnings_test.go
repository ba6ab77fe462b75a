package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/entry"
	"github.com/coolbeans/lexcanon/pkg/types"
)

func TestCitationWarnings(t *testing.T) {
	record := corpus.EntryRecord{
		Slug: "form-5472",
		Sources: []corpus.SourceRecord{
			statute("US", "26 U.S.C. § 6038A"),
			statute("US", "26 USC 6038A"),
			{Type: "implementing_regulation", Jurisdiction: "US", Citation: "26 U.S.C. § 6038A"},
			{Type: "not_a_type", Jurisdiction: "US", Citation: "26 U.S.C. § 6038A"},
			{Type: "agency_guidance", Jurisdiction: "US", URL: "https://www.irs.gov/forms-pubs/about-form-5472"},
		},
	}

	warnings := citationWarnings(record)
	require.Len(t, warnings, 2)

	assert.Equal(t, WarningCanon, warnings[0].Kind)
	assert.Equal(t, 1, warnings[0].Index)
	assert.Equal(t, "usc-periods", warnings[0].Rule)
	assert.Contains(t, warnings[0].Message, `"26 U.S.C. 6038A"`)

	assert.Equal(t, WarningFormMismatch, warnings[1].Kind)
	assert.Equal(t, 2, warnings[1].Index)
	assert.Equal(t, "us_code", warnings[1].Rule)
}

func TestStalenessWarnings(t *testing.T) {
	today, err := types.ParseDate("2026-03-01")
	require.NoError(t, err)

	tests := []struct {
		name         string
		lastVerified string
		limit        int
		want         []WarningKind
	}{
		{"fresh", "2026-02-01", 365, nil},
		{"exactly at limit", "2025-03-01", 365, nil},
		{"stale", "2025-02-28", 365, []WarningKind{WarningStale}},
		{"missing", "", 365, []WarningKind{WarningUnverified}},
		{"unparseable", "last spring", 365, nil},
		{"disabled", "", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := corpus.EntryRecord{Slug: "b1-b2-visa", LastVerified: tt.lastVerified}
			var kinds []WarningKind
			for _, warning := range stalenessWarnings(record, today, tt.limit) {
				assert.Equal(t, entry.NoSource, warning.Index)
				kinds = append(kinds, warning.Kind)
			}
			assert.Equal(t, tt.want, kinds)
		})
	}
}

func TestWarningString(t *testing.T) {
	warning := Warning{Kind: WarningStale, Slug: "b1-b2-visa", Index: entry.NoSource, Message: "old"}
	assert.Equal(t, "b1-b2-visa: StaleVerification: old", warning.String())

	warning = Warning{Kind: WarningCanon, Slug: "form-5472", Index: 1, Citation: "26 USC 6038A", Message: "periods"}
	assert.Equal(t, `form-5472[1]: CitationCanon ("26 USC 6038A"): periods`, warning.String())
}
