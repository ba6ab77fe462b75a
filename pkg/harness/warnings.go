package harness

import (
	"fmt"
	"strings"

	"github.com/coolbeans/lexcanon/pkg/citation"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/entry"
	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// WarningKind classifies advisory findings. Warnings never block
// publication unless the harness runs with FailOnWarn.
type WarningKind string

const (
	WarningCanon        WarningKind = "CitationCanon"
	WarningFormMismatch WarningKind = "CitationFormMismatch"
	WarningStale        WarningKind = "StaleVerification"
	WarningUnverified   WarningKind = "MissingVerificationDate"
)

// Warning is one advisory finding.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Slug     string      `json:"slug"`
	Index    int         `json:"index"`
	Citation string      `json:"citation,omitempty"`
	Rule     string      `json:"rule,omitempty"`
	Message  string      `json:"message"`
}

func (w Warning) String() string {
	location := w.Slug
	if w.Index != entry.NoSource {
		location = fmt.Sprintf("%s[%d]", w.Slug, w.Index)
	}
	if w.Citation != "" {
		return fmt.Sprintf("%s: %s (%q): %s", location, w.Kind, w.Citation, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s", location, w.Kind, w.Message)
}

// expectedTypes maps recognized Bluebook forms to the source type they
// usually carry.
var expectedTypes = map[citation.Form]source.SourceType{
	citation.FormUSCode:    source.ConstitutionalOrStatutory,
	citation.FormPublicLaw: source.ConstitutionalOrStatutory,
	citation.FormCFR:       source.ImplementingRegulation,
	citation.FormFAM:       source.AgencyGuidance,
}

// citationWarnings lints each source citation against the display canon and
// compares its recognized form with the declared source type.
func citationWarnings(record corpus.EntryRecord) []Warning {
	var warnings []Warning
	for index, sourceRecord := range record.Sources {
		if sourceRecord.Citation == "" {
			continue
		}

		for _, finding := range citation.Lint(sourceRecord.Citation) {
			warnings = append(warnings, Warning{
				Kind:     WarningCanon,
				Slug:     record.Slug,
				Index:    index,
				Citation: sourceRecord.Citation,
				Rule:     string(finding.Rule),
				Message:  fmt.Sprintf("%s (canon form: %q)", finding.Message, citation.Canon(sourceRecord.Citation)),
			})
		}

		declared, err := source.ParseSourceType(strings.TrimSpace(sourceRecord.Type))
		if err != nil {
			continue
		}
		detection := citation.Detect(sourceRecord.Citation)
		if expected, ok := expectedTypes[detection.Form]; ok && expected != declared {
			warnings = append(warnings, Warning{
				Kind:     WarningFormMismatch,
				Slug:     record.Slug,
				Index:    index,
				Citation: sourceRecord.Citation,
				Rule:     string(detection.Form),
				Message:  fmt.Sprintf("citation reads as %s but is declared %s", detection.Form, declared),
			})
		}
	}
	return warnings
}

// stalenessWarnings flags entries whose last verification is older than
// staleAfterDays. A zero staleAfterDays disables the check.
func stalenessWarnings(record corpus.EntryRecord, today types.Date, staleAfterDays int) []Warning {
	if staleAfterDays <= 0 {
		return nil
	}
	if record.LastVerified == "" {
		return []Warning{{
			Kind:    WarningUnverified,
			Slug:    record.Slug,
			Index:   entry.NoSource,
			Message: "entry has no last_verified date",
		}}
	}

	verified, err := types.ParseDate(record.LastVerified)
	if err != nil {
		// Reported as a violation by the entry build.
		return nil
	}
	if age := verified.DaysUntil(today); age > staleAfterDays {
		return []Warning{{
			Kind:    WarningStale,
			Slug:    record.Slug,
			Index:   entry.NoSource,
			Message: fmt.Sprintf("last verified %s, %d days ago (limit %d)", verified, age, staleAfterDays),
		}}
	}
	return nil
}
