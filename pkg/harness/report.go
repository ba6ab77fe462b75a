package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/lexcanon/pkg/conflict"
	"github.com/coolbeans/lexcanon/pkg/entry"
)

// OrderedSource is one line of a published source list.
type OrderedSource struct {
	CanonicalID    string `json:"canonical_id"`
	AuthorityLevel string `json:"authority_level"`
	Jurisdiction   string `json:"jurisdiction"`
	Citation       string `json:"citation"`
}

// EntryResult is the outcome of checking one entry.
type EntryResult struct {
	Slug       string            `json:"slug"`
	Document   string            `json:"document,omitempty"`
	Passed     bool              `json:"passed"`
	Sources    int               `json:"sources"`
	Violations []entry.Violation `json:"violations,omitempty"`
	Warnings   []Warning         `json:"warnings,omitempty"`
	Ordered    []OrderedSource   `json:"ordered,omitempty"`
}

// ResolutionResult is a conflict assertion resolved by tier.
type ResolutionResult struct {
	Point       string `json:"point"`
	Controlling string `json:"controlling"`
	Subordinate string `json:"subordinate"`
	Level       string `json:"level"`
	Note        string `json:"note,omitempty"`
}

// Escalation is a conflict between sources of equal tier. The engine does
// not choose between them; an editor must.
type Escalation struct {
	Point   string   `json:"point"`
	Sources []string `json:"sources"`
	Level   string   `json:"level"`
	Note    string   `json:"note,omitempty"`
}

// Report aggregates the results of one verification run.
type Report struct {
	RunID     string        `json:"run_id"`
	Origin    string        `json:"origin"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	EntriesChecked int `json:"entries_checked"`
	EntriesPassed  int `json:"entries_passed"`
	EntriesFailed  int `json:"entries_failed"`
	SourcesChecked int `json:"sources_checked"`

	Entries          []EntryResult      `json:"entries"`
	CorpusViolations []entry.Violation  `json:"corpus_violations,omitempty"`
	Resolutions      []ResolutionResult `json:"resolutions,omitempty"`
	Escalations      []Escalation       `json:"escalations,omitempty"`

	FailOnWarn bool `json:"fail_on_warn"`
}

// Violations returns every violation of the run, entries first.
func (r *Report) Violations() []entry.Violation {
	var violations []entry.Violation
	for _, result := range r.Entries {
		violations = append(violations, result.Violations...)
	}
	return append(violations, r.CorpusViolations...)
}

// Warnings returns every warning of the run.
func (r *Report) Warnings() []Warning {
	var warnings []Warning
	for _, result := range r.Entries {
		warnings = append(warnings, result.Warnings...)
	}
	return warnings
}

// Passed reports whether the run found no violations. Escalations and
// warnings do not fail a run.
func (r *Report) Passed() bool {
	return r.EntriesFailed == 0 && len(r.CorpusViolations) == 0
}

// ExitCode is 1 on any violation, or on any warning with FailOnWarn; else 0.
func (r *Report) ExitCode() int {
	if !r.Passed() {
		return 1
	}
	if r.FailOnWarn && len(r.Warnings()) > 0 {
		return 1
	}
	return 0
}

// ToJSON serializes the report as indented JSON.
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// String returns a human-readable report listing, per failing entry, each
// violation kind and the offending citation.
func (r *Report) String() string {
	var reportBuilder strings.Builder

	reportBuilder.WriteString("Citation Verification Report\n")
	reportBuilder.WriteString("============================\n\n")
	reportBuilder.WriteString(fmt.Sprintf("Run: %s\nCorpus: %s\n\n", r.RunID, r.Origin))

	for _, result := range r.Entries {
		if result.Passed && len(result.Warnings) == 0 {
			continue
		}
		statusLabel := "PASS"
		if !result.Passed {
			statusLabel = "FAIL"
		}
		reportBuilder.WriteString(fmt.Sprintf("[%s] %s (%d sources)\n", statusLabel, result.Slug, result.Sources))
		for _, violation := range result.Violations {
			reportBuilder.WriteString(fmt.Sprintf("  ERROR %s\n", describeViolation(violation)))
		}
		for _, warning := range result.Warnings {
			reportBuilder.WriteString(fmt.Sprintf("  WARNING [%s] %s\n", warning.Kind, describeWarning(warning)))
		}
		reportBuilder.WriteString("\n")
	}

	if len(r.CorpusViolations) > 0 {
		reportBuilder.WriteString("Corpus violations:\n")
		for _, violation := range r.CorpusViolations {
			reportBuilder.WriteString(fmt.Sprintf("  ERROR %s\n", describeViolation(violation)))
		}
		reportBuilder.WriteString("\n")
	}

	if len(r.Escalations) > 0 {
		reportBuilder.WriteString("Escalations (equal tier, editorial review required):\n")
		for _, escalation := range r.Escalations {
			reportBuilder.WriteString(fmt.Sprintf("  %s: %s [%s]\n",
				escalation.Point, strings.Join(escalation.Sources, " vs "), escalation.Level))
		}
		reportBuilder.WriteString("\n")
	}

	reportBuilder.WriteString(fmt.Sprintf("Summary: %d checked, %d passed, %d failed, %d sources\n",
		r.EntriesChecked, r.EntriesPassed, r.EntriesFailed, r.SourcesChecked))
	reportBuilder.WriteString(fmt.Sprintf("Conflicts: %d resolved, %d escalated\n", len(r.Resolutions), len(r.Escalations)))
	reportBuilder.WriteString(fmt.Sprintf("Warnings: %d\n", len(r.Warnings())))

	overallStatus := "PASS"
	if !r.Passed() {
		overallStatus = "FAIL"
	}
	reportBuilder.WriteString(fmt.Sprintf("Status: %s\n", overallStatus))
	reportBuilder.WriteString(fmt.Sprintf("Total Duration: %v\n", r.Duration))

	return reportBuilder.String()
}

// ToMarkdown generates a Markdown report, e.g. for a CI job summary.
func (r *Report) ToMarkdown() string {
	var markdownBuilder strings.Builder

	overallBadge := "`PASS`"
	if !r.Passed() {
		overallBadge = "`FAIL`"
	}
	markdownBuilder.WriteString(fmt.Sprintf("# Citation Verification Report %s\n\n", overallBadge))

	markdownBuilder.WriteString("## Summary\n\n")
	markdownBuilder.WriteString("| Metric | Value |\n")
	markdownBuilder.WriteString("|--------|-------|\n")
	markdownBuilder.WriteString(fmt.Sprintf("| **Run** | %s |\n", r.RunID))
	markdownBuilder.WriteString(fmt.Sprintf("| **Entries Checked** | %d |\n", r.EntriesChecked))
	markdownBuilder.WriteString(fmt.Sprintf("| **Entries Passed** | %d |\n", r.EntriesPassed))
	markdownBuilder.WriteString(fmt.Sprintf("| **Entries Failed** | %d |\n", r.EntriesFailed))
	markdownBuilder.WriteString(fmt.Sprintf("| **Sources Checked** | %d |\n", r.SourcesChecked))
	markdownBuilder.WriteString(fmt.Sprintf("| **Escalations** | %d |\n", len(r.Escalations)))
	markdownBuilder.WriteString(fmt.Sprintf("| **Warnings** | %d |\n", len(r.Warnings())))
	markdownBuilder.WriteString(fmt.Sprintf("| **Duration** | %v |\n", r.Duration))
	markdownBuilder.WriteString("\n")

	violations := r.Violations()
	if len(violations) > 0 {
		markdownBuilder.WriteString("## Violations\n\n")
		markdownBuilder.WriteString("| Entry | Source | Kind | Citation | Message |\n")
		markdownBuilder.WriteString("|-------|--------|------|----------|---------|\n")
		for _, violation := range violations {
			position := "-"
			if violation.Index != entry.NoSource {
				position = fmt.Sprintf("%d", violation.Index)
			}
			markdownBuilder.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				escapeMarkdownTableCell(violation.Slug),
				position,
				violation.Kind,
				escapeMarkdownTableCell(violation.Citation),
				escapeMarkdownTableCell(violation.Message)))
		}
		markdownBuilder.WriteString("\n")
	}

	if len(r.Escalations) > 0 {
		markdownBuilder.WriteString("## Escalations\n\n")
		for _, escalation := range r.Escalations {
			markdownBuilder.WriteString(fmt.Sprintf("- **%s** (%s): %s\n",
				escalation.Point, escalation.Level, strings.Join(escalation.Sources, " vs ")))
		}
		markdownBuilder.WriteString("\n")
	}

	if warnings := r.Warnings(); len(warnings) > 0 {
		markdownBuilder.WriteString("## Warnings\n\n")
		for _, warning := range warnings {
			markdownBuilder.WriteString(fmt.Sprintf("- [%s] %s\n", warning.Kind, warning.String()))
		}
		markdownBuilder.WriteString("\n")
	}

	return markdownBuilder.String()
}

func describeViolation(violation entry.Violation) string {
	position := ""
	if violation.Index != entry.NoSource {
		position = fmt.Sprintf("source %d ", violation.Index)
	}
	if violation.Citation != "" {
		return fmt.Sprintf("%s: %s%q: %s", violation.Kind, position, violation.Citation, violation.Message)
	}
	return fmt.Sprintf("%s: %s%s", violation.Kind, position, violation.Message)
}

func describeWarning(warning Warning) string {
	if warning.Citation != "" {
		return fmt.Sprintf("%q: %s", warning.Citation, warning.Message)
	}
	return warning.Message
}

func escapeMarkdownTableCell(content string) string {
	return strings.ReplaceAll(content, "|", "\\|")
}

func resolutionResult(resolution conflict.Resolution) ResolutionResult {
	return ResolutionResult{
		Point:       resolution.Assertion.Point,
		Controlling: resolution.Controlling.CanonicalID().String(),
		Subordinate: resolution.Subordinate.CanonicalID().String(),
		Level:       resolution.Controlling.AuthorityLevel().String(),
		Note:        resolution.Assertion.Note,
	}
}

func escalation(resolution conflict.Resolution) Escalation {
	return Escalation{
		Point: resolution.Assertion.Point,
		Sources: []string{
			resolution.Tied[0].CanonicalID().String(),
			resolution.Tied[1].CanonicalID().String(),
		},
		Level: resolution.Tied[0].AuthorityLevel().String(),
		Note:  resolution.Assertion.Note,
	}
}
