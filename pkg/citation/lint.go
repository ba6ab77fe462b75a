package citation

import (
	"regexp"
	"strings"
)

// LintRule identifies one citation canon rule.
type LintRule string

const (
	RuleUSCPeriods       LintRule = "usc-periods"
	RuleCFRPeriods       LintRule = "cfr-periods"
	RuleSectionSpacing   LintRule = "section-spacing"
	RuleDoubleSpace      LintRule = "double-space"
	RuleSubsectionRange  LintRule = "subsection-range"
	RuleSurroundingSpace LintRule = "surrounding-space"
)

// Finding is a single canon violation in a citation string.
type Finding struct {
	Rule    LintRule `json:"rule"`
	Message string   `json:"message"`
}

type lintCheck struct {
	rule    LintRule
	pattern *regexp.Regexp
	message string
}

var lintChecks = []lintCheck{
	{RuleUSCPeriods, regexp.MustCompile(`\d\s+USC[\s§]`), `Use "U.S.C." with periods`},
	{RuleCFRPeriods, regexp.MustCompile(`\d\s+CFR[\s§]`), `Use "C.F.R." with periods`},
	{RuleSectionSpacing, regexp.MustCompile(`§[^\s§]`), "Add space after §"},
	{RuleDoubleSpace, regexp.MustCompile(` {2,}`), "Remove double spaces"},
	{RuleSubsectionRange, regexp.MustCompile(`\(\w+\)-\(\w+\)`), "Use en dash for subsection ranges: (x)–(y)"},
}

// Lint checks a citation against the display canon and returns one finding
// per violated rule, in rule order. A citation that equals its Canon form
// and has no surrounding whitespace yields no findings.
func Lint(raw string) []Finding {
	findings := make([]Finding, 0)

	for _, check := range lintChecks {
		if check.pattern.MatchString(raw) {
			findings = append(findings, Finding{Rule: check.rule, Message: check.message})
		}
	}

	if raw != strings.TrimSpace(raw) {
		findings = append(findings, Finding{Rule: RuleSurroundingSpace, Message: "Trim surrounding whitespace"})
	}

	return findings
}
