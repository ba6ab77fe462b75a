package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rulesOf(findings []Finding) []LintRule {
	rules := make([]LintRule, len(findings))
	for i, finding := range findings {
		rules[i] = finding.Rule
	}
	return rules
}

func TestLint(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		expected []LintRule
	}{
		{"clean_usc", "26 U.S.C. § 6038A", []LintRule{}},
		{"clean_guidance", "IRS, Instructions for Form 5472", []LintRule{}},
		{"bare_usc", "26 USC 6038A", []LintRule{RuleUSCPeriods}},
		{"bare_cfr_glued", "26 CFR§1.6038A-1", []LintRule{RuleCFRPeriods, RuleSectionSpacing}},
		{"double_space", "9 FAM  402.2", []LintRule{RuleDoubleSpace}},
		{"hyphen_range", "26 U.S.C. § 6038A(a)-(c)", []LintRule{RuleSubsectionRange}},
		{"surrounding_space", " 9 FAM 402.2", []LintRule{RuleSurroundingSpace}},
		{"uscis_is_not_usc", "8 USCIS Policy Manual", []LintRule{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, rulesOf(Lint(tc.raw)))
		})
	}
}

func TestLintCanonIsClean(t *testing.T) {
	for _, raw := range []string{"26 USC 6038A", "42 U.S.C. §1983", "26 U.S.C. § 6038A(a)-(c)", "9  FAM 402.2 "} {
		assert.Empty(t, Lint(Canon(raw)), "canon of %q should lint clean", raw)
	}
}
