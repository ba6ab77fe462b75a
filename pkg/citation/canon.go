package citation

import (
	"regexp"
	"strings"
)

// CanonVersion is the version of the citation display canon implemented by Canon.
const CanonVersion = "1.0"

var (
	multiSpacePattern      = regexp.MustCompile(` {2,}`)
	bareUSCPattern         = regexp.MustCompile(`(\d)\s+USC(\s)`)
	bareUSCSectionPattern  = regexp.MustCompile(`(\d)\s+USC(§)`)
	bareCFRPattern         = regexp.MustCompile(`(\d)\s+CFR(\s)`)
	bareCFRSectionPattern  = regexp.MustCompile(`(\d)\s+CFR(§)`)
	doubleSectionPattern   = regexp.MustCompile(`§§([^\s])`)
	singleSectionPattern   = regexp.MustCompile(`§([^§\s])`)
	subsectionRangePattern = regexp.MustCompile(`\((\w+)\)-\((\w+)\)`)
)

// Canon rewrites a citation into its Bluebook-adjacent display form:
//   - double spaces collapse to one
//   - bare "USC" / "CFR" after a title number become "U.S.C." / "C.F.R."
//   - "§" and "§§" are followed by a space
//   - parenthetical subsection ranges use an en dash: (a)–(c)
//
// Canon applies to citation fields only, never to narrative text. Unlike
// Normalize it keeps the citation human-readable; it does not take part in
// identifier generation.
func Canon(raw string) string {
	canonical := multiSpacePattern.ReplaceAllString(raw, " ")

	canonical = bareUSCPattern.ReplaceAllString(canonical, "${1} U.S.C.${2}")
	canonical = bareUSCSectionPattern.ReplaceAllString(canonical, "${1} U.S.C. ${2}")
	canonical = bareCFRPattern.ReplaceAllString(canonical, "${1} C.F.R.${2}")
	canonical = bareCFRSectionPattern.ReplaceAllString(canonical, "${1} C.F.R. ${2}")

	canonical = doubleSectionPattern.ReplaceAllString(canonical, "§§ ${1}")
	canonical = singleSectionPattern.ReplaceAllString(canonical, "§ ${1}")

	canonical = subsectionRangePattern.ReplaceAllString(canonical, "(${1})–(${2})")

	return strings.TrimSpace(canonical)
}

// CanonLabel normalizes a human-written label: whitespace collapse and trim only.
func CanonLabel(raw string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(raw, " "))
}
