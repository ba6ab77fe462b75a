package citation

import (
	"fmt"
	"regexp"
	"strings"
)

// Form classifies the Bluebook shape of a citation string.
type Form string

const (
	FormUSCode    Form = "us_code"
	FormCFR       Form = "cfr"
	FormPublicLaw Form = "public_law"
	FormFAM       Form = "foreign_affairs_manual"
	FormUnknown   Form = "unknown"
)

// Detection is the result of recognizing a citation's Bluebook form.
type Detection struct {
	Form    Form   `json:"form"`
	Title   string `json:"title,omitempty"`
	Section string `json:"section,omitempty"`
	// URN is a stable locator for recognized forms, e.g. "urn:us:usc:26/6038A".
	URN string `json:"urn,omitempty"`
}

// BluebookParser recognizes US-style citation forms following Bluebook conventions:
//   - U.S. Code: "42 U.S.C. § 1983", "15 U.S.C. Section 1681"
//   - C.F.R.: "45 C.F.R. Part 164", "26 C.F.R. § 1.6038A-1"
//   - Public Laws: "Pub. L. 104-191", "Public Law 106-102"
//   - Foreign Affairs Manual: "9 FAM 402.2"
//
// Detection is advisory: the source type of a citation is asserted by its
// author and is never inferred from the citation text.
type BluebookParser struct {
	uscPattern       *regexp.Regexp // 42 U.S.C. § 1983, 42 USC 1983
	uscSecPattern    *regexp.Regexp // 42 U.S.C. Section 1681
	cfrPattern       *regexp.Regexp // 45 C.F.R. Part 164, 26 C.F.R. § 1.6038A-1
	publicLawPattern *regexp.Regexp // Public Law 104-191, Pub. L. 111-5
	famPattern       *regexp.Regexp // 9 FAM 402.2
}

// NewBluebookParser creates a Bluebook form parser with compiled patterns.
func NewBluebookParser() *BluebookParser {
	return &BluebookParser{
		uscPattern:       regexp.MustCompile(`(\d+)\s+U\.?S\.?C\.?\s*(?:§§?\s*)?(\d+[A-Za-z]*(?:-\d+)?)`),
		uscSecPattern:    regexp.MustCompile(`(\d+)\s+U\.?S\.?C\.?\s+(?:Section|Sec\.?)\s+(\d+[A-Za-z]*)`),
		cfrPattern:       regexp.MustCompile(`(\d+)\s+C\.?F\.?R\.?\s+(?:Parts?\s+|§\s*)?(\d+(?:\.[\dA-Za-z-]+)?)`),
		publicLawPattern: regexp.MustCompile(`(?:Public\s+Law|Pub\.?\s*L\.?|P\.?L\.?)\s+(\d+)[-–](\d+)`),
		famPattern:       regexp.MustCompile(`(\d+)\s+FAM\s+(\d+(?:\.\d+)*)`),
	}
}

var defaultBluebookParser = NewBluebookParser()

// Detect recognizes the citation form using a shared parser.
func Detect(text string) Detection {
	return defaultBluebookParser.Detect(text)
}

// Name returns the parser name.
func (parser *BluebookParser) Name() string {
	return "Bluebook Citation Parser"
}

// Detect returns the first recognized form in text, trying more specific
// patterns first. Unrecognized text yields FormUnknown.
func (parser *BluebookParser) Detect(text string) Detection {
	if match := parser.uscSecPattern.FindStringSubmatch(text); match != nil {
		return usCodeDetection(match[1], match[2])
	}
	if match := parser.uscPattern.FindStringSubmatch(text); match != nil {
		return usCodeDetection(match[1], match[2])
	}
	if match := parser.cfrPattern.FindStringSubmatch(text); match != nil {
		return Detection{
			Form:    FormCFR,
			Title:   match[1],
			Section: match[2],
			URN:     fmt.Sprintf("urn:us:cfr:%s/%s", match[1], match[2]),
		}
	}
	if match := parser.publicLawPattern.FindStringSubmatch(text); match != nil {
		publicLaw := fmt.Sprintf("%s-%s", match[1], match[2])
		return Detection{
			Form:    FormPublicLaw,
			Section: publicLaw,
			URN:     fmt.Sprintf("urn:us:pl:%s", publicLaw),
		}
	}
	if match := parser.famPattern.FindStringSubmatch(text); match != nil {
		return Detection{
			Form:    FormFAM,
			Title:   match[1],
			Section: match[2],
			URN:     fmt.Sprintf("urn:us:fam:%s/%s", match[1], match[2]),
		}
	}
	return Detection{Form: FormUnknown}
}

func usCodeDetection(title, section string) Detection {
	section = strings.ToUpper(section)
	return Detection{
		Form:    FormUSCode,
		Title:   title,
		Section: section,
		URN:     fmt.Sprintf("urn:us:usc:%s/%s", title, section),
	}
}
