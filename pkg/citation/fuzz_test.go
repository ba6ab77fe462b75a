package citation

import (
	"strings"
	"testing"
)

// FuzzNormalize checks that Normalize is idempotent and stays inside its
// output alphabet for arbitrary input.
// Run with: go test -fuzz=FuzzNormalize -fuzztime=30s ./pkg/citation/...
func FuzzNormalize(f *testing.F) {
	seeds := []string{
		"26 U.S.C. § 6038A",
		"26 USC 6038A",
		"42 U.S.C. §§ 1983-1988",
		"8 U.S.C. § 1184(b)",
		"26 C.F.R. § 301.6109-1",
		"9 FAM 402.2",
		"IRS, Instructions for Form W-7",
		"Pub. L. 104-191",
		"Regulation (EU) 2016/679",
		"(a)-(b)",
		"42 U.S.C. Section 1681",
		"Sec. 101",
		"sections sec 5",
		"§",
		"",
		"...",
		"--",
		"()",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		normalized := Normalize(input)

		if strings.HasPrefix(normalized, " ") || strings.HasSuffix(normalized, " ") {
			t.Errorf("Normalize(%q) = %q has surrounding space", input, normalized)
		}
		if strings.Contains(normalized, "  ") {
			t.Errorf("Normalize(%q) = %q has a double space", input, normalized)
		}
		if strings.ContainsAny(normalized, ".§,\t\n") {
			t.Errorf("Normalize(%q) = %q contains noise characters", input, normalized)
		}
		if again := Normalize(normalized); again != normalized {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", input, normalized, again)
		}
	})
}
