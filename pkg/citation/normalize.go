// Package citation provides the string-level handling of legal citations:
// identity normalization used for canonical identifiers, Citation Canon
// display formatting, canon lint rules, and Bluebook form detection.
package citation

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Separator is the single token that internal numeric separators
// ("." and dash variants between digits) are canonicalized to.
const Separator = '-'

// Normalize reduces a free-form citation to its identity form. Two citations
// that differ only in whitespace, case, section symbols or words or
// abbreviation periods normalize identically, so "26 U.S.C. § 6038A",
// "26 USC Section 6038A" and "26 USC 6038A" all become "26 usc 6038a".
//
// The output alphabet is letters, digits, space, '-', '(' and ')'.
// Normalize is idempotent.
func Normalize(raw string) string {
	// cases.Caser is stateful; a fresh one per call keeps Normalize safe for
	// concurrent use.
	folded := norm.NFKC.String(cases.Fold().String(norm.NFKC.String(raw)))
	runes := []rune(folded)

	var normalizedBuilder strings.Builder
	normalizedBuilder.Grow(len(folded))

	var lastWritten rune
	pendingBreak := false

	write := func(r rune) {
		normalizedBuilder.WriteRune(r)
		lastWritten = r
	}

	for i, r := range runes {
		var prev, next rune
		if i > 0 {
			prev = runes[i-1]
		}
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case isWordRune(r):
			if pendingBreak && (isWordRune(lastWritten) || lastWritten == ')') {
				write(' ')
			}
			write(r)
			pendingBreak = false

		case r == '.':
			switch {
			case unicode.IsDigit(prev) && unicode.IsDigit(next):
				write(Separator)
				pendingBreak = false
			case unicode.IsLetter(prev) && unicode.IsLetter(next):
				// Abbreviation period inside a word: "u.s.c" joins to "usc".
			default:
				pendingBreak = true
			}

		case isDash(r):
			if (isWordRune(prev) || prev == ')') && (isWordRune(next) || next == '(') && lastWritten != 0 {
				write(Separator)
				pendingBreak = false
			} else {
				pendingBreak = true
			}

		case r == '(':
			write('(')
			pendingBreak = false

		case r == ')':
			if lastWritten != 0 {
				write(')')
			}
			pendingBreak = false

		default:
			// Whitespace, section symbols and every other punctuation mark are
			// word breaks.
			pendingBreak = true
		}
	}

	return dropSectionWords(normalizedBuilder.String())
}

// sectionWords are the spelled-out forms of the section symbol. They carry
// no identity when a section number follows them.
var sectionWords = map[string]bool{
	"section":  true,
	"sections": true,
	"sec":      true,
	"secs":     true,
}

// dropSectionWords removes section words that precede a token starting with
// a digit. Tokens are scanned right to left against the next kept token, so
// runs such as "section section 5" fold completely and the result is stable.
func dropSectionWords(normalized string) string {
	tokens := strings.Split(normalized, " ")
	kept := make([]string, 0, len(tokens))
	nextKept := ""
	for i := len(tokens) - 1; i >= 0; i-- {
		token := tokens[i]
		if sectionWords[token] && startsWithDigit(nextKept) {
			continue
		}
		kept = append(kept, token)
		nextKept = token
	}
	slices.Reverse(kept)
	return strings.Join(kept, " ")
}

func startsWithDigit(token string) bool {
	for _, r := range token {
		return unicode.IsDigit(r)
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isDash(r rune) bool {
	switch r {
	case '-', '‐', '‑', '‒', '–', '—', '―', '−':
		return true
	}
	return false
}
