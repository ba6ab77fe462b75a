// Package entry validates the sources of a content entry and orders them by
// precedence. Validate is the only way to obtain a ValidatedEntry, and Order
// only accepts a ValidatedEntry, so an unvalidated entry cannot be published.
package entry

import (
	"fmt"

	"github.com/coolbeans/lexcanon/pkg/source"
)

// ViolationKind names one rule of the source contract.
type ViolationKind string

const (
	MissingAuthorityLevel     ViolationKind = "MissingAuthorityLevel"
	MissingCanonicalID        ViolationKind = "MissingCanonicalId"
	DuplicateCanonicalID      ViolationKind = "DuplicateCanonicalId"
	EmptyDisclosure           ViolationKind = "EmptyDisclosure"
	AuthorityLevelMismatch    ViolationKind = "AuthorityLevelMismatch"
	CanonicalIDMismatch       ViolationKind = "CanonicalIdMismatch"
	MalformedSource           ViolationKind = "MalformedSource"
	DanglingConflictAssertion ViolationKind = "DanglingConflictAssertion"
)

// NoSource is the Index of violations that concern the entry as a whole.
const NoSource = -1

// Violation is a single, reportable breach of the source contract. Violations
// are data, never errors: validation always runs to completion.
type Violation struct {
	Kind        ViolationKind      `json:"kind"`
	Slug        string             `json:"slug"`
	Index       int                `json:"index"`
	CanonicalID source.CanonicalID `json:"canonical_id,omitempty"`
	Citation    string             `json:"citation,omitempty"`
	Message     string             `json:"message"`
}

func (v Violation) String() string {
	location := v.Slug
	if v.Index != NoSource {
		location = fmt.Sprintf("%s[%d]", v.Slug, v.Index)
	}
	if v.Citation != "" {
		return fmt.Sprintf("%s: %s (%q): %s", location, v.Kind, v.Citation, v.Message)
	}
	return fmt.Sprintf("%s: %s: %s", location, v.Kind, v.Message)
}

func sourceViolation(kind ViolationKind, slug string, index int, src source.Source, message string) Violation {
	return Violation{
		Kind:        kind,
		Slug:        slug,
		Index:       index,
		CanonicalID: src.CanonicalID(),
		Citation:    src.Descriptor().Label(),
		Message:     message,
	}
}
