package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// IDFormatVersion is the version of the canonical identifier format. A change
// of the major version means previously persisted ids must be migrated.
const IDFormatVersion = "1.0.0"

// ErrMalformedID is returned when a string does not match the id grammar.
var ErrMalformedID = errors.New("malformed canonical id")

const fieldSeparator = "\x1f"

var canonicalIDPattern = regexp.MustCompile(`^[a-z]{2,8}-[a-z]{2}-[0-9a-f]{16}$`)

// CanonicalID is a stable, content-derived source identifier of the form
// <typeTag>-<jurisdictionTag>-<16 hex digits>, e.g. "stat-us-4b1f0c9e7d2a3310".
// The empty CanonicalID means "not assigned".
type CanonicalID string

// GenerateID derives the canonical id of a descriptor. It depends only on the
// source type, the jurisdiction code and the normalized citation, so two
// descriptors that differ only in citation formatting share an id.
func GenerateID(descriptor Descriptor) CanonicalID {
	digest := xxhash.New()
	_, _ = digest.WriteString(descriptor.sourceType.String())
	_, _ = digest.WriteString(fieldSeparator)
	_, _ = digest.WriteString(descriptor.jurisdiction.Code)
	_, _ = digest.WriteString(fieldSeparator)
	_, _ = digest.WriteString(identityText(descriptor))

	return CanonicalID(fmt.Sprintf("%s-%s-%016x", descriptor.sourceType.Tag(), descriptor.jurisdiction.Tag, digest.Sum64()))
}

// identityText is the normalized citation, or the URL for URL-only sources.
func identityText(descriptor Descriptor) string {
	if descriptor.normalizedCitation != "" {
		return descriptor.normalizedCitation
	}
	return "url " + strings.ToLower(descriptor.url)
}

// ParseCanonicalID validates s against the id grammar.
func ParseCanonicalID(s string) (CanonicalID, error) {
	if !canonicalIDPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrMalformedID, s)
	}
	return CanonicalID(s), nil
}

// IsZero reports whether no id is assigned.
func (id CanonicalID) IsZero() bool {
	return id == ""
}

// Valid reports whether id matches the grammar.
func (id CanonicalID) Valid() bool {
	return canonicalIDPattern.MatchString(string(id))
}

func (id CanonicalID) String() string {
	return string(id)
}

// MarshalText implements encoding.TextMarshaler. Unassigned ids marshal empty.
func (id CanonicalID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return []byte{}, nil
	}
	if !id.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrMalformedID, string(id))
	}
	return []byte(id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty text yields the
// unassigned id; anything else must match the grammar.
func (id *CanonicalID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*id = ""
		return nil
	}
	parsed, err := ParseCanonicalID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
