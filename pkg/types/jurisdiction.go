package types

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// JurisdictionKind represents the level of a legal system.
// The declaration order is the canonical precedence order used when
// sorting sources: federal before state, then the wider systems.
type JurisdictionKind int

const (
	JurisdictionFederal JurisdictionKind = iota
	JurisdictionState
	JurisdictionSupranational
	JurisdictionInternational
)

var jurisdictionKindNames = []string{"federal", "state", "supranational", "international"}

func (k JurisdictionKind) String() string {
	if k >= 0 && int(k) < len(jurisdictionKindNames) {
		return jurisdictionKindNames[k]
	}
	return "unknown"
}

// ParseJurisdictionKind converts a kind name back to its JurisdictionKind.
func ParseJurisdictionKind(name string) (JurisdictionKind, error) {
	for i, kindName := range jurisdictionKindNames {
		if strings.EqualFold(name, kindName) {
			return JurisdictionKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown jurisdiction kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k JurisdictionKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(jurisdictionKindNames) {
		return nil, fmt.Errorf("invalid jurisdiction kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *JurisdictionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseJurisdictionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Jurisdiction represents a legal system a source belongs to.
type Jurisdiction struct {
	// Code is the registry key, e.g. "US", "US-DE", "EU".
	Code string `json:"code" yaml:"code"`

	// Tag is the two-letter lower-case tag embedded in canonical identifiers.
	Tag string `json:"tag" yaml:"tag"`

	Kind   JurisdictionKind `json:"kind" yaml:"kind"`
	Name   string           `json:"name,omitempty" yaml:"name,omitempty"`
	Parent string           `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// IsZero reports whether the jurisdiction is unset.
func (j Jurisdiction) IsZero() bool {
	return j.Code == ""
}

func (j Jurisdiction) String() string {
	return j.Code
}

// CompareJurisdictions orders jurisdictions canonically: by kind rank
// (federal first), then by code. Returns -1, 0 or 1.
func CompareJurisdictions(a, b Jurisdiction) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Code, b.Code)
}

var (
	jurisdictionCodePattern = regexp.MustCompile(`^[A-Z]{2,4}(-[A-Z0-9]{1,4})?$`)
	jurisdictionTagPattern  = regexp.MustCompile(`^[a-z]{2}$`)
)

// JurisdictionRegistry is an immutable, closed set of jurisdictions.
// Extending it yields a new registry; existing values are never mutated,
// so one registry can be shared by concurrent harness runs.
type JurisdictionRegistry struct {
	byCode map[string]Jurisdiction
	codes  []string
}

// NewJurisdictionRegistry builds a registry from the given jurisdictions.
// Returns an error on empty or duplicate codes, malformed or duplicate tags,
// and parents that are not part of the registry.
func NewJurisdictionRegistry(jurisdictions ...Jurisdiction) (*JurisdictionRegistry, error) {
	registry := &JurisdictionRegistry{
		byCode: make(map[string]Jurisdiction, len(jurisdictions)),
		codes:  make([]string, 0, len(jurisdictions)),
	}
	tagOwners := make(map[string]string, len(jurisdictions))

	for _, jurisdiction := range jurisdictions {
		jurisdiction.Code = strings.ToUpper(strings.TrimSpace(jurisdiction.Code))
		jurisdiction.Parent = strings.ToUpper(strings.TrimSpace(jurisdiction.Parent))

		if jurisdiction.Code == "" {
			return nil, fmt.Errorf("jurisdiction code cannot be empty")
		}
		if !jurisdictionCodePattern.MatchString(jurisdiction.Code) {
			return nil, fmt.Errorf("jurisdiction code %q is malformed", jurisdiction.Code)
		}
		if _, exists := registry.byCode[jurisdiction.Code]; exists {
			return nil, fmt.Errorf("jurisdiction %q already registered", jurisdiction.Code)
		}
		if !jurisdictionTagPattern.MatchString(jurisdiction.Tag) {
			return nil, fmt.Errorf("jurisdiction %q has malformed tag %q", jurisdiction.Code, jurisdiction.Tag)
		}
		if owner, taken := tagOwners[jurisdiction.Tag]; taken {
			return nil, fmt.Errorf("jurisdiction %q reuses tag %q of %q", jurisdiction.Code, jurisdiction.Tag, owner)
		}
		if jurisdiction.Kind < JurisdictionFederal || jurisdiction.Kind > JurisdictionInternational {
			return nil, fmt.Errorf("jurisdiction %q has invalid kind %d", jurisdiction.Code, int(jurisdiction.Kind))
		}

		tagOwners[jurisdiction.Tag] = jurisdiction.Code
		registry.byCode[jurisdiction.Code] = jurisdiction
		registry.codes = append(registry.codes, jurisdiction.Code)
	}

	for _, code := range registry.codes {
		parent := registry.byCode[code].Parent
		if parent == "" {
			continue
		}
		if _, ok := registry.byCode[parent]; !ok {
			return nil, fmt.Errorf("jurisdiction %q has unknown parent %q", code, parent)
		}
	}

	sort.Slice(registry.codes, func(i, j int) bool {
		return CompareJurisdictions(registry.byCode[registry.codes[i]], registry.byCode[registry.codes[j]]) < 0
	})

	return registry, nil
}

// Lookup returns the jurisdiction registered under code (case-insensitive).
func (r *JurisdictionRegistry) Lookup(code string) (Jurisdiction, bool) {
	jurisdiction, ok := r.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return jurisdiction, ok
}

// Resolve is Lookup returning an error for unknown codes.
func (r *JurisdictionRegistry) Resolve(code string) (Jurisdiction, error) {
	jurisdiction, ok := r.Lookup(code)
	if !ok {
		return Jurisdiction{}, fmt.Errorf("jurisdiction %q is not registered", code)
	}
	return jurisdiction, nil
}

// List returns all jurisdictions in canonical order.
func (r *JurisdictionRegistry) List() []Jurisdiction {
	jurisdictions := make([]Jurisdiction, len(r.codes))
	for i, code := range r.codes {
		jurisdictions[i] = r.byCode[code]
	}
	return jurisdictions
}

// Count returns the number of registered jurisdictions.
func (r *JurisdictionRegistry) Count() int {
	return len(r.codes)
}

// Extend returns a new registry holding the current jurisdictions plus extra.
func (r *JurisdictionRegistry) Extend(extra ...Jurisdiction) (*JurisdictionRegistry, error) {
	return NewJurisdictionRegistry(append(r.List(), extra...)...)
}

// DefaultJurisdictions returns the jurisdictions the corpus ships with.
func DefaultJurisdictions() []Jurisdiction {
	return []Jurisdiction{
		{Code: "US", Tag: "us", Kind: JurisdictionFederal, Name: "United States"},
		{Code: "US-CA", Tag: "ca", Kind: JurisdictionState, Name: "California", Parent: "US"},
		{Code: "US-DE", Tag: "de", Kind: JurisdictionState, Name: "Delaware", Parent: "US"},
		{Code: "US-FL", Tag: "fl", Kind: JurisdictionState, Name: "Florida", Parent: "US"},
		{Code: "US-NY", Tag: "ny", Kind: JurisdictionState, Name: "New York", Parent: "US"},
		{Code: "US-TX", Tag: "tx", Kind: JurisdictionState, Name: "Texas", Parent: "US"},
		{Code: "US-WY", Tag: "wy", Kind: JurisdictionState, Name: "Wyoming", Parent: "US"},
		{Code: "TR", Tag: "tr", Kind: JurisdictionFederal, Name: "Türkiye"},
		{Code: "UK", Tag: "uk", Kind: JurisdictionFederal, Name: "United Kingdom"},
		{Code: "DE", Tag: "gm", Kind: JurisdictionFederal, Name: "Germany"},
		{Code: "FR", Tag: "fr", Kind: JurisdictionFederal, Name: "France"},
		{Code: "EU", Tag: "eu", Kind: JurisdictionSupranational, Name: "European Union"},
		{Code: "INTL", Tag: "xi", Kind: JurisdictionInternational, Name: "International"},
	}
}

// DefaultJurisdictionRegistry returns a registry of DefaultJurisdictions.
func DefaultJurisdictionRegistry() *JurisdictionRegistry {
	registry, err := NewJurisdictionRegistry(DefaultJurisdictions()...)
	if err != nil {
		panic(fmt.Sprintf("default jurisdictions are invalid: %v", err))
	}
	return registry
}
