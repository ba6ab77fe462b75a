// Package source models cited primary legal sources: the author-supplied
// descriptor, its authority tier, and its canonical identifier.
//
// Everything in this package is pure. Classify and GenerateID are
// deterministic functions of a Descriptor and are safe for concurrent use.
package source

import "fmt"

// SourceType is the closed vocabulary of primary source categories an author
// assigns to a citation. The zero value is not a valid type.
type SourceType int

const (
	sourceTypeInvalid SourceType = iota
	ConstitutionalOrStatutory
	ImplementingRegulation
	AdministrativeInstrument
	AgencyGuidance
)

// SourceTypes lists every valid SourceType in declaration order.
func SourceTypes() []SourceType {
	return []SourceType{
		ConstitutionalOrStatutory,
		ImplementingRegulation,
		AdministrativeInstrument,
		AgencyGuidance,
	}
}

type sourceTypeInfo struct {
	name string // persisted text form
	tag  string // canonical id prefix, [a-z]{2,8}
}

var sourceTypeTable = map[SourceType]sourceTypeInfo{
	ConstitutionalOrStatutory: {name: "constitutional_or_statutory", tag: "stat"},
	ImplementingRegulation:    {name: "implementing_regulation", tag: "reg"},
	AdministrativeInstrument:  {name: "administrative_instrument", tag: "admin"},
	AgencyGuidance:            {name: "agency_guidance", tag: "guidance"},
}

// Valid reports whether t is one of the four declared source types.
func (t SourceType) Valid() bool {
	_, ok := sourceTypeTable[t]
	return ok
}

func (t SourceType) String() string {
	if info, ok := sourceTypeTable[t]; ok {
		return info.name
	}
	return fmt.Sprintf("invalid_source_type(%d)", int(t))
}

// Tag returns the short type tag used as the canonical identifier prefix.
func (t SourceType) Tag() string {
	return sourceTypeTable[t].tag
}

// ParseSourceType converts a persisted name back into a SourceType.
func ParseSourceType(name string) (SourceType, error) {
	for sourceType, info := range sourceTypeTable {
		if info.name == name {
			return sourceType, nil
		}
	}
	return sourceTypeInvalid, fmt.Errorf("unknown source type %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t SourceType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid source type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SourceType) UnmarshalText(text []byte) error {
	parsed, err := ParseSourceType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
