package source

import "fmt"

// AuthorityLevel is a tier in the normative hierarchy. Tier1 strictly
// outranks Tier2, which outranks Tier3, which outranks Tier4. The zero value
// LevelUnset marks a source that never went through classification.
type AuthorityLevel int

const (
	LevelUnset AuthorityLevel = iota
	Tier1                     // constitutional or statutory
	Tier2                     // implementing regulation
	Tier3                     // administrative instrument
	Tier4                     // agency guidance
)

// AuthorityLevels lists the four tiers from highest to lowest.
func AuthorityLevels() []AuthorityLevel {
	return []AuthorityLevel{Tier1, Tier2, Tier3, Tier4}
}

var authorityLevelTags = map[AuthorityLevel]string{
	Tier1: "tier-1",
	Tier2: "tier-2",
	Tier3: "tier-3",
	Tier4: "tier-4",
}

// Valid reports whether l is one of the four tiers.
func (l AuthorityLevel) Valid() bool {
	return l >= Tier1 && l <= Tier4
}

// Outranks reports whether l carries strictly more normative weight than other.
// An unset level outranks nothing; any tier outranks an unset level.
func (l AuthorityLevel) Outranks(other AuthorityLevel) bool {
	if !l.Valid() {
		return false
	}
	if !other.Valid() {
		return true
	}
	return l < other
}

func (l AuthorityLevel) String() string {
	if tag, ok := authorityLevelTags[l]; ok {
		return tag
	}
	return "unset"
}

// ParseAuthorityLevel parses a persisted tier tag. Anything other than
// "tier-1".."tier-4" is an error; there is no unknown tier.
func ParseAuthorityLevel(tag string) (AuthorityLevel, error) {
	for level, levelTag := range authorityLevelTags {
		if levelTag == tag {
			return level, nil
		}
	}
	return LevelUnset, fmt.Errorf("unknown authority level %q", tag)
}

// MarshalText implements encoding.TextMarshaler.
func (l AuthorityLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("cannot marshal unset authority level")
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *AuthorityLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAuthorityLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Classify maps a descriptor to its authority tier. The mapping is total over
// the declared source types and depends on nothing but the source type; it is
// the identity today, but tiers and source types stay distinct concepts so a
// source type can later be split across tiers.
func Classify(descriptor Descriptor) AuthorityLevel {
	return classifySourceType(descriptor.Type())
}

func classifySourceType(sourceType SourceType) AuthorityLevel {
	switch sourceType {
	case ConstitutionalOrStatutory:
		return Tier1
	case ImplementingRegulation:
		return Tier2
	case AdministrativeInstrument:
		return Tier3
	case AgencyGuidance:
		return Tier4
	}
	return LevelUnset
}
