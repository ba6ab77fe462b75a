package source

// Source is a descriptor together with its authority tier and canonical id.
// A Source built by NewSource is always consistent; Restore rebuilds a
// persisted record as-is so that inconsistencies can be reported by the
// entry validator instead of silently repaired.
type Source struct {
	descriptor Descriptor
	level      AuthorityLevel
	id         CanonicalID
}

// NewSource classifies the descriptor and assigns its canonical id.
func NewSource(descriptor Descriptor) Source {
	return Source{
		descriptor: descriptor,
		level:      Classify(descriptor),
		id:         GenerateID(descriptor),
	}
}

// Restore rebuilds a source from persisted values without recomputing them.
// Either value may be zero when the record never stored it.
func Restore(descriptor Descriptor, level AuthorityLevel, id CanonicalID) Source {
	return Source{descriptor: descriptor, level: level, id: id}
}

func (s Source) Descriptor() Descriptor         { return s.descriptor }
func (s Source) AuthorityLevel() AuthorityLevel { return s.level }
func (s Source) CanonicalID() CanonicalID       { return s.id }

// Consistent reports whether the stored tier and id equal the values the
// descriptor classifies and hashes to.
func (s Source) Consistent() bool {
	return s.level == Classify(s.descriptor) && s.id == GenerateID(s.descriptor)
}

// Reclassified returns the source with tier and id recomputed from its descriptor.
func (s Source) Reclassified() Source {
	return NewSource(s.descriptor)
}
