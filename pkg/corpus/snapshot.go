package corpus

import (
	"context"
	"fmt"
	"sort"

	"github.com/coolbeans/lexcanon/pkg/types"
)

// Store is an external source of corpus snapshots.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// RejectedDocument is a corpus document that could not be read as an entry.
// It is reported against the entry it would have defined, not treated as fatal.
// Slug is set when the document was readable but its slug was not usable.
type RejectedDocument struct {
	Path   string `json:"path"`
	Slug   string `json:"slug,omitempty"`
	Reason string `json:"reason"`
}

// Snapshot is an immutable view of a corpus at one point in time.
type Snapshot struct {
	origin    string
	manifest  Manifest
	registry  *types.JurisdictionRegistry
	entries   []EntryRecord
	conflicts []ConflictRecord
	rejected  []RejectedDocument
}

// NewSnapshot validates the manifest, extends base with the manifest's
// jurisdictions and freezes the records. Entries are sorted by slug;
// duplicate slugs are an error. A nil base means the default registry.
func NewSnapshot(origin string, manifest Manifest, entries []EntryRecord, conflicts []ConflictRecord, base *types.JurisdictionRegistry) (*Snapshot, error) {
	if err := CheckIDFormat(manifest); err != nil {
		return nil, err
	}

	if base == nil {
		base = types.DefaultJurisdictionRegistry()
	}
	registry := base
	if len(manifest.Jurisdictions) > 0 {
		extended, err := base.Extend(manifest.Jurisdictions...)
		if err != nil {
			return nil, fmt.Errorf("manifest jurisdictions: %w", err)
		}
		registry = extended
	}

	frozen := make([]EntryRecord, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, record := range entries {
		if record.Slug == "" {
			return nil, fmt.Errorf("entry %d has no slug", i)
		}
		if seen[record.Slug] {
			return nil, fmt.Errorf("duplicate entry slug %q", record.Slug)
		}
		seen[record.Slug] = true
		frozen[i] = cloneEntryRecord(record)
	}
	sort.Slice(frozen, func(i, j int) bool {
		return frozen[i].Slug < frozen[j].Slug
	})

	manifest.Jurisdictions = append([]types.Jurisdiction(nil), manifest.Jurisdictions...)

	return &Snapshot{
		origin:    origin,
		manifest:  manifest,
		registry:  registry,
		entries:   frozen,
		conflicts: append([]ConflictRecord(nil), conflicts...),
	}, nil
}

// withRejected returns a copy of the snapshot carrying rejected documents.
func (s *Snapshot) withRejected(rejected []RejectedDocument) *Snapshot {
	clone := *s
	clone.rejected = append([]RejectedDocument(nil), rejected...)
	return &clone
}

// withEntries returns a copy of the snapshot holding entries, which must keep
// the snapshot's slugs and order.
func (s *Snapshot) withEntries(entries []EntryRecord) *Snapshot {
	clone := *s
	clone.entries = make([]EntryRecord, len(entries))
	for i, record := range entries {
		clone.entries[i] = cloneEntryRecord(record)
	}
	return &clone
}

// Origin describes where the snapshot was read from.
func (s *Snapshot) Origin() string { return s.origin }

// Manifest returns the corpus manifest.
func (s *Snapshot) Manifest() Manifest {
	manifest := s.manifest
	manifest.Jurisdictions = append([]types.Jurisdiction(nil), s.manifest.Jurisdictions...)
	return manifest
}

// Registry returns the jurisdiction registry in effect for this corpus.
func (s *Snapshot) Registry() *types.JurisdictionRegistry { return s.registry }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.entries) }

// Entry returns the i-th entry in slug order.
func (s *Snapshot) Entry(i int) EntryRecord { return cloneEntryRecord(s.entries[i]) }

// Entries returns copies of all entries in slug order.
func (s *Snapshot) Entries() []EntryRecord {
	entries := make([]EntryRecord, len(s.entries))
	for i, record := range s.entries {
		entries[i] = cloneEntryRecord(record)
	}
	return entries
}

// Conflicts returns the authored conflict assertions.
func (s *Snapshot) Conflicts() []ConflictRecord {
	return append([]ConflictRecord(nil), s.conflicts...)
}

// Rejected returns documents that failed schema validation.
func (s *Snapshot) Rejected() []RejectedDocument {
	return append([]RejectedDocument(nil), s.rejected...)
}
