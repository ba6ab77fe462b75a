// Package corpus reads and writes the content corpus: entry and conflict
// records as authored, plus the manifest that pins the identifier format
// and extends the jurisdiction registry. Stores hand out immutable
// snapshots; one snapshot backs one verification run.
package corpus

import (
	"fmt"

	"github.com/coolbeans/lexcanon/pkg/conflict"
	"github.com/coolbeans/lexcanon/pkg/source"
)

// SourceRecord is a source exactly as stored. AuthorityLevel and CanonicalID
// hold previously persisted values and are empty when never stored.
type SourceRecord struct {
	Title           string `json:"title,omitempty" yaml:"title,omitempty"`
	Type            string `json:"type" yaml:"type"`
	Jurisdiction    string `json:"jurisdiction" yaml:"jurisdiction"`
	Citation        string `json:"citation,omitempty" yaml:"citation,omitempty"`
	URL             string `json:"url,omitempty" yaml:"url,omitempty"`
	PublicationDate string `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	AuthorityLevel  string `json:"authority_level,omitempty" yaml:"authority_level,omitempty"`
	CanonicalID     string `json:"canonical_id,omitempty" yaml:"canonical_id,omitempty"`
}

// Label returns the citation, or the URL for URL-only sources.
func (r SourceRecord) Label() string {
	if r.Citation != "" {
		return r.Citation
	}
	return r.URL
}

// EntryRecord is a content entry exactly as stored.
type EntryRecord struct {
	Slug         string `json:"slug" yaml:"slug"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	LastVerified string `json:"last_verified,omitempty" yaml:"last_verified,omitempty"`

	// ClaimsDisclosure defaults to true when absent.
	ClaimsDisclosure *bool `json:"claims_disclosure,omitempty" yaml:"claims_disclosure,omitempty"`

	Sources []SourceRecord `json:"sources" yaml:"sources"`
}

// Disclosure reports whether the entry claims primary source disclosure.
func (r EntryRecord) Disclosure() bool {
	return r.ClaimsDisclosure == nil || *r.ClaimsDisclosure
}

// ConflictRecord is an authored conflict assertion between two canonical ids.
type ConflictRecord struct {
	Left  string `json:"left" yaml:"left"`
	Right string `json:"right" yaml:"right"`
	Point string `json:"point" yaml:"point"`
	Note  string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Assertion parses the record into a conflict assertion.
func (r ConflictRecord) Assertion() (conflict.Assertion, error) {
	left, err := source.ParseCanonicalID(r.Left)
	if err != nil {
		return conflict.Assertion{}, fmt.Errorf("conflict left: %w", err)
	}
	right, err := source.ParseCanonicalID(r.Right)
	if err != nil {
		return conflict.Assertion{}, fmt.Errorf("conflict right: %w", err)
	}
	return conflict.Assertion{Left: left, Right: right, Point: r.Point, Note: r.Note}, nil
}

func cloneEntryRecord(record EntryRecord) EntryRecord {
	clone := record
	clone.Sources = append([]SourceRecord(nil), record.Sources...)
	if record.ClaimsDisclosure != nil {
		disclosure := *record.ClaimsDisclosure
		clone.ClaimsDisclosure = &disclosure
	}
	return clone
}
