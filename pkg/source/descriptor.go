package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coolbeans/lexcanon/pkg/citation"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// Descriptor construction errors.
var (
	ErrUnlocatable         = errors.New("source has neither a citation nor a URL")
	ErrInvalidSourceType   = errors.New("invalid source type")
	ErrMissingJurisdiction = errors.New("source jurisdiction is not set")
	ErrInvalidURL          = errors.New("source URL must be an absolute http or https URL")
)

// Input is the author-supplied description of a source, before validation.
type Input struct {
	Title           string
	Type            SourceType
	Jurisdiction    types.Jurisdiction
	Citation        string
	URL             string
	PublicationDate *types.Date
}

// Descriptor is a validated, immutable description of one cited source.
// At least one of NormalizedCitation or URL is non-empty.
type Descriptor struct {
	title              string
	sourceType         SourceType
	jurisdiction       types.Jurisdiction
	citation           string
	normalizedCitation string
	url                string
	publicationDate    *types.Date
}

// NewDescriptor validates input and returns the descriptor.
func NewDescriptor(input Input) (Descriptor, error) {
	if !input.Type.Valid() {
		return Descriptor{}, fmt.Errorf("%w: %d", ErrInvalidSourceType, int(input.Type))
	}
	if input.Jurisdiction.IsZero() || input.Jurisdiction.Tag == "" {
		return Descriptor{}, ErrMissingJurisdiction
	}

	// A citation made only of punctuation and section marks identifies nothing.
	normalized := citation.Normalize(input.Citation)
	locator := strings.TrimSpace(input.URL)
	if normalized == "" && locator == "" {
		return Descriptor{}, ErrUnlocatable
	}
	if locator != "" {
		if err := checkURL(locator); err != nil {
			return Descriptor{}, err
		}
	}

	descriptor := Descriptor{
		title:              strings.TrimSpace(input.Title),
		sourceType:         input.Type,
		jurisdiction:       input.Jurisdiction,
		citation:           input.Citation,
		normalizedCitation: normalized,
		url:                locator,
	}
	if input.PublicationDate != nil {
		published := *input.PublicationDate
		descriptor.publicationDate = &published
	}
	return descriptor, nil
}

func checkURL(locator string) error {
	parsed, err := url.Parse(locator)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, locator)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, parsed.Scheme)
	}
	return nil
}

func (d Descriptor) Title() string                    { return d.title }
func (d Descriptor) Type() SourceType                 { return d.sourceType }
func (d Descriptor) Jurisdiction() types.Jurisdiction { return d.jurisdiction }

// Citation returns the citation exactly as the author wrote it.
func (d Descriptor) Citation() string { return d.citation }

// NormalizedCitation returns the citation in identity-normalized form.
func (d Descriptor) NormalizedCitation() string { return d.normalizedCitation }

func (d Descriptor) URL() string { return d.url }

// PublicationDate returns the publication date, if the author supplied one.
func (d Descriptor) PublicationDate() (types.Date, bool) {
	if d.publicationDate == nil {
		return types.Date{}, false
	}
	return *d.publicationDate, true
}

// Label returns the citation when present, else the URL. Used in messages.
func (d Descriptor) Label() string {
	if strings.TrimSpace(d.citation) != "" {
		return d.citation
	}
	return d.url
}
