package corpus

import (
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// ErrIDFormatMigration is returned when a corpus was written with an
// identifier format this build cannot read without migrating persisted ids.
var ErrIDFormatMigration = errors.New("canonical id format requires migration")

// Manifest describes a corpus as a whole.
type Manifest struct {
	// IDFormat is the canonical id format version the corpus was written with.
	// Empty means the current format.
	IDFormat string `json:"id_format,omitempty" yaml:"id_format,omitempty"`

	// RequireIdentity makes missing persisted tiers and ids violations
	// instead of values derived at load time.
	RequireIdentity bool `json:"require_identity,omitempty" yaml:"require_identity,omitempty"`

	// Jurisdictions extends the default registry.
	Jurisdictions []types.Jurisdiction `json:"jurisdictions,omitempty" yaml:"jurisdictions,omitempty"`
}

// IDFormatVersion returns the manifest's id format, defaulting to the current one.
func (m Manifest) IDFormatVersion() string {
	if m.IDFormat == "" {
		return source.IDFormatVersion
	}
	return m.IDFormat
}

// CheckIDFormat verifies that the manifest's id format shares the major
// version of source.IDFormatVersion.
func CheckIDFormat(m Manifest) error {
	current := semver.MustParse(source.IDFormatVersion)
	constraint, err := semver.NewConstraint(fmt.Sprintf("^%d", current.Major()))
	if err != nil {
		return fmt.Errorf("building id format constraint: %w", err)
	}

	declared, err := semver.NewVersion(m.IDFormatVersion())
	if err != nil {
		return fmt.Errorf("invalid id_format %q: %w", m.IDFormat, err)
	}
	if !constraint.Check(declared) {
		return fmt.Errorf("%w: corpus uses %s, engine supports %s", ErrIDFormatMigration, declared, constraint)
	}
	return nil
}
