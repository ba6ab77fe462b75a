// Package harness runs the verification pass over a whole corpus: every
// entry is built, validated and ordered, every conflict assertion is
// resolved, and the findings are collected into a Report.
package harness

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/lexcanon/pkg/conflict"
	"github.com/coolbeans/lexcanon/pkg/corpus"
	"github.com/coolbeans/lexcanon/pkg/entry"
	"github.com/coolbeans/lexcanon/pkg/source"
	"github.com/coolbeans/lexcanon/pkg/types"
)

// ErrCorpusUnreadable wraps store failures. No report is produced for them.
var ErrCorpusUnreadable = errors.New("corpus unreadable")

// conflictsSlug labels corpus violations raised by conflict assertions.
const conflictsSlug = "conflicts"

// Options configures a Harness.
type Options struct {
	// Concurrency bounds the number of entries checked at once.
	// Zero means GOMAXPROCS.
	Concurrency int

	// FailOnWarn makes warnings fail the run's exit code.
	FailOnWarn bool

	// StaleAfterDays is the age past which a last_verified date is
	// reported. Zero disables the check.
	StaleAfterDays int

	// Now returns the date staleness is measured against.
	Now func() types.Date

	Logger  *zerolog.Logger
	Metrics *Metrics
}

// Harness verifies corpus snapshots.
type Harness struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Harness, filling unset options with defaults.
func New(opts Options) *Harness {
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	if opts.Now == nil {
		opts.Now = types.Today
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Harness{opts: opts, logger: logger}
}

// Run loads a snapshot from store and verifies it. A store failure returns
// an error wrapping ErrCorpusUnreadable; a cancelled context returns its
// error. Otherwise the report is returned, passing or not.
func (h *Harness) Run(ctx context.Context, store corpus.Store) (*Report, error) {
	snapshot, err := store.Load(ctx)
	if err != nil {
		if h.opts.Metrics != nil {
			h.opts.Metrics.RunFailures.Inc()
		}
		h.logger.Error().Err(err).Msg("corpus load failed")
		return nil, fmt.Errorf("%w: %w", ErrCorpusUnreadable, err)
	}
	return h.Verify(ctx, snapshot)
}

// Verify checks an already loaded snapshot.
func (h *Harness) Verify(ctx context.Context, snapshot *corpus.Snapshot) (*Report, error) {
	startedAt := time.Now()
	report := &Report{
		RunID:      uuid.NewString(),
		Origin:     snapshot.Origin(),
		StartedAt:  startedAt,
		FailOnWarn: h.opts.FailOnWarn,
	}
	logger := h.logger.With().Str("run_id", report.RunID).Str("origin", report.Origin).Logger()
	logger.Info().Int("entries", snapshot.Len()).Int("conflicts", len(snapshot.Conflicts())).Msg("verification started")

	opts := corpus.BuildOptions{RequireIdentity: snapshot.Manifest().RequireIdentity}
	today := h.opts.Now()

	results := make([]EntryResult, snapshot.Len())
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(h.opts.Concurrency)
	for i := 0; i < snapshot.Len(); i++ {
		if groupCtx.Err() != nil {
			break
		}
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = h.checkEntry(snapshot.Entry(i), snapshot.Registry(), opts, today)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.Warn().Err(err).Msg("verification cancelled")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Msg("verification cancelled")
		return nil, err
	}

	for _, rejected := range snapshot.Rejected() {
		results = append(results, rejectedResult(rejected))
	}

	for _, result := range results {
		report.EntriesChecked++
		report.SourcesChecked += result.Sources
		if result.Passed {
			report.EntriesPassed++
		} else {
			report.EntriesFailed++
			logger.Debug().Str("slug", result.Slug).Int("violations", len(result.Violations)).Msg("entry failed")
		}
	}
	report.Entries = results

	index := consistentSources(snapshot, opts)
	h.resolveConflicts(report, snapshot.Conflicts(), index)

	report.Duration = time.Since(startedAt)
	if h.opts.Metrics != nil {
		h.opts.Metrics.observeReport(report)
	}

	event := logger.Info()
	if !report.Passed() {
		event = logger.Warn()
	}
	event.
		Int("checked", report.EntriesChecked).
		Int("failed", report.EntriesFailed).
		Int("escalations", len(report.Escalations)).
		Int("warnings", len(report.Warnings())).
		Dur("duration", report.Duration).
		Msg("verification finished")

	return report, nil
}

// CheckEntry checks a single entry outside of a corpus run, e.g. for an
// authoring tool. Conflict assertions are not considered.
func (h *Harness) CheckEntry(record corpus.EntryRecord, registry *types.JurisdictionRegistry, opts corpus.BuildOptions) EntryResult {
	return h.checkEntry(record, registry, opts, h.opts.Now())
}

func (h *Harness) checkEntry(record corpus.EntryRecord, registry *types.JurisdictionRegistry, opts corpus.BuildOptions, today types.Date) EntryResult {
	if h.opts.Metrics != nil {
		defer h.opts.Metrics.ObserveEntry(time.Now())
	}

	result := EntryResult{
		Slug:    record.Slug,
		Sources: len(record.Sources),
	}

	validated, violations := corpus.Check(record, registry, opts)
	result.Violations = violations
	result.Passed = len(violations) == 0
	if result.Passed {
		for _, ordered := range entry.Order(validated) {
			descriptor := ordered.Descriptor()
			result.Ordered = append(result.Ordered, OrderedSource{
				CanonicalID:    ordered.CanonicalID().String(),
				AuthorityLevel: ordered.AuthorityLevel().String(),
				Jurisdiction:   descriptor.Jurisdiction().Code,
				Citation:       descriptor.Label(),
			})
		}
	}

	result.Warnings = append(citationWarnings(record), stalenessWarnings(record, today, h.opts.StaleAfterDays)...)
	return result
}

func rejectedResult(rejected corpus.RejectedDocument) EntryResult {
	slug := rejected.Slug
	if slug == "" {
		slug = strings.TrimSuffix(filepath.Base(rejected.Path), filepath.Ext(rejected.Path))
	}
	return EntryResult{
		Slug:     slug,
		Document: rejected.Path,
		Violations: []entry.Violation{{
			Kind:    entry.MalformedSource,
			Slug:    slug,
			Index:   entry.NoSource,
			Message: rejected.Reason,
		}},
	}
}

// consistentSources indexes every source in the corpus whose stored tier and
// id match its descriptor. Conflict assertions may only name these.
func consistentSources(snapshot *corpus.Snapshot, opts corpus.BuildOptions) map[source.CanonicalID]source.Source {
	index := make(map[source.CanonicalID]source.Source)
	for _, record := range snapshot.Entries() {
		content, _ := corpus.BuildEntry(record, snapshot.Registry(), opts)
		for _, src := range content.Sources {
			if src.Consistent() {
				index[src.CanonicalID()] = src
			}
		}
	}
	return index
}

func (h *Harness) resolveConflicts(report *Report, records []corpus.ConflictRecord, index map[source.CanonicalID]source.Source) {
	for position, record := range records {
		malformed := func(message string) {
			report.CorpusViolations = append(report.CorpusViolations, entry.Violation{
				Kind:    entry.MalformedSource,
				Slug:    conflictsSlug,
				Index:   position,
				Message: message,
			})
		}

		assertion, err := record.Assertion()
		if err != nil {
			malformed(err.Error())
			continue
		}
		if assertion.Left == assertion.Right {
			malformed(fmt.Sprintf("conflict %q names %s on both sides", assertion.Point, assertion.Left))
			continue
		}

		left, leftFound := index[assertion.Left]
		right, rightFound := index[assertion.Right]
		dangling := false
		for _, missing := range []struct {
			id    source.CanonicalID
			found bool
		}{{assertion.Left, leftFound}, {assertion.Right, rightFound}} {
			if missing.found {
				continue
			}
			dangling = true
			report.CorpusViolations = append(report.CorpusViolations, entry.Violation{
				Kind:        entry.DanglingConflictAssertion,
				Slug:        conflictsSlug,
				Index:       position,
				CanonicalID: missing.id,
				Message:     fmt.Sprintf("conflict %q names %s, which no entry cites", assertion.Point, missing.id),
			})
		}
		if dangling {
			continue
		}

		resolution, err := conflict.Resolve(left, right, assertion)
		if err != nil {
			malformed(err.Error())
			continue
		}
		if resolution.Resolved() {
			report.Resolutions = append(report.Resolutions, resolutionResult(resolution))
			continue
		}
		h.logger.Warn().
			Str("point", assertion.Point).
			Str("left", assertion.Left.String()).
			Str("right", assertion.Right.String()).
			Msg("conflict between equal tiers escalated")
		report.Escalations = append(report.Escalations, escalation(resolution))
	}
}
