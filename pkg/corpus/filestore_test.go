package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coolbeans/lexcanon/pkg/source"
)

const testManifest = `id_format: "1.0.0"
jurisdictions:
  - code: US-MA
    tag: ma
    kind: state
    name: Massachusetts
    parent: US
`

const visaEntryYAML = `slug: b1-b2-visa
title: B-1/B-2 visitor visas
last_verified: 2026-02-14
sources:
  - type: agency_guidance
    jurisdiction: US
    citation: 9 FAM 402.2
  - type: constitutional_or_statutory
    jurisdiction: US
    citation: "8 U.S.C. § 1184(b)"
`

const llcEntryJSON = `{
  "slug": "massachusetts-llc",
  "claims_disclosure": false,
  "sources": [
    {"type": "constitutional_or_statutory", "jurisdiction": "US-MA", "citation": "M.G.L. c. 156C § 12"}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifestFileName), testManifest)
	writeFile(t, filepath.Join(dir, entriesDir, "b1-b2-visa.yaml"), visaEntryYAML)
	writeFile(t, filepath.Join(dir, entriesDir, "massachusetts-llc.json"), llcEntryJSON)
	writeFile(t, filepath.Join(dir, entriesDir, "README.md"), "not an entry")
	return dir
}

func TestFileStoreLoad(t *testing.T) {
	dir := writeCorpus(t)

	statuteID := mustBuild(t, statute("8 U.S.C. § 1184(b)")).CanonicalID()
	guidanceID := mustBuild(t, guidance("9 FAM 402.2")).CanonicalID()
	writeFile(t, filepath.Join(dir, conflictsFileName), fmt.Sprintf(`conflicts:
  - left: %s
    right: %s
    point: admissibility period
`, guidanceID, statuteID))

	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, dir, snapshot.Origin())
	assert.Equal(t, "1.0.0", snapshot.Manifest().IDFormat)
	require.Equal(t, 2, snapshot.Len())
	assert.Empty(t, snapshot.Rejected())

	visa := snapshot.Entry(0)
	assert.Equal(t, "b1-b2-visa", visa.Slug)
	assert.Equal(t, "2026-02-14", visa.LastVerified)
	assert.True(t, visa.Disclosure())
	assert.Equal(t, "8 U.S.C. § 1184(b)", visa.Sources[1].Citation)

	llc := snapshot.Entry(1)
	assert.False(t, llc.Disclosure())
	_, violations := Check(llc, snapshot.Registry(), BuildOptions{})
	assert.Empty(t, violations, "manifest jurisdictions extend the registry")

	conflicts := snapshot.Conflicts()
	require.Len(t, conflicts, 1)
	assertion, err := conflicts[0].Assertion()
	require.NoError(t, err)
	assert.Equal(t, statuteID, assertion.Right)
}

func TestFileStoreRejectsInvalidEntries(t *testing.T) {
	dir := writeCorpus(t)
	writeFile(t, filepath.Join(dir, entriesDir, "typo.yaml"), `slug: typo
sources:
  - type: agency_guidance
    jurisdiction: US
    citaton: 9 FAM 402.2
`)
	writeFile(t, filepath.Join(dir, entriesDir, "garbled.json"), `{"slug": `)

	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snapshot.Len())
	rejected := snapshot.Rejected()
	require.Len(t, rejected, 2)
	assert.Equal(t, filepath.Join(dir, entriesDir, "garbled.json"), rejected[0].Path)
	assert.Equal(t, filepath.Join(dir, entriesDir, "typo.yaml"), rejected[1].Path)
}

func TestFileStoreKeepsUnquotedDates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifestFileName), testManifest)
	writeFile(t, filepath.Join(dir, entriesDir, "form-5472.yaml"), `slug: form-5472
last_verified: 2026-02-14
sources:
  - type: constitutional_or_statutory
    jurisdiction: US
    citation: "26 U.S.C. § 6038A"
    publication_date: 2018-12-21
`)

	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Len())

	record := snapshot.Entry(0)
	assert.Equal(t, "2026-02-14", record.LastVerified)
	assert.Equal(t, "2018-12-21", record.Sources[0].PublicationDate)

	_, violations := Check(record, snapshot.Registry(), BuildOptions{})
	assert.Empty(t, violations)
}

func TestPlainYAML(t *testing.T) {
	tree := map[string]any{
		"day":   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		"stamp": time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC),
		"list":  []any{time.Date(2018, 12, 21, 0, 0, 0, 0, time.UTC), "text", 3},
	}

	plain := plainYAML(tree).(map[string]any)
	assert.Equal(t, "2026-02-14", plain["day"])
	assert.Equal(t, "2026-02-14T09:30:00Z", plain["stamp"])
	assert.Equal(t, []any{"2018-12-21", "text", 3}, plain["list"])
}

func TestFileStoreRejectsDuplicateSlugs(t *testing.T) {
	dir := writeCorpus(t)
	writeFile(t, filepath.Join(dir, entriesDir, "visa-copy.json"), `{"slug": "b1-b2-visa", "sources": []}`)

	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, snapshot.Len())
	assert.Equal(t, "massachusetts-llc", snapshot.Entry(0).Slug)

	rejected := snapshot.Rejected()
	require.Len(t, rejected, 2)
	assert.Equal(t, filepath.Join(dir, entriesDir, "b1-b2-visa.yaml"), rejected[0].Path)
	assert.Equal(t, filepath.Join(dir, entriesDir, "visa-copy.json"), rejected[1].Path)
	for _, document := range rejected {
		assert.Equal(t, "b1-b2-visa", document.Slug)
		assert.Contains(t, document.Reason, "duplicate entry slug")
	}
	assert.Contains(t, rejected[0].Reason, "visa-copy.json")
}

func TestFileStoreFatalErrors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir(), nil)
		require.NoError(t, err)
		_, err = store.Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("invalid manifest", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, manifestFileName), "id_format: 1.0.0\nowner: nobody\n")
		store, err := NewFileStore(dir, nil)
		require.NoError(t, err)
		_, err = store.Load(context.Background())
		assert.Error(t, err)
	})

	t.Run("future id format", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, manifestFileName), `id_format: "2.0.0"`)
		store, err := NewFileStore(dir, nil)
		require.NoError(t, err)
		_, err = store.Load(context.Background())
		assert.ErrorIs(t, err, ErrIDFormatMigration)
	})

	t.Run("malformed conflicts", func(t *testing.T) {
		dir := writeCorpus(t)
		writeFile(t, filepath.Join(dir, conflictsFileName), "conflicts:\n  - left: a\n")
		store, err := NewFileStore(dir, nil)
		require.NoError(t, err)
		_, err = store.Load(context.Background())
		assert.Error(t, err)
	})
}

func TestFileStoreLoadCancelled(t *testing.T) {
	store, err := NewFileStore(writeCorpus(t), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStoreWatch(t *testing.T) {
	dir := writeCorpus(t)
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, 50*time.Millisecond, func() { changes <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, entriesDir, "new-entry.yaml"), "slug: new-entry\nsources: []\n")

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Watch to return after cancellation")
	}
}

func mustBuild(t *testing.T, record SourceRecord) source.Source {
	t.Helper()
	built, err := BuildSource(record, registry, BuildOptions{})
	require.NoError(t, err)
	return built
}
