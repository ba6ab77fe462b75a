package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/coolbeans/lexcanon/pkg/types"
)

// Dialect selects the SQL placeholder style.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// DialectForDriver maps a database/sql driver name to its dialect.
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "postgres":
		return DialectPostgres, nil
	}
	return 0, fmt.Errorf("unsupported sql driver %q", driver)
}

// bind rewrites "?" placeholders for the dialect.
func (d Dialect) bind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS corpus_manifest (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS corpus_jurisdictions (
	code TEXT PRIMARY KEY,
	tag TEXT NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	parent TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS corpus_entries (
	slug TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	last_verified TEXT NOT NULL DEFAULT '',
	claims_disclosure BOOLEAN NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS corpus_sources (
	entry_slug TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	source_type TEXT NOT NULL,
	jurisdiction TEXT NOT NULL,
	citation TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	publication_date TEXT NOT NULL DEFAULT '',
	authority_level TEXT NOT NULL DEFAULT '',
	canonical_id TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (entry_slug, position)
)`,
	`CREATE TABLE IF NOT EXISTS corpus_conflicts (
	position INTEGER PRIMARY KEY,
	left_id TEXT NOT NULL,
	right_id TEXT NOT NULL,
	point TEXT NOT NULL,
	note TEXT NOT NULL DEFAULT ''
)`,
}

const (
	manifestKeyIDFormat        = "id_format"
	manifestKeyRequireIdentity = "require_identity"
)

// SQLStore keeps a corpus in SQLite or PostgreSQL.
type SQLStore struct {
	db       *sql.DB
	dialect  Dialect
	registry *types.JurisdictionRegistry
	origin   string
}

// NewSQLStore wraps an open database. A nil registry means the default one.
func NewSQLStore(db *sql.DB, dialect Dialect, registry *types.JurisdictionRegistry) *SQLStore {
	if registry == nil {
		registry = types.DefaultJurisdictionRegistry()
	}
	return &SQLStore{db: db, dialect: dialect, registry: registry, origin: "sql"}
}

// OpenSQLStore opens driver/dsn. The driver must be registered by the caller
// (modernc.org/sqlite as "sqlite", lib/pq as "postgres").
func OpenSQLStore(driver, dsn string, registry *types.JurisdictionRegistry) (*SQLStore, error) {
	dialect, err := DialectForDriver(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}
	store := NewSQLStore(db, dialect, registry)
	store.origin = driver
	return store, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the corpus tables if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, statement := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("migrating corpus schema: %w", err)
		}
	}
	return nil
}

// Load reads the corpus.
func (s *SQLStore) Load(ctx context.Context) (*Snapshot, error) {
	manifest, err := s.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	conflicts, err := s.loadConflicts(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(s.origin, manifest, entries, conflicts, s.registry)
}

func (s *SQLStore) loadManifest(ctx context.Context) (Manifest, error) {
	var manifest Manifest

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM corpus_manifest`)
	if err != nil {
		return manifest, fmt.Errorf("loading manifest: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return manifest, fmt.Errorf("loading manifest: %w", err)
		}
		switch key {
		case manifestKeyIDFormat:
			manifest.IDFormat = value
		case manifestKeyRequireIdentity:
			manifest.RequireIdentity = value == "true"
		}
	}
	if err := rows.Err(); err != nil {
		return manifest, fmt.Errorf("loading manifest: %w", err)
	}

	jurisdictionRows, err := s.db.QueryContext(ctx,
		`SELECT code, tag, kind, name, parent FROM corpus_jurisdictions ORDER BY code`)
	if err != nil {
		return manifest, fmt.Errorf("loading jurisdictions: %w", err)
	}
	defer func() { _ = jurisdictionRows.Close() }()
	for jurisdictionRows.Next() {
		var (
			jurisdiction types.Jurisdiction
			kind         string
		)
		if err := jurisdictionRows.Scan(&jurisdiction.Code, &jurisdiction.Tag, &kind, &jurisdiction.Name, &jurisdiction.Parent); err != nil {
			return manifest, fmt.Errorf("loading jurisdictions: %w", err)
		}
		if jurisdiction.Kind, err = types.ParseJurisdictionKind(kind); err != nil {
			return manifest, fmt.Errorf("jurisdiction %s: %w", jurisdiction.Code, err)
		}
		manifest.Jurisdictions = append(manifest.Jurisdictions, jurisdiction)
	}
	if err := jurisdictionRows.Err(); err != nil {
		return manifest, fmt.Errorf("loading jurisdictions: %w", err)
	}
	return manifest, nil
}

func (s *SQLStore) loadEntries(ctx context.Context) ([]EntryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, title, last_verified, claims_disclosure FROM corpus_entries ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []EntryRecord
	bySlug := make(map[string]int)
	for rows.Next() {
		var (
			record     EntryRecord
			disclosure bool
		)
		if err := rows.Scan(&record.Slug, &record.Title, &record.LastVerified, &disclosure); err != nil {
			return nil, fmt.Errorf("loading entries: %w", err)
		}
		record.ClaimsDisclosure = &disclosure
		bySlug[record.Slug] = len(entries)
		entries = append(entries, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading entries: %w", err)
	}

	sourceRows, err := s.db.QueryContext(ctx, `SELECT entry_slug, title, source_type, jurisdiction, citation, url,
	publication_date, authority_level, canonical_id FROM corpus_sources ORDER BY entry_slug, position`)
	if err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	defer func() { _ = sourceRows.Close() }()
	for sourceRows.Next() {
		var (
			slug   string
			record SourceRecord
		)
		if err := sourceRows.Scan(&slug, &record.Title, &record.Type, &record.Jurisdiction, &record.Citation,
			&record.URL, &record.PublicationDate, &record.AuthorityLevel, &record.CanonicalID); err != nil {
			return nil, fmt.Errorf("loading sources: %w", err)
		}
		index, ok := bySlug[slug]
		if !ok {
			return nil, fmt.Errorf("source references unknown entry %q", slug)
		}
		entries[index].Sources = append(entries[index].Sources, record)
	}
	if err := sourceRows.Err(); err != nil {
		return nil, fmt.Errorf("loading sources: %w", err)
	}
	return entries, nil
}

func (s *SQLStore) loadConflicts(ctx context.Context) ([]ConflictRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT left_id, right_id, point, note FROM corpus_conflicts ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("loading conflicts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conflicts []ConflictRecord
	for rows.Next() {
		var record ConflictRecord
		if err := rows.Scan(&record.Left, &record.Right, &record.Point, &record.Note); err != nil {
			return nil, fmt.Errorf("loading conflicts: %w", err)
		}
		conflicts = append(conflicts, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading conflicts: %w", err)
	}
	return conflicts, nil
}

// Save replaces the stored corpus with snapshot in one transaction. Records
// are written as stored; use Restamp first to persist derived identities.
func (s *SQLStore) Save(ctx context.Context, snapshot *Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"corpus_sources", "corpus_entries", "corpus_conflicts", "corpus_jurisdictions", "corpus_manifest"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	manifest := snapshot.Manifest()
	if err = s.exec(ctx, tx, `INSERT INTO corpus_manifest (key, value) VALUES (?, ?)`,
		manifestKeyIDFormat, manifest.IDFormatVersion()); err != nil {
		return err
	}
	if err = s.exec(ctx, tx, `INSERT INTO corpus_manifest (key, value) VALUES (?, ?)`,
		manifestKeyRequireIdentity, strconv.FormatBool(manifest.RequireIdentity)); err != nil {
		return err
	}
	for _, j := range manifest.Jurisdictions {
		if err = s.exec(ctx, tx, `INSERT INTO corpus_jurisdictions (code, tag, kind, name, parent) VALUES (?, ?, ?, ?, ?)`,
			strings.ToUpper(j.Code), j.Tag, j.Kind.String(), j.Name, strings.ToUpper(j.Parent)); err != nil {
			return err
		}
	}

	for _, record := range snapshot.Entries() {
		if err = s.exec(ctx, tx, `INSERT INTO corpus_entries (slug, title, last_verified, claims_disclosure) VALUES (?, ?, ?, ?)`,
			record.Slug, record.Title, record.LastVerified, record.Disclosure()); err != nil {
			return err
		}
		for position, src := range record.Sources {
			if err = s.exec(ctx, tx, `INSERT INTO corpus_sources (entry_slug, position, title, source_type, jurisdiction,
	citation, url, publication_date, authority_level, canonical_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				record.Slug, position, src.Title, src.Type, src.Jurisdiction, src.Citation, src.URL,
				src.PublicationDate, src.AuthorityLevel, src.CanonicalID); err != nil {
				return err
			}
		}
	}

	for position, record := range snapshot.Conflicts() {
		if err = s.exec(ctx, tx, `INSERT INTO corpus_conflicts (position, left_id, right_id, point, note) VALUES (?, ?, ?, ?, ?)`,
			position, record.Left, record.Right, record.Point, record.Note); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing corpus: %w", err)
	}
	return nil
}

func (s *SQLStore) exec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	if _, err := tx.ExecContext(ctx, s.dialect.bind(query), args...); err != nil {
		return fmt.Errorf("saving corpus: %w", err)
	}
	return nil
}
