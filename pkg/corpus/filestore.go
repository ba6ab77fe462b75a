package corpus

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/fsnotify.v1"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/lexcanon/pkg/types"
)

const (
	manifestFileName  = "corpus.yaml"
	conflictsFileName = "conflicts.yaml"
	entriesDir        = "entries"
	schemaBaseURL     = "https://lexcanon.schemas.local/corpus/"
)

//go:embed schema/*.json
var schemaFiles embed.FS

// documentSchemas holds the compiled schemas for each corpus document kind.
type documentSchemas struct {
	manifest  *jsonschema.Schema
	entry     *jsonschema.Schema
	conflicts *jsonschema.Schema
}

func compileSchemas() (*documentSchemas, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	names := []string{"manifest", "entry", "conflicts"}
	for _, name := range names {
		data, err := schemaFiles.ReadFile("schema/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("reading %s schema: %w", name, err)
		}
		if err := compiler.AddResource(schemaBaseURL+name+".schema.json", bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("loading %s schema: %w", name, err)
		}
	}

	compiled := make([]*jsonschema.Schema, len(names))
	for i, name := range names {
		schema, err := compiler.Compile(schemaBaseURL + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", name, err)
		}
		compiled[i] = schema
	}
	return &documentSchemas{manifest: compiled[0], entry: compiled[1], conflicts: compiled[2]}, nil
}

// FileStore reads a corpus laid out on disk:
//
//	corpus.yaml        manifest
//	conflicts.yaml     optional conflict assertions
//	entries/*.yaml     one entry per file (.yaml, .yml or .json)
//
// Every document is checked against its JSON Schema before decoding.
type FileStore struct {
	dir      string
	registry *types.JurisdictionRegistry
	schemas  *documentSchemas
}

// NewFileStore creates a store over dir. A nil registry means the default one.
func NewFileStore(dir string, registry *types.JurisdictionRegistry) (*FileStore, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = types.DefaultJurisdictionRegistry()
	}
	return &FileStore{dir: dir, registry: registry, schemas: schemas}, nil
}

// Dir returns the corpus directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Load reads the whole corpus. Entry documents that fail to parse or
// validate, or that share a slug with another document, are recorded as
// rejected; manifest and conflict failures and
// I/O errors are returned.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	var manifest Manifest
	if err := s.readDocument(filepath.Join(s.dir, manifestFileName), s.schemas.manifest, &manifest); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var conflictsDoc struct {
		Conflicts []ConflictRecord `json:"conflicts"`
	}
	conflictsPath := filepath.Join(s.dir, conflictsFileName)
	if _, err := os.Stat(conflictsPath); err == nil {
		if err := s.readDocument(conflictsPath, s.schemas.conflicts, &conflictsDoc); err != nil {
			return nil, fmt.Errorf("reading conflicts: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading conflicts: %w", err)
	}

	paths, err := s.entryPaths()
	if err != nil {
		return nil, err
	}

	var (
		entries  []EntryRecord
		rejected []RejectedDocument
		origins  = make(map[string][]string)
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var record EntryRecord
		if err := s.readDocument(path, s.schemas.entry, &record); err != nil {
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				return nil, fmt.Errorf("reading entry: %w", err)
			}
			rejected = append(rejected, RejectedDocument{Path: path, Reason: err.Error()})
			continue
		}
		entries = append(entries, record)
		origins[record.Slug] = append(origins[record.Slug], path)
	}
	entries, rejected = rejectDuplicateSlugs(entries, paths, origins, rejected)

	snapshot, err := NewSnapshot(s.dir, manifest, entries, conflictsDoc.Conflicts, s.registry)
	if err != nil {
		return nil, err
	}
	return snapshot.withRejected(rejected), nil
}

// rejectDuplicateSlugs moves every document whose slug is defined more than
// once into rejected, leaving the other entries intact. Rejected documents
// stay in path order.
func rejectDuplicateSlugs(entries []EntryRecord, paths []string, origins map[string][]string, rejected []RejectedDocument) ([]EntryRecord, []RejectedDocument) {
	duplicated := make(map[string]string)
	for slug, defined := range origins {
		if len(defined) > 1 {
			for _, path := range defined {
				duplicated[path] = slug
			}
		}
	}
	if len(duplicated) == 0 {
		return entries, rejected
	}

	kept := entries[:0]
	for _, record := range entries {
		if len(origins[record.Slug]) == 1 {
			kept = append(kept, record)
		}
	}
	for _, path := range paths {
		slug, ok := duplicated[path]
		if !ok {
			continue
		}
		var others []string
		for _, other := range origins[slug] {
			if other != path {
				others = append(others, filepath.Base(other))
			}
		}
		rejected = append(rejected, RejectedDocument{
			Path:   path,
			Slug:   slug,
			Reason: fmt.Sprintf("%s: duplicate entry slug %q, also defined in %s", path, slug, strings.Join(others, ", ")),
		})
	}
	slices.SortFunc(rejected, func(a, b RejectedDocument) int {
		return strings.Compare(a.Path, b.Path)
	})
	return kept, rejected
}

func (s *FileStore) entryPaths() ([]string, error) {
	dir := filepath.Join(s.dir, entriesDir)
	dirEntries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}

	var paths []string
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() || !isCorpusDocument(dirEntry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, dirEntry.Name()))
	}
	return paths, nil
}

func isCorpusDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// readDocument reads a YAML or JSON file, validates it against schema and
// decodes it into target.
func (s *FileStore) readDocument(path string, schema *jsonschema.Schema, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	jsonData := data
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		var generic any
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("%s: parsing yaml: %w", path, err)
		}
		if jsonData, err = json.Marshal(plainYAML(generic)); err != nil {
			return fmt.Errorf("%s: converting yaml: %w", path, err)
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(jsonData))
	decoder.UseNumber()
	var document any
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("%s: parsing json: %w", path, err)
	}
	if err := schema.Validate(document); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("%s: decoding: %w", path, err)
	}
	return nil
}

// plainYAML rewrites the timestamps yaml.v3 resolves from unquoted scalars
// such as 2026-02-14 back into the text the author wrote, so dates keep
// their calendar form when the tree is re-encoded as JSON.
func plainYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = plainYAML(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = plainYAML(item)
		}
		return v
	case time.Time:
		if v.Equal(time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, v.Location())) {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.RFC3339Nano)
	default:
		return value
	}
}

// Watch calls onChange after corpus documents change, coalescing bursts of
// events within debounce. It blocks until ctx is cancelled or the watcher fails.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range []string{s.dir, filepath.Join(s.dir, entriesDir)} {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isCorpusDocument(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching corpus: %w", err)
		}
	}
}
