package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/meikuraledutech/flowchart"
)

// DefaultDir is used by NewStore when no directory is given.
const DefaultDir = ".flowchart"

// Store implements flowchart.Store as one JSON file per document in a
// directory.
type Store struct {
	Dir string
}

var _ flowchart.Store = (*Store)(nil)

// NewStore creates a store rooted at dir, DefaultDir if empty. The
// directory is created on first save.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir}
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("filestore: invalid document id %q", id)
	}
	return filepath.Join(s.Dir, id+".json"), nil
}

// Save writes doc to <dir>/<id>.json.
func (s *Store) Save(ctx context.Context, id string, doc *flowchart.Document) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create %s: %w", s.Dir, err)
	}
	return WriteFile(path, *doc)
}

// Load reads <dir>/<id>.json.
func (s *Store) Load(ctx context.Context, id string) (*flowchart.Document, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	doc, err := ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, flowchart.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes the file. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("filestore: delete %s: %w", id, err)
	}
	return nil
}

// List returns the ids of the documents in the directory, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: list: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	slices.Sort(ids)
	return ids, nil
}
