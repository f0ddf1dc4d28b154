// Package filestore reads and writes flowchart documents on the local
// filesystem. The encoding is chosen by file extension.
//
// I/O failures are returned wrapped (errors.Is(err, fs.ErrNotExist) still
// holds) and are never reported as a *flowchart.ParseError.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
)

// ReadFile decodes the document at path.
func ReadFile(path string) (flowchart.Document, error) {
	f, err := codec.FormatFromPath(path)
	if err != nil {
		return flowchart.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return flowchart.Document{}, fmt.Errorf("filestore: read %s: %w", path, err)
	}
	return codec.Decode(data, f)
}

// WriteFile encodes doc and replaces path atomically: the data goes to a
// temporary file in the same directory which is then renamed over path.
func WriteFile(path string, doc flowchart.Document) error {
	f, err := codec.FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := codec.Encode(doc, f)
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("filestore: write %s: %w", path, err)
	}
	return nil
}
