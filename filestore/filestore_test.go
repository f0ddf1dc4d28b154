package filestore_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/codec"
	"github.com/meikuraledutech/flowchart/filestore"
	"github.com/meikuraledutech/flowchart/storetest"
)

func TestFileStore_Contract(t *testing.T) {
	storetest.Run(t, filestore.NewStore(t.TempDir()))
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	want := *storetest.Document()

	for _, name := range []string{"doc.json", "doc.yaml", "doc.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, filestore.WriteFile(path, want))

			got, err := filestore.ReadFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("document mismatch (-want +got):\n%s", diff)
			}
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := filestore.ReadFile(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.False(t, codec.IsParseError(err))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"version":1,"nodes":[]}`), 0o644))
	_, err = filestore.ReadFile(bad)
	var perr *flowchart.ParseError
	assert.ErrorAs(t, err, &perr)

	_, err = filestore.ReadFile(filepath.Join(dir, "doc.txt"))
	assert.Error(t, err)
}

func TestStore_RejectsPathIDs(t *testing.T) {
	store := filestore.NewStore(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "a/b", `a\b`} {
		assert.Error(t, store.Save(ctx, id, storetest.Document()), id)
	}
}

func TestStore_ListIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	store := filestore.NewStore(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "b", storetest.Document()))
	require.NoError(t, store.Save(ctx, "a", storetest.Document()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	empty, err := filestore.NewStore(filepath.Join(dir, "nope")).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
