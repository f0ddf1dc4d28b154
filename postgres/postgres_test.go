package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flowchart"
	"github.com/meikuraledutech/flowchart/postgres"
	"github.com/meikuraledutech/flowchart/storetest"
)

func newStore(t *testing.T) *postgres.PGStore {
	t.Helper()
	url := os.Getenv("FLOWCHART_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLOWCHART_TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := postgres.New(pool)
	require.NoError(t, store.DropSchema(ctx))
	require.NoError(t, store.CreateSchema(ctx))
	t.Cleanup(func() { _ = store.DropSchema(context.Background()) })
	return store
}

func TestPGStore_Contract(t *testing.T) {
	storetest.Run(t, newStore(t))
}

func TestPGStore_DanglingConnectionRollsBack(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "doc", storetest.Document()))

	bad := storetest.Document()
	bad.Connections = append(bad.Connections, flowchart.DocumentConnection{ID: "z", SourceID: "p", TargetID: "ghost"})
	assert.Error(t, store.Save(ctx, "doc", bad))

	got, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, got.Connections, 3)
}
