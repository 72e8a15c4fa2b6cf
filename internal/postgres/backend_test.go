package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/propsync/pkg/types"
)

// openTestBackend connects to PROPSYNC_TEST_POSTGRES_DSN or skips.
func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	dsn := os.Getenv("PROPSYNC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PROPSYNC_TEST_POSTGRES_DSN not set")
	}
	b, err := Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	require.NoError(t, b.Migrate(context.Background()))
	return b
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), "", nil)
	assert.ErrorIs(t, err, types.ErrDSNEmpty)
}

func TestBackendRoundTrip(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	row, err := b.Insert(ctx, types.PropertiesTable, types.Record{
		"title":    "Integration loft",
		"features": []string{"pool"},
		"bedrooms": 2,
	})
	require.NoError(t, err)
	id := row.ID()
	require.NotEmpty(t, id)
	t.Cleanup(func() { b.Delete(context.Background(), types.PropertiesTable, id) })

	assert.Equal(t, []any{"pool"}, row["features"])
	assert.Equal(t, false, row["is_published"])

	updated, err := b.Update(ctx, types.PropertiesTable, id, types.Record{"title": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated["title"])
	assert.Equal(t, 2.0, updated["bedrooms"])

	rows, err := b.Select(ctx, types.PropertiesTable, types.Query{Eq: map[string]any{"id": id}})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = b.Update(ctx, types.PropertiesTable, "missing-"+id, types.Record{"title": "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, b.Delete(ctx, types.PropertiesTable, id))
	rows, err = b.Select(ctx, types.PropertiesTable, types.Query{Eq: map[string]any{"id": id}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
