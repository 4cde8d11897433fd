package sqlutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "NULL", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?, ?, ?", Placeholders(3))
}

func TestInClause(t *testing.T) {
	ph, args := InClause([]string{"/a", "/b"})
	assert.Equal(t, "?, ?", ph)
	assert.Equal(t, []any{"/a", "/b"}, args)

	ph, args = InClause[int64](nil)
	assert.Equal(t, "NULL", ph)
	assert.Empty(t, args)
}

func TestQueryAll(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE t (name TEXT, n INTEGER); INSERT INTO t VALUES ('a', 1), ('b', 2), ('c', 3)`)
	require.NoError(t, err)

	ph, args := InClause([]string{"a", "c"})
	names, err := QueryAll(ctx, db, func(row RowScanner) (string, error) {
		var s string
		var n int
		err := row.Scan(&s, &n)
		return s, err
	}, `SELECT name, n FROM t WHERE name IN (`+ph+`) ORDER BY name`, args...)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, names)

	_, err = QueryAll(ctx, db, func(row RowScanner) (string, error) { return "", nil }, `SELECT * FROM missing`)
	assert.Error(t, err)
}

func TestConversions(t *testing.T) {
	assert.Equal(t, 1, Bool(true))
	assert.Equal(t, 0, Bool(false))
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), UnixTime(1704164645))
}
