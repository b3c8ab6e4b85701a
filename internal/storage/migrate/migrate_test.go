package migrate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(query).Scan(&n))
	return n
}

func TestApplyRecordsMigrations(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_items.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id INTEGER PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
		"002_tags.sql":  &fstest.MapFile{Data: []byte("CREATE TABLE tags(id INTEGER PRIMARY KEY);")},
		"README.md":     &fstest.MapFile{Data: []byte("ignored")},
	}

	applied, err := Apply(context.Background(), db, SQLite, fsys, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_items.sql", "002_tags.sql"}, applied)
	assert.Equal(t, 2, countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='items'"))
}

func TestApplySkipsAppliedFiles(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_items.sql": &fstest.MapFile{Data: []byte("CREATE TABLE items(id INTEGER PRIMARY KEY);")},
	}

	_, err := Apply(context.Background(), db, SQLite, fsys, ".")
	require.NoError(t, err)
	applied, err := Apply(context.Background(), db, SQLite, fsys, ".")
	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.Equal(t, 1, countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"))
}

func TestApplyDoesNotRecordFailedMigration(t *testing.T) {
	db := openTestDB(t)
	fsys := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("CREATE TABLE broken(")},
	}

	_, err := Apply(context.Background(), db, SQLite, fsys, "")
	require.Error(t, err)
	assert.Equal(t, 0, countRows(t, db, "SELECT COUNT(*) FROM schema_migrations"))
}

func TestApplyRequiresDB(t *testing.T) {
	_, err := Apply(context.Background(), nil, SQLite, fstest.MapFS{}, "")
	assert.Error(t, err)
}

func TestUpSection(t *testing.T) {
	content := "-- header\n-- +migrate Up\nCREATE TABLE a(id INT);\n-- +migrate Down\nDROP TABLE a;"
	assert.Equal(t, "\nCREATE TABLE a(id INT);\n", UpSection(content))
	assert.Equal(t, "SELECT 1;", UpSection("SELECT 1;"))
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ?, b = '?' WHERE id = ?"
	assert.Equal(t, "UPDATE t SET a = $1, b = '?' WHERE id = $2", Postgres.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
}
