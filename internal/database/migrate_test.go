package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/leave-request-service/internal/database"
)

func TestSplitStatementsDropsCommentsAndBlanks(t *testing.T) {
	got := database.SplitStatements("-- header\nCREATE TABLE a (id INT);\n\n  ;\nCREATE TABLE b (id INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}, got)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))
	require.NoError(t, database.Migrate(ctx, db, database.DriverSQLite))

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)

	for _, table := range []string{"users", "leave_requests", "refresh_tokens"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestMigrateUnknownDriver(t *testing.T) {
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, database.Migrate(context.Background(), db, "postgres"))
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := database.OpenSQLite("  ")
	assert.Error(t, err)
}
