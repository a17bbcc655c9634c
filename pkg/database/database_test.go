package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_RunSQLite(t *testing.T) {
	db, err := New(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "joyce.db")})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, NewMigrator(db).Run(ctx))
	// migrations are idempotent
	require.NoError(t, NewMigrator(db).Run(ctx))

	exists, err := db.TableExists(ctx, "series_points")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INT);\n\n CREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, stmts)
}

func TestWithTransaction_Rollback(t *testing.T) {
	db, err := New(Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "tx.db")})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE t (v INTEGER)`)
	require.NoError(t, err)

	err = db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO t (v) VALUES (1)`); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&count))
	assert.Zero(t, count)
}
