package migrate

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func stepMigrations() []Migration {
	return []Migration{
		{
			Version: 1, Name: "first",
			Up:   func(tx *sql.Tx) error { _, err := tx.Exec(`CREATE TABLE a (id TEXT)`); return err },
			Down: func(tx *sql.Tx) error { _, err := tx.Exec(`DROP TABLE a`); return err },
		},
		{
			Version: 2, Name: "second",
			Up:   func(tx *sql.Tx) error { _, err := tx.Exec(`CREATE TABLE b (id TEXT)`); return err },
			Down: func(tx *sql.Tx) error { _, err := tx.Exec(`DROP TABLE b`); return err },
		},
	}
}

func TestRunner_MigrateUp_AppliesAllByDefault(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db, stepMigrations())

	require.NoError(t, r.MigrateUp(ctx, 0))

	version, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, version)

	_, err = db.Exec(`INSERT INTO a (id) VALUES ('x')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO b (id) VALUES ('y')`)
	require.NoError(t, err)
}

func TestRunner_MigrateUp_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db, stepMigrations())

	require.NoError(t, r.MigrateUp(ctx, 0))
	require.NoError(t, r.MigrateUp(ctx, 0))

	version, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, version)
}

func TestRunner_MigrateUp_PartialTarget(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db, stepMigrations())

	require.NoError(t, r.MigrateUp(ctx, 1))

	version, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	_, err = db.Exec(`SELECT * FROM b`)
	require.Error(t, err, "migration 2 must not have run")
}

func TestRunner_MigrateDown_ReversesInOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db, stepMigrations())
	require.NoError(t, r.MigrateUp(ctx, 0))

	require.NoError(t, r.MigrateDown(ctx, 0))

	version, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, version)

	_, err = db.Exec(`SELECT * FROM a`)
	require.Error(t, err)
}

func TestRunner_FailedStepLeavesPriorStepsCommitted(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	migrations := stepMigrations()
	migrations[1].Up = func(tx *sql.Tx) error {
		if _, err := tx.Exec(`CREATE TABLE b (id TEXT)`); err != nil {
			return err
		}
		_, err := tx.Exec(`this is not valid sql`)
		return err
	}
	r := NewRunner(db, migrations)

	err := r.MigrateUp(ctx, 0)
	require.Error(t, err)

	version, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, version, "step 1 commits even though step 2 fails")

	_, err = db.Exec(`SELECT * FROM b`)
	require.Error(t, err, "step 2's partial DDL must have rolled back")
}

func TestRunner_MigrateUp_RejectsTargetBelowCurrentWhenFurtherMigrationsExist(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db, stepMigrations())
	require.NoError(t, r.MigrateUp(ctx, 2))

	err := r.MigrateUp(ctx, 1)
	require.Error(t, err)
}

func TestCoreMigrations_ApplyCleanly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db, CoreMigrations())

	require.NoError(t, r.MigrateUp(ctx, 0))

	version, err := r.CurrentVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, version)

	for _, table := range []string{"cg_file", "cg_function", "cg_calls", "cg_ghost_node", "cg_lock_marker"} {
		_, err := db.Exec("SELECT * FROM " + table)
		require.NoError(t, err, "table %s should exist", table)
	}
}
