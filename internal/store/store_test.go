package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_InMemory(t *testing.T) {
	s := setupTestStore(t)
	require.NotNil(t, s.DB())
}

func TestExecuteAndQuery_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Execute(ctx, `CREATE TABLE t (id TEXT PRIMARY KEY, name TEXT)`, nil))
	require.NoError(t, s.Execute(ctx, `INSERT INTO t (id, name) VALUES (:id, :name)`, map[string]any{
		"id": "a", "name": "alpha",
	}))

	rows, err := s.Query(ctx, `SELECT id, name FROM t`, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "name"}, rows.Headers)
	require.Len(t, rows.Rows, 1)
	require.Equal(t, "a", rows.Rows[0][0])
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Execute(ctx, `CREATE TABLE t (id TEXT PRIMARY KEY)`, nil))

	err := s.WithTransaction(ctx, func(tx *Tx) error {
		if err := tx.Execute(ctx, `INSERT INTO t (id) VALUES ('x')`, nil); err != nil {
			return err
		}
		return errIntentional
	})
	require.Error(t, err)

	rows, err := s.Query(ctx, `SELECT id FROM t`, nil)
	require.NoError(t, err)
	require.Empty(t, rows.Rows)
}

func TestWithTransaction_CommitsOnSuccess(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Execute(ctx, `CREATE TABLE t (id TEXT PRIMARY KEY)`, nil))

	err := s.WithTransaction(ctx, func(tx *Tx) error {
		return tx.Execute(ctx, `INSERT INTO t (id) VALUES ('x')`, nil)
	})
	require.NoError(t, err)

	rows, err := s.Query(ctx, `SELECT id FROM t`, nil)
	require.NoError(t, err)
	require.Len(t, rows.Rows, 1)
}

func TestNearestNeighbors_CosineOrdering(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Execute(ctx, `CREATE TABLE cie_function_embedding (cie_function_embedding_id TEXT PRIMARY KEY, embedding BLOB)`, nil))
	require.NoError(t, s.CreateVectorIndex("cie_function_embedding", "embedding", 3, nil))

	insert := func(id string, v []float32) {
		require.NoError(t, s.Execute(ctx, `INSERT INTO cie_function_embedding (cie_function_embedding_id, embedding) VALUES (:id, :v)`, map[string]any{
			"id": id, "v": EncodeFloat32Blob(v),
		}))
	}
	insert("same", []float32{1, 0, 0})
	insert("orth", []float32{0, 1, 0})
	insert("opposite", []float32{-1, 0, 0})

	results, err := s.NearestNeighbors(ctx, "cie_function_embedding", "embedding", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "same", results[0].ID)
}

var errIntentional = &testErr{"intentional rollback"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
