// Package store implements the Graph Database component (C2): a
// single-writer, multi-reader embedded relational store exposing a
// parameterized query/execute/transaction contract, plus vector-index
// hooks for embedding similarity search.
//
// The teacher's own contract (pkg/cozodb, pkg/storage) is backed by a
// CGO-linked CozoDB native library vendored outside this repo. That
// library is not reproducible from the retrieved pack, so this package
// keeps the contract shape (script+params in, headers+rows out,
// single-writer discipline) but is backed by modernc.org/sqlite, a pure-Go
// engine already validated elsewhere in the pack.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/codegraph/internal/cgerr"
)

// NamedRows is a materialized result set: headers plus row values. The
// core query contract (spec §4.1) has no streaming API, so every query
// fully materializes before returning.
type NamedRows struct {
	Headers []string
	Rows    [][]any
}

// Store is the embedded graph database. Exactly one goroutine should drive
// writes (the goroutine running the coordinator's Run); any number of goroutines may
// issue reads concurrently, enforced here with a RWMutex.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool

	vectorIndexesMu sync.Mutex
	vectorIndexes   map[string]vectorIndexDef
}

type vectorIndexDef struct {
	Relation   string
	Column     string
	Dimensions int
}

// Config configures the embedded store.
type Config struct {
	// Path is the sqlite database file. Use ":memory:" for tests.
	Path string
}

// Open opens (creating if absent) the embedded store at cfg.Path.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", cgerr.ErrStoreUnavailable, err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline; sqlite serializes anyway
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: set wal mode: %v", cgerr.ErrStoreUnavailable, err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enable foreign keys: %v", cgerr.ErrStoreUnavailable, err)
	}
	return &Store{db: db, vectorIndexes: make(map[string]vectorIndexDef)}, nil
}

// DB exposes the underlying *sql.DB for migrate.Runner. Prefer Query/
// Execute/WithTransaction for anything beyond schema management.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Query runs a read-only statement and materializes the result. It is
// rejected (ErrQueryError) if called with a non-SELECT statement.
func (s *Store) Query(ctx context.Context, script string, params map[string]any) (*NamedRows, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, cgerr.ErrStoreUnavailable
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(script)), "SELECT") {
		return nil, fmt.Errorf("%w: Query accepts only SELECT statements", cgerr.ErrQueryError)
	}
	rows, err := s.db.QueryContext(ctx, script, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	defer rows.Close()
	return materialize(rows)
}

// Execute runs a write statement outside any explicit transaction,
// committing immediately.
func (s *Store) Execute(ctx context.Context, script string, params map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cgerr.ErrStoreUnavailable
	}
	if _, err := s.db.ExecContext(ctx, script, namedArgs(params)...); err != nil {
		return fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	return nil
}

// Tx accumulates statements issued against it and commits as a single
// atomic block when the function passed to WithTransaction returns nil.
// Transactions are flat: Tx does not support nesting.
type Tx struct {
	tx *sql.Tx
}

// Query runs a read step inside the transaction.
func (t *Tx) Query(ctx context.Context, script string, params map[string]any) (*NamedRows, error) {
	rows, err := t.tx.QueryContext(ctx, script, namedArgs(params)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	defer rows.Close()
	return materialize(rows)
}

// Execute runs a write step inside the transaction; not visible to other
// readers until the enclosing WithTransaction commits.
func (t *Tx) Execute(ctx context.Context, script string, params map[string]any) error {
	if _, err := t.tx.ExecContext(ctx, script, namedArgs(params)...); err != nil {
		return fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	return nil
}

// WithTransaction accumulates statements issued via the passed Tx and
// commits them as one atomic block. Any error returned by fn discards the
// accumulated statements (rollback). This is the core store's only writer
// entry point the coordinator should use for multi-statement file
// rewrites (spec §3.4: delete+insert must be atomic).
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cgerr.ErrStoreUnavailable
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", cgerr.ErrStoreBusy, err)
	}
	if err := fn(&Tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", cgerr.ErrStoreBusy, err)
	}
	return nil
}

func namedArgs(params map[string]any) []any {
	if len(params) == 0 {
		return nil
	}
	args := make([]any, 0, len(params))
	for k, v := range params {
		args = append(args, sql.Named(k, v))
	}
	return args
}

func materialize(rows *sql.Rows) (*NamedRows, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	result := &NamedRows{Headers: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
		}
		result.Rows = append(result.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	return result, nil
}

// CreateVectorIndex registers a brute-force cosine-similarity index over a
// BLOB-stored float32 column. The teacher's engine uses a native HNSW
// vector type; no pure-Go HNSW implementation exists in the retrieved pack
// compatible with a CGO-free sqlite driver, so the fallback is an
// explicit, documented scan (see DESIGN.md) rather than a fabricated
// binding to one.
func (s *Store) CreateVectorIndex(relation, column string, dimensions int, _ map[string]any) error {
	s.vectorIndexesMu.Lock()
	defer s.vectorIndexesMu.Unlock()
	name := relation + "." + column
	s.vectorIndexes[name] = vectorIndexDef{Relation: relation, Column: column, Dimensions: dimensions}
	return nil
}

// RemoveVectorIndex unregisters a previously created vector index.
func (s *Store) RemoveVectorIndex(relation, column string) error {
	s.vectorIndexesMu.Lock()
	defer s.vectorIndexesMu.Unlock()
	delete(s.vectorIndexes, relation+"."+column)
	return nil
}

// NearestNeighbors performs a brute-force cosine-similarity scan over the
// registered vector index, returning up to k (id, score) pairs ordered by
// descending similarity. This is the documented fallback for HNSW.
func (s *Store) NearestNeighbors(ctx context.Context, relation, column string, query []float32, k int) ([]Neighbor, error) {
	s.vectorIndexesMu.Lock()
	_, ok := s.vectorIndexes[relation+"."+column]
	s.vectorIndexesMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: no vector index registered for %s.%s", cgerr.ErrQueryError, relation, column)
	}

	idCol := relation + "_id"
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s, %s FROM %s`, idCol, column, relation))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	defer rows.Close()

	var results []Neighbor
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
		}
		vec := DecodeFloat32Blob(blob)
		if len(vec) != len(query) {
			continue
		}
		results = append(results, Neighbor{ID: id, Score: cosineSimilarity(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrQueryError, err)
	}
	sortNeighborsDesc(results)
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Neighbor is one result of a nearest-neighbor vector search.
type Neighbor struct {
	ID    string
	Score float32
}

func sortNeighborsDesc(ns []Neighbor) {
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && ns[j].Score > ns[j-1].Score; j-- {
			ns[j], ns[j-1] = ns[j-1], ns[j]
		}
	}
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
