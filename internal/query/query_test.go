package query

import (
	"context"
	"testing"

	"github.com/kraklabs/codegraph/internal/migrate"
	"github.com/kraklabs/codegraph/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	runner := migrate.NewRunner(st.DB(), migrate.CoreMigrations())
	require.NoError(t, runner.MigrateUp(context.Background(), 0))
	return st
}

func seedFile(t *testing.T, st *store.Store, id, relPath string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Execute(ctx,
		`INSERT INTO cg_file (id, absolute_path, relative_path, extension, content_hash, size_bytes, language, framework)
		 VALUES (:id, :abs, :rel, '.go', 'h', 100, 'go', '')`,
		map[string]any{"id": id, "abs": "/tmp/" + relPath, "rel": relPath}))
}

func seedFunction(t *testing.T, st *store.Store, id, fileID, name, signature string, complexity int, exported bool) {
	t.Helper()
	ctx := context.Background()
	isExported := 0
	if exported {
		isExported = 1
	}
	require.NoError(t, st.Execute(ctx,
		`INSERT INTO cg_function (id, name, file_id, start_line, end_line, signature, complexity, is_exported)
		 VALUES (:id, :name, :fid, 1, 10, :sig, :complexity, :exported)`,
		map[string]any{"id": id, "name": name, "fid": fileID, "sig": signature, "complexity": complexity, "exported": isExported}))
}

func TestListFiles_FiltersByPathSubstring(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFile(t, st, "f2", "pkg/b/beta.go")
	q := New(st)

	all, err := q.ListFiles(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := q.ListFiles(context.Background(), "alpha")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, "pkg/a/alpha.go", filtered[0].RelativePath)
}

func TestListFunctions_ScopesToFileWhenGiven(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFile(t, st, "f2", "pkg/b/beta.go")
	seedFunction(t, st, "fn1", "f1", "DoAlpha", "func DoAlpha()", 3, true)
	seedFunction(t, st, "fn2", "f2", "doBeta", "func doBeta()", 1, false)
	q := New(st)

	all, err := q.ListFunctions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	scoped, err := q.ListFunctions(context.Background(), "pkg/a/alpha.go")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "DoAlpha", scoped[0].Name)
	require.True(t, scoped[0].IsExported)
}

func TestGetEntity_ResolvesFunctionByID(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFunction(t, st, "fn1", "f1", "DoAlpha", "func DoAlpha()", 3, true)
	q := New(st)

	entity, err := q.GetEntity(context.Background(), "fn1")
	require.NoError(t, err)
	require.NotNil(t, entity)
	require.NotNil(t, entity.Function)
	require.Nil(t, entity.Class)
	require.Equal(t, "DoAlpha", entity.Function.Name)
}

func TestGetEntity_ReturnsNilForUnknownID(t *testing.T) {
	st := newTestStore(t)
	q := New(st)

	entity, err := q.GetEntity(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, entity)
}

func TestGetCallersAndCallees(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFunction(t, st, "caller", "f1", "Caller", "func Caller()", 1, true)
	seedFunction(t, st, "callee", "f1", "Callee", "func Callee()", 1, true)
	require.NoError(t, st.Execute(context.Background(),
		`INSERT INTO cg_calls (caller_id, callee_id, line, is_direct) VALUES ('caller', 'callee', 5, 1)`, nil))
	q := New(st)

	callers, err := q.GetCallers(context.Background(), "callee")
	require.NoError(t, err)
	require.Len(t, callers, 1)
	require.Equal(t, "Caller", callers[0].Name)

	callees, err := q.GetCallees(context.Background(), "caller")
	require.NoError(t, err)
	require.Len(t, callees, 1)
	require.Equal(t, "Callee", callees[0].Name)
}

func TestGetImportsAndGetImporters(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFile(t, st, "f2", "pkg/b/beta.go")
	require.NoError(t, st.Execute(context.Background(),
		`INSERT INTO cg_imports (from_file_id, import_path, alias, line) VALUES ('f1', 'pkg/b', 'b', 3)`, nil))

	q := New(st)
	imports, err := q.GetImports(context.Background(), "pkg/a/alpha.go")
	require.NoError(t, err)
	require.Len(t, imports, 1)
	require.Equal(t, "pkg/b", imports[0].ImportPath)

	importers, err := q.GetImporters(context.Background(), "pkg/b")
	require.NoError(t, err)
	require.Len(t, importers, 1)
	require.Equal(t, "pkg/a/alpha.go", importers[0].RelativePath)
}

func TestSearch_MatchesNameOrSignatureByDefault(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFunction(t, st, "fn1", "f1", "ParseConfig", "func ParseConfig(path string) (*Config, error)", 2, true)
	seedFunction(t, st, "fn2", "f1", "WriteFile", "func WriteFile(path string) error", 1, true)
	q := New(st)

	results, err := q.Search(context.Background(), "Config", "", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "ParseConfig", results[0].Name)
}

func TestMostComplex_OrdersDescendingAndRespectsLimit(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFunction(t, st, "fn1", "f1", "Simple", "func Simple()", 1, true)
	seedFunction(t, st, "fn2", "f1", "Complex", "func Complex()", 9, true)
	seedFunction(t, st, "fn3", "f1", "Medium", "func Medium()", 5, true)
	q := New(st)

	top, err := q.MostComplex(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "Complex", top[0].Name)
	require.Equal(t, "Medium", top[1].Name)
}

func TestOverviewStats_CountsEveryEntityKind(t *testing.T) {
	st := newTestStore(t)
	seedFile(t, st, "f1", "pkg/a/alpha.go")
	seedFunction(t, st, "fn1", "f1", "Do", "func Do()", 1, true)
	q := New(st)

	stats, err := q.OverviewStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.FileCount)
	require.Equal(t, 1, stats.FunctionCount)
	require.Equal(t, 0, stats.ClassCount)
}
