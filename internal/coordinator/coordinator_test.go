package coordinator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kraklabs/codegraph/internal/store"
	"github.com/kraklabs/codegraph/internal/uce"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCoordinator_Run_EndToEnd(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "helper/helper.go", "package helper\n\nfunc Do() {\n}\n")
	writeSource(t, root, "main.go", "package main\n\nfunc main() {\n\tDo()\n}\n")

	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	c := New(st, uce.NewGoParser())
	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx))

	var phases []Phase
	result, err := c.Run(ctx, Options{
		RootDir:      root,
		IncludeGlobs: []string{"**/*.go"},
		OnProgress:   func(p Phase, current, total int) { phases = append(phases, p) },
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.FilesScanned)
	require.Equal(t, 2, result.FilesIndexed)
	require.NotEmpty(t, phases)

	rows, err := st.Query(ctx, `SELECT COUNT(*) FROM cg_function`, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), rows.Rows[0][0])
}

func TestCoordinator_Run_SecondRunSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "helper/helper.go", "package helper\n\nfunc Do() {\n}\n")
	writeSource(t, root, "main.go", "package main\n\nfunc main() {\n\thelper.Do()\n}\n")

	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	c := New(st, uce.NewGoParser())
	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx))

	opts := Options{RootDir: root, IncludeGlobs: []string{"**/*.go"}}
	first, err := c.Run(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 2, first.FilesIndexed)
	require.Equal(t, 0, first.FilesSkipped)

	second, err := c.Run(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 0, second.FilesIndexed)
	require.Equal(t, 2, second.FilesSkipped)

	rows, err := st.Query(ctx, `SELECT COUNT(*) FROM cg_function`, nil)
	require.NoError(t, err)
	require.Equal(t, int64(2), rows.Rows[0][0])
}

func TestCoordinator_Run_RemovedFileCascadesDeletes(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "util/util.go", "package util\n\nfunc Helper() {\n}\n")
	writeSource(t, root, "main.go", "package main\n\nfunc main() {\n\tutil.Helper()\n}\n")

	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	c := New(st, uce.NewGoParser())
	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx))

	opts := Options{RootDir: root, IncludeGlobs: []string{"**/*.go"}}
	_, err = c.Run(ctx, opts)
	require.NoError(t, err)

	rows, err := st.Query(ctx, `SELECT COUNT(*) FROM cg_function WHERE file_id = :id`, map[string]any{"id": "file:util/util.go"})
	require.NoError(t, err)
	require.Equal(t, int64(1), rows.Rows[0][0])

	require.NoError(t, os.Remove(filepath.Join(root, "util", "util.go")))

	second, err := c.Run(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 1, second.FilesDeleted)

	rows, err = st.Query(ctx, `SELECT COUNT(*) FROM cg_function WHERE file_id = :id`, map[string]any{"id": "file:util/util.go"})
	require.NoError(t, err)
	require.Equal(t, int64(0), rows.Rows[0][0])

	rows, err = st.Query(ctx, `SELECT COUNT(*) FROM cg_file WHERE id = :id`, map[string]any{"id": "file:util/util.go"})
	require.NoError(t, err)
	require.Equal(t, int64(0), rows.Rows[0][0])
}

func TestCoordinator_Run_EmptyProjectSucceeds(t *testing.T) {
	root := t.TempDir()
	st, err := store.Open(store.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	c := New(st, uce.NewGoParser())
	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx))

	result, err := c.Run(ctx, Options{RootDir: root, IncludeGlobs: []string{"**/*.go"}})
	require.NoError(t, err)
	require.Equal(t, 0, result.FilesScanned)
}
