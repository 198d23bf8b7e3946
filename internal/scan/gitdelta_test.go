package scan

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initGitRepo(t *testing.T, root string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("init", "-q")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
}

func commitAll(t *testing.T, root, message string) {
	t.Helper()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = root
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}
	run("add", "-A")
	run("commit", "-q", "-m", message)
}

func TestIsGitRepository(t *testing.T) {
	root := t.TempDir()
	require.False(t, IsGitRepository(root))

	initGitRepo(t, root)
	require.True(t, IsGitRepository(root))
}

func TestGitDiff_NotAGitRepo(t *testing.T) {
	root := t.TempDir()
	_, ok := GitDiff(root)
	require.False(t, ok)
}

func TestGitDiff_ClassifiesModifiedAddedAndDeleted(t *testing.T) {
	root := t.TempDir()
	initGitRepo(t, root)
	writeFile(t, filepath.Join(root, "keep.go"), "package main\n")
	writeFile(t, filepath.Join(root, "remove.go"), "package main\n")
	commitAll(t, root, "initial")

	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.go"), []byte("package main\n\nfunc f() {}\n"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "remove.go")))
	writeFile(t, filepath.Join(root, "new.go"), "package main\n")

	delta, ok := GitDiff(root)
	require.True(t, ok)
	require.Contains(t, delta.Modified, "keep.go")
	require.Contains(t, delta.Deleted, "remove.go")
	require.Contains(t, delta.Added, "new.go")
}
