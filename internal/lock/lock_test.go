package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquire_ExclusiveAgainstSecondCaller(t *testing.T) {
	dir := t.TempDir()

	h1, err := Acquire(dir)
	require.NoError(t, err)
	require.NotNil(t, h1)

	_, err = Acquire(dir)
	require.Error(t, err, "second acquire must fail while the first is live")

	require.NoError(t, h1.Release())
}

func TestAcquire_SucceedsAfterRelease(t *testing.T) {
	dir := t.TempDir()

	h1, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, h1.Release())

	h2, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, h2.Release())
}

func TestAcquire_ReclaimsStaleMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, markerName)
	// A PID that almost certainly doesn't correspond to a live process.
	require.NoError(t, os.WriteFile(path, []byte(`{"pid":999999,"hostname":"stale","acquired_at":"2020-01-01T00:00:00Z"}`), 0o600))

	h, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestAcquire_ReclaimsCorruptMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, markerName)
	require.NoError(t, os.WriteFile(path, []byte(`not json`), 0o600))

	h, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, h.Release())
}

func TestRelease_NilHandle(t *testing.T) {
	var h *Handle
	require.NoError(t, h.Release())
}
