package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kraklabs/codegraph/internal/config"
	"github.com/stretchr/testify/require"
)

func testEvent(path string, op fsnotify.Op) fsnotify.Event {
	return fsnotify.Event{Name: path, Op: op}
}

type collector struct {
	mu     sync.Mutex
	events []FileChangeEvent
}

func (c *collector) onChange(batch []FileChangeEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, batch...)
}

func (c *collector) snapshot() []FileChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FileChangeEvent, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_DetectsCreateAndModify(t *testing.T) {
	root := t.TempDir()
	c := &collector{}
	cfg := config.WatchConfig{Debounce: 50 * time.Millisecond, BackpressureCap: 100, IgnoreDirs: map[string]bool{".git": true}}

	w, err := New(root, cfg, c.onChange)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	path := filepath.Join(root, "foo.go")
	require.NoError(t, os.WriteFile(path, []byte("package foo\n"), 0o644))

	waitFor(t, func() bool { return len(c.snapshot()) > 0 })
	events := c.snapshot()
	require.Equal(t, "foo.go", events[0].Path)
	require.Equal(t, Created, events[0].Kind)
}

func TestWatcher_CoalescesDeleteThenCreateIntoRename(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bar.go")
	require.NoError(t, os.WriteFile(path, []byte("package bar\n"), 0o644))

	c := &collector{}
	cfg := config.WatchConfig{Debounce: 200 * time.Millisecond, BackpressureCap: 100, IgnoreDirs: map[string]bool{}}
	w, err := New(root, cfg, c.onChange)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.WriteFile(path, []byte("package bar\n\n// v2\n"), 0o644))

	waitFor(t, func() bool { return len(c.snapshot()) > 0 })
	events := c.snapshot()
	require.Equal(t, Renamed, events[len(events)-1].Kind)
}

func TestWatcher_IgnoresConfiguredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))

	c := &collector{}
	cfg := config.WatchConfig{Debounce: 30 * time.Millisecond, BackpressureCap: 100, IgnoreDirs: map[string]bool{"vendor": true}}
	w, err := New(root, cfg, c.onChange)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }()
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "ignored.go"), []byte("package vendor\n"), 0o644))
	time.Sleep(150 * time.Millisecond)

	require.Empty(t, c.snapshot())
}

func TestWatcher_BackpressureCapEvictsOldestUnrelatedEvent(t *testing.T) {
	root := t.TempDir()
	cfg := config.WatchConfig{Debounce: time.Hour, BackpressureCap: 2, IgnoreDirs: map[string]bool{}}
	w, err := New(root, cfg, nil)
	require.NoError(t, err)

	w.handle(testEvent(filepath.Join(root, "a.go"), fsnotify.Write))
	w.handle(testEvent(filepath.Join(root, "b.go"), fsnotify.Write))
	w.handle(testEvent(filepath.Join(root, "c.go"), fsnotify.Write))

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.pending, 2)
	_, hasA := w.pending["a.go"]
	require.False(t, hasA)
}
