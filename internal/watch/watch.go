// Package watch implements the Watcher (C9): an fsnotify-driven,
// debounced filesystem observer that coalesces rapid-fire events per path
// and, on flush, hands a batch of FileChangeEvent to the coordinator.
//
// The recursive-add / debounce-timer / pending-map structure is adapted
// from Watcher in the mind-palace CLI's internal/watch/watcher.go; this
// version additionally applies a fixed-capacity backpressure buffer (spec
// §4.9: drop the oldest unrelated event, keep the latest per path) and
// folds a delete-then-create pair within the debounce window into a
// rename rather than a plain modify.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/codegraph/internal/config"
)

// ChangeKind classifies a FileChangeEvent.
type ChangeKind string

const (
	Created  ChangeKind = "created"
	Modified ChangeKind = "modified"
	Deleted  ChangeKind = "deleted"
	Renamed  ChangeKind = "renamed"
)

// FileChangeEvent is one coalesced, debounced change (spec §4.9).
type FileChangeEvent struct {
	Kind      ChangeKind
	Path      string // relative to the watched root, forward-slashed
	Timestamp time.Time
}

// OnChange receives one debounce window's worth of coalesced events.
type OnChange func(events []FileChangeEvent)

// Watcher watches a directory tree and debounces fsnotify events into
// FileChangeEvent batches.
type Watcher struct {
	root     string
	cfg      config.WatchConfig
	onChange OnChange
	fsw      *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]FileChangeEvent
	order   []string // insertion order, for backpressure eviction
	timer   *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Watcher rooted at root. onChange is invoked from the
// watcher's own goroutine each time the debounce timer fires with a
// non-empty pending set.
func New(root string, cfg config.WatchConfig, onChange OnChange) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		root:     absRoot,
		cfg:      cfg,
		onChange: onChange,
		fsw:      fsw,
		pending:  make(map[string]FileChangeEvent),
		done:     make(chan struct{}),
	}, nil
}

// Start adds every directory under root to the watch list and processes
// events until ctx is cancelled or Stop is called. Start blocks.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("add watch paths: %w", err)
	}
	w.wg.Add(1)
	go w.loop(ctx)

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

// Stop halts the watcher and releases its fsnotify handle. Safe to call
// more than once.
func (w *Watcher) Stop() {
	select {
	case <-w.done:
		return
	default:
		close(w.done)
	}
	w.wg.Wait()
	_ = w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		if w.shouldIgnore(rel) {
			return filepath.SkipDir
		}
		_ = w.fsw.Add(path)
		return nil
	})
}

func (w *Watcher) shouldIgnore(relPath string) bool {
	slash := filepath.ToSlash(relPath)
	if slash == "." {
		return false
	}
	for _, segment := range strings.Split(slash, "/") {
		if segment != "" && w.cfg.IgnoreDirs[segment] {
			return true
		}
	}
	return false
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	if w.shouldIgnore(rel) {
		return
	}

	var kind ChangeKind
	switch {
	case event.Op&fsnotify.Create != 0:
		kind = Created
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
		}
	case event.Op&fsnotify.Write != 0:
		kind = Modified
	case event.Op&fsnotify.Remove != 0:
		kind = Deleted
	case event.Op&fsnotify.Rename != 0:
		kind = Deleted // OS rename surfaces as remove-at-old-path + create-at-new-path
	case event.Op&fsnotify.Chmod != 0:
		return
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	existing, exists := w.pending[rel]
	if exists && existing.Kind == Deleted && kind == Created {
		kind = Renamed
	}
	if exists && kind == Modified && (existing.Kind == Created || existing.Kind == Renamed) {
		kind = existing.Kind
	}
	if !exists {
		w.order = append(w.order, rel)
		w.evictIfOverCapLocked()
	}
	w.pending[rel] = FileChangeEvent{Kind: kind, Path: rel, Timestamp: time.Now()}

	if w.timer != nil {
		w.timer.Stop()
	}
	debounce := w.cfg.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	w.timer = time.AfterFunc(debounce, w.flush)
}

// evictIfOverCapLocked drops the oldest unrelated event once the pending
// set exceeds BackpressureCap, keeping the most recent event per path
// (spec §4.9). Caller must hold w.mu.
func (w *Watcher) evictIfOverCapLocked() {
	cap := w.cfg.BackpressureCap
	if cap <= 0 || len(w.order) <= cap {
		return
	}
	oldest := w.order[0]
	w.order = w.order[1:]
	delete(w.pending, oldest)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	events := make([]FileChangeEvent, 0, len(w.pending))
	for _, path := range w.order {
		if ev, ok := w.pending[path]; ok {
			events = append(events, ev)
		}
	}
	w.pending = make(map[string]FileChangeEvent)
	w.order = nil
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(events)
	}
}
