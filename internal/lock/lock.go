// Package lock implements the Lock Manager (C1): an exclusive-access marker
// file that guards a store directory against concurrent indexing runs.
//
// The marker-file technique (os.OpenFile with O_CREATE|O_EXCL, os.Remove on
// release) follows the SourceMgr cache lock in the retrieved golang-dep
// source (sm.lock). That lock treats any existing marker as fatal; this one
// additionally checks whether the PID recorded in the marker is still alive
// (via github.com/mitchellh/go-ps) and, if not, treats the marker as stale
// and reclaims it, since a crashed indexer should not permanently wedge a
// project's store.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ps "github.com/mitchellh/go-ps"

	"github.com/kraklabs/codegraph/internal/cgerr"
)

const markerName = ".codegraph.lock"

// Handle represents a held lock. Release must be called exactly once.
type Handle struct {
	path string
}

type markerPayload struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Acquire creates an exclusive marker file under dir. If a marker already
// exists and its recorded PID is still running, ErrStoreLocked is returned.
// If the recorded process is no longer alive, the marker is treated as
// stale, removed, and acquisition retried once.
func Acquire(dir string) (*Handle, error) {
	path := filepath.Join(dir, markerName)
	h, err := tryAcquire(path)
	if err == nil {
		return h, nil
	}
	if !os.IsExist(err) {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrStoreLocked, err)
	}

	stale, checkErr := isStale(path)
	if checkErr != nil || !stale {
		return nil, fmt.Errorf("%w: marker %s held by a live process", cgerr.ErrStoreLocked, path)
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("%w: removing stale marker: %v", cgerr.ErrStoreLocked, err)
	}
	h, err = tryAcquire(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cgerr.ErrStoreLocked, err)
	}
	return h, nil
}

func tryAcquire(path string) (*Handle, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hostname, _ := os.Hostname()
	payload := markerPayload{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
	enc := json.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		os.Remove(path)
		return nil, err
	}
	return &Handle{path: path}, nil
}

func isStale(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	var payload markerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		// An unreadable marker can't be verified alive; treat as stale so a
		// corrupted lock file from a previous crash doesn't wedge forever.
		return true, nil
	}
	proc, err := ps.FindProcess(payload.PID)
	if err != nil {
		return false, err
	}
	return proc == nil, nil
}

// Release removes the marker file. Safe to call on an already-released
// handle.
func (h *Handle) Release() error {
	if h == nil {
		return nil
	}
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", cgerr.ErrStoreLocked, err)
	}
	return nil
}
