// Package snapshot guards brain fetches against supersession: a response
// that lands after a newer request was issued, or after the loader was
// invalidated, is discarded rather than applied.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"brainzzz/internal/model"
)

// ErrStale marks a fetch result that was superseded before it resolved.
var ErrStale = errors.New("superseded by a newer load")

// Fetcher supplies validated snapshots; backend.Client satisfies it.
type Fetcher interface {
	Snapshot(ctx context.Context, id int) (*model.BrainSnapshot, error)
}

// Loader issues one fetch per distinct requested id and holds the latest
// accepted snapshot. Failed loads are not retried; callers trigger the
// retry explicitly.
type Loader struct {
	fetcher Fetcher

	mu        sync.Mutex
	gen       uint64
	current   *model.BrainSnapshot
	currentID int
}

func NewLoader(fetcher Fetcher) (*Loader, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	return &Loader{fetcher: fetcher}, nil
}

// Load returns the snapshot for id. A repeated request for the id already
// held is served from the held snapshot without a fetch; use Reload to
// force one. A load that resolves after a newer Load, Reload or Invalidate
// returns ErrStale and leaves the held snapshot untouched.
func (l *Loader) Load(ctx context.Context, id int) (*model.BrainSnapshot, error) {
	if id <= 0 {
		return nil, fmt.Errorf("brain id must be positive, got %d", id)
	}

	l.mu.Lock()
	if l.current != nil && l.currentID == id {
		snap := l.current
		l.mu.Unlock()
		return snap, nil
	}
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	return l.fetch(ctx, id, gen)
}

// Reload refetches the currently held brain, bypassing the held snapshot.
func (l *Loader) Reload(ctx context.Context) (*model.BrainSnapshot, error) {
	l.mu.Lock()
	if l.current == nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("nothing loaded yet")
	}
	id := l.currentID
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	return l.fetch(ctx, id, gen)
}

func (l *Loader) fetch(ctx context.Context, id int, gen uint64) (*model.BrainSnapshot, error) {
	snap, err := l.fetcher.Snapshot(ctx, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return nil, fmt.Errorf("brain %d: %w", id, ErrStale)
	}
	if err != nil {
		return nil, fmt.Errorf("load brain %d: %w", id, err)
	}
	l.current = snap
	l.currentID = id
	return snap, nil
}

// Current returns the held snapshot, if any.
func (l *Loader) Current() (*model.BrainSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil {
		return nil, false
	}
	return l.current, true
}

// Invalidate drops the held snapshot and marks every in-flight fetch
// stale. Used on unmount so late responses cannot apply.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.current = nil
	l.currentID = 0
}

// AllDisabled reports whether the snapshot has connections and every one
// of them is disabled.
func AllDisabled(snap *model.BrainSnapshot) bool {
	if snap == nil || len(snap.Connections) == 0 {
		return false
	}
	for _, c := range snap.Connections {
		if c.Enabled {
			return false
		}
	}
	return true
}
