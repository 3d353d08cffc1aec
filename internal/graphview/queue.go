package graphview

import (
	"sync"
	"time"
)

// deferDelay lets the engine settle between dependent updates; overlapping
// updates for the same key collapse to the last one scheduled.
const deferDelay = 25 * time.Millisecond

type updateQueue struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]func()
	timers  map[string]*time.Timer
	closed  bool
}

func newUpdateQueue(delay time.Duration) *updateQueue {
	return &updateQueue{
		delay:   delay,
		pending: make(map[string]func()),
		timers:  make(map[string]*time.Timer),
	}
}

// schedule queues fn under key, replacing any pending update for the same
// key. The last scheduled update wins.
func (q *updateQueue) schedule(key string, fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending[key] = fn
	if t, ok := q.timers[key]; ok {
		t.Stop()
	}
	q.timers[key] = time.AfterFunc(q.delay, func() { q.fire(key) })
}

func (q *updateQueue) fire(key string) {
	q.mu.Lock()
	fn := q.pending[key]
	delete(q.pending, key)
	delete(q.timers, key)
	q.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// flush runs every pending update immediately. Callers must not hold locks
// the updates themselves take.
func (q *updateQueue) flush() {
	q.mu.Lock()
	fns := make([]func(), 0, len(q.pending))
	for key, fn := range q.pending {
		if t, ok := q.timers[key]; ok {
			t.Stop()
		}
		fns = append(fns, fn)
	}
	q.pending = make(map[string]func())
	q.timers = make(map[string]*time.Timer)
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// close drops pending updates and rejects new ones.
func (q *updateQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for _, t := range q.timers {
		t.Stop()
	}
	q.pending = make(map[string]func())
	q.timers = make(map[string]*time.Timer)
}
