package backend

import (
	"sync"
	"time"
)

// DefaultPumpBatch is the number of queued events run per PumpEvents call.
const DefaultPumpBatch = 8

// eventQueue holds completions posted by backend goroutines until the main
// loop pumps them.
type eventQueue struct {
	mu     sync.Mutex
	events []func()
	closed bool

	notify    func()
	batch     int
	keepalive time.Duration
}

func newEventQueue(notify func(), batch int, keepalive time.Duration) *eventQueue {
	if batch <= 0 {
		batch = DefaultPumpBatch
	}
	return &eventQueue{notify: notify, batch: batch, keepalive: keepalive}
}

// post queues ev and wakes the main loop. It reports false once the queue
// has been closed.
func (q *eventQueue) post(ev func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.events = append(q.events, ev)
	q.mu.Unlock()

	q.notify()
	return true
}

// pump runs up to one batch of events outside the lock and returns zero
// while more are queued, the keepalive interval otherwise.
func (q *eventQueue) pump() time.Duration {
	q.mu.Lock()
	n := len(q.events)
	if n > q.batch {
		n = q.batch
	}
	run := make([]func(), n)
	copy(run, q.events[:n])
	q.events = q.events[n:]
	q.mu.Unlock()

	for _, ev := range run {
		ev()
	}

	// The batch itself may have posted more.
	if q.len() > 0 {
		return 0
	}
	return q.keepalive
}

// close drops anything still queued and rejects later posts.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.events = nil
	q.mu.Unlock()
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
