// Package notify multiplexes the console's two wake sources, "a command line
// is ready" and "the backend has pending events", onto the single goroutine
// that runs the main loop.
//
// Producers (the input goroutine and backend goroutines) raise flags; the
// main loop waits with a bounded timeout and receives a snapshot of both
// flags, which are cleared atomically under the same lock. Multiple raises
// before a Wait collapse into one delivery.
package notify

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Snapshot is the flag state observed by one Wait call.
type Snapshot struct {
	CmdReady    bool
	EventsReady bool
	Finished    bool
}

// TimedOut reports whether the wait ended without any signal.
func (s Snapshot) TimedOut() bool {
	return !s.CmdReady && !s.EventsReady && !s.Finished
}

// Hub is safe for concurrent raises from any goroutine. Wait must only be
// called from one goroutine.
type Hub struct {
	mu          sync.Mutex
	cmdReady    bool
	eventsReady bool
	finished    bool

	// wake holds at most one pending wakeup. A stale token only causes a
	// spurious wake; Wait re-checks the flags.
	wake  chan struct{}
	clock clockwork.Clock
}

// NewHub returns a hub using c for timeouts. A nil clock means real time.
func NewHub(c clockwork.Clock) *Hub {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Hub{
		wake:  make(chan struct{}, 1),
		clock: c,
	}
}

// RaiseCmdReady records that a command line is waiting.
func (h *Hub) RaiseCmdReady() {
	h.mu.Lock()
	h.cmdReady = true
	h.signalLocked()
	h.mu.Unlock()
}

// RaiseEventsReady records that the backend wants its event pump run. It is
// the function backend goroutines call from their notify callback.
func (h *Hub) RaiseEventsReady() {
	h.mu.Lock()
	h.eventsReady = true
	h.signalLocked()
	h.mu.Unlock()
}

// MarkFinished wakes the waiter during shutdown. The next Wait returns at
// once with Finished set; later waits block normally so the shutdown drain
// can still use the hub.
func (h *Hub) MarkFinished() {
	h.mu.Lock()
	h.finished = true
	h.signalLocked()
	h.mu.Unlock()
}

func (h *Hub) signalLocked() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until a flag is raised or timeout elapses, then returns the
// flags and clears them. A zero or negative timeout polls without blocking.
// A Snapshot with every flag false means the timeout expired.
func (h *Hub) Wait(timeout time.Duration) Snapshot {
	if timeout < 0 {
		timeout = 0
	}
	deadline := h.clock.Now().Add(timeout)

	var (
		timer   clockwork.Timer
		elapsed bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		h.mu.Lock()
		if h.cmdReady || h.eventsReady || h.finished {
			snap := Snapshot{CmdReady: h.cmdReady, EventsReady: h.eventsReady, Finished: h.finished}
			h.cmdReady, h.eventsReady, h.finished = false, false, false
			h.mu.Unlock()
			return snap
		}
		remaining := deadline.Sub(h.clock.Now())
		h.mu.Unlock()

		if remaining <= 0 || elapsed {
			return Snapshot{}
		}
		if timer == nil {
			timer = h.clock.NewTimer(remaining)
		}

		select {
		case <-h.wake:
		case <-timer.Chan():
			// Flags raised right at expiry are still delivered on the
			// next pass; the deadline check only runs when none are set.
			elapsed = true
		}
	}
}
