package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitForTimer returns once the hub has a timer pending on fake.
func waitForTimer(t *testing.T, fake *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fake.BlockUntilContext(ctx, 1), "Wait never started its timer")
}

func TestHub_PollWithZeroTimeout(t *testing.T) {
	h := NewHub(clockwork.NewFakeClockAt(time.Unix(0, 0)))

	snap := h.Wait(0)
	assert.True(t, snap.TimedOut())

	snap = h.Wait(-time.Second)
	assert.True(t, snap.TimedOut(), "negative timeouts are treated as a poll")
}

func TestHub_CollapsesRepeatedSignals(t *testing.T) {
	h := NewHub(clockwork.NewFakeClockAt(time.Unix(0, 0)))

	for i := 0; i < 5; i++ {
		h.RaiseCmdReady()
		h.RaiseEventsReady()
	}

	snap := h.Wait(time.Hour)
	assert.True(t, snap.CmdReady)
	assert.True(t, snap.EventsReady)
	assert.False(t, snap.Finished)

	// Both flags were consumed by the first wait.
	snap = h.Wait(0)
	assert.True(t, snap.TimedOut())
}

func TestHub_IndependentFlags(t *testing.T) {
	h := NewHub(clockwork.NewFakeClockAt(time.Unix(0, 0)))

	h.RaiseEventsReady()
	snap := h.Wait(0)
	assert.False(t, snap.CmdReady)
	assert.True(t, snap.EventsReady)

	h.RaiseCmdReady()
	snap = h.Wait(0)
	assert.True(t, snap.CmdReady)
	assert.False(t, snap.EventsReady)
}

func TestHub_TimeoutExpires(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Unix(0, 0))
	h := NewHub(fake)

	result := make(chan Snapshot, 1)
	go func() { result <- h.Wait(5 * time.Second) }()

	waitForTimer(t, fake)
	fake.Advance(4 * time.Second)
	select {
	case <-result:
		t.Fatal("Wait returned before its timeout")
	case <-time.After(20 * time.Millisecond):
	}

	fake.Advance(time.Second)
	select {
	case snap := <-result:
		assert.True(t, snap.TimedOut())
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after its timeout")
	}
}

func TestHub_WakesOnRaiseFromAnotherGoroutine(t *testing.T) {
	h := NewHub(nil)

	result := make(chan Snapshot, 1)
	go func() { result <- h.Wait(time.Minute) }()

	go h.RaiseEventsReady()

	select {
	case snap := <-result:
		assert.True(t, snap.EventsReady)
	case <-time.After(time.Second):
		t.Fatal("Wait was not woken by RaiseEventsReady")
	}
}

func TestHub_WokenWaitStopsItsTimer(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Unix(0, 0))
	h := NewHub(fake)

	result := make(chan Snapshot, 1)
	go func() { result <- h.Wait(time.Minute) }()
	waitForTimer(t, fake)

	h.RaiseCmdReady()
	require.True(t, (<-result).CmdReady)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, fake.BlockUntilContext(ctx, 0), "timer still registered after wake")
}

func TestHub_StaleWakeIsSpurious(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Unix(0, 0))
	h := NewHub(fake)

	// The flag is consumed by a poll, leaving a wake token behind.
	h.RaiseCmdReady()
	require.True(t, h.Wait(0).CmdReady)

	result := make(chan Snapshot, 1)
	go func() { result <- h.Wait(time.Second) }()

	waitForTimer(t, fake)
	select {
	case <-result:
		t.Fatal("stale wake token ended the wait")
	case <-time.After(20 * time.Millisecond):
	}

	fake.Advance(time.Second)
	assert.True(t, (<-result).TimedOut())
}

func TestHub_MarkFinishedIsEdgeTriggered(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Unix(0, 0))
	h := NewHub(fake)

	h.MarkFinished()
	snap := h.Wait(time.Hour)
	assert.True(t, snap.Finished)
	assert.False(t, snap.TimedOut())

	// A later wait blocks for its full timeout.
	result := make(chan Snapshot, 1)
	go func() { result <- h.Wait(time.Second) }()
	waitForTimer(t, fake)
	fake.Advance(time.Second)
	assert.True(t, (<-result).TimedOut())
}

// Every raise issued before a wait is observed by exactly one wait.
func TestHub_NoLostOrDuplicateDelivery(t *testing.T) {
	h := NewHub(nil)
	const rounds = 200

	var wg sync.WaitGroup
	ack := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			h.RaiseCmdReady()
			h.RaiseCmdReady()
			<-ack
		}
	}()

	delivered := 0
	for delivered < rounds {
		snap := h.Wait(time.Second)
		require.False(t, snap.TimedOut(), "lost wakeup after %d deliveries", delivered)
		if snap.CmdReady {
			delivered++
			assert.False(t, h.Wait(0).CmdReady, "duplicate delivery")
			ack <- struct{}{}
		}
	}
	wg.Wait()
}
