package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventQueue_PumpRunsOneBatch(t *testing.T) {
	notified := 0
	q := newEventQueue(func() { notified++ }, 2, time.Second)

	var ran []int
	for i := 0; i < 5; i++ {
		i := i
		assert.True(t, q.post(func() { ran = append(ran, i) }))
	}
	assert.Equal(t, 5, notified)

	assert.Equal(t, time.Duration(0), q.pump(), "more work remains")
	assert.Equal(t, []int{0, 1}, ran)
	assert.Equal(t, time.Duration(0), q.pump())
	assert.Equal(t, time.Second, q.pump())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ran)

	assert.Equal(t, time.Second, q.pump(), "empty queue reports keepalive")
}

func TestEventQueue_EventPostingMore(t *testing.T) {
	q := newEventQueue(func() {}, DefaultPumpBatch, time.Second)
	q.post(func() { q.post(func() {}) })

	assert.Equal(t, time.Duration(0), q.pump(), "follow-up event is still queued")
	assert.Equal(t, time.Second, q.pump())
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue(func() {}, 0, time.Second)
	ran := false
	q.post(func() { ran = true })
	q.close()

	assert.False(t, q.post(func() {}))
	assert.Equal(t, 0, q.len())
	q.pump()
	assert.False(t, ran)
}
