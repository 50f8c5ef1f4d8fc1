package backend

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/spconsole/internal/logging"
)

func TestSSEProcessor(t *testing.T) {
	stream := strings.Join([]string{
		": keepalive comment",
		`data: {"type":"log","message":"cache warmed"}`,
		"",
		"data: not json",
		`data: {"type":"state","state":2}`,
		"event: ignored-field",
		"data: [DONE]",
		`data: {"type":"log","message":"after done"}`,
		"",
	}, "\n")

	var logBuf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.LevelDebug, Output: &logBuf})

	var got []serverEvent
	p := newSSEProcessor(strings.NewReader(stream), logger)
	require.NoError(t, p.process(context.Background(), func(ev serverEvent) { got = append(got, ev) }))

	require.Len(t, got, 2)
	assert.Equal(t, eventLog, got[0].Type)
	assert.Equal(t, "cache warmed", got[0].Message)
	assert.Equal(t, eventState, got[1].Type)
	require.NotNil(t, got[1].State)
	assert.Equal(t, 2, *got[1].State)
	assert.Equal(t, 2, p.count)
	assert.Contains(t, logBuf.String(), "Failed to parse event")
}

func TestSSEProcessor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newSSEProcessor(strings.NewReader("data: {}\n"), logging.DefaultLogger)
	assert.ErrorIs(t, p.process(ctx, func(serverEvent) {}), context.Canceled)
}
