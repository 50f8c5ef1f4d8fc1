package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/quocvuong92/spconsole/internal/logging"
)

// Server event types carried on the /v1/events stream.
const (
	eventLog             = "log"
	eventConnectionError = "connection_error"
	eventLoggedOut       = "logged_out"
	eventState           = "state"
)

// serverEvent is one JSON payload on the event stream.
type serverEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	State   *int   `json:"state,omitempty"`
}

// sseProcessor reads a server-sent event stream.
type sseProcessor struct {
	reader *bufio.Reader
	logger *logging.Logger
	count  int
}

func newSSEProcessor(r io.Reader, logger *logging.Logger) *sseProcessor {
	return &sseProcessor{reader: bufio.NewReader(r), logger: logger}
}

// process calls onEvent for every well-formed data line until the stream
// ends, a [DONE] marker arrives, or ctx is cancelled.
func (p *sseProcessor) process(ctx context.Context, onEvent func(serverEvent)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := p.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		var ev serverEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			p.logger.Warn("Failed to parse event", logging.Fields{"error": err.Error(), "data": data})
			continue
		}
		p.count++
		onEvent(ev)
	}
}
