// Package input owns the goroutine that reads operator lines.
//
// The goroutine shows a prompt only while the prompt gate is open. The gate
// is closed as soon as a line has been read and is reopened by the main loop
// (Arm) once that line has been dispatched, so at most one line is ever in
// flight. Lines are handed over through a channel with capacity one.
package input

import (
	"errors"
	"io"
	"sync"
)

// DefaultPrefix is the console prompt.
const DefaultPrefix = ">> "

// QuitLine is delivered in place of a line when the input stream ends.
const QuitLine = "quit"

// Line is one read handed to the main loop. Err is set, and Text empty, when
// the reader rejected the line (see ErrLineTooLong); the stream stays open.
type Line struct {
	Text string
	Err  error
}

// State is the input goroutine's position in its cycle.
type State int

const (
	// StateIdle waits for the prompt gate.
	StateIdle State = iota
	// StatePrompting is blocked in the line reader.
	StatePrompting
	// StateLineReady has handed a line to the main loop.
	StateLineReady
	// StateExiting has observed the finished flag.
	StateExiting
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePrompting:
		return "prompting"
	case StateLineReady:
		return "line-ready"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// Loop is the input goroutine and its prompt gate.
type Loop struct {
	reader LineReader
	notify func()
	prefix string

	mu        sync.Mutex
	cond      *sync.Cond
	mayPrompt bool
	finished  bool
	state     State

	lines chan Line
}

// NewLoop creates an input loop. notify is called after every line is handed
// over; it is normally the hub's RaiseCmdReady. The gate starts open.
func NewLoop(reader LineReader, notify func()) *Loop {
	l := &Loop{
		reader:    reader,
		notify:    notify,
		prefix:    DefaultPrefix,
		mayPrompt: true,
		lines:     make(chan Line, 1),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// SetPrefix changes the prompt shown for subsequent reads.
func (l *Loop) SetPrefix(prefix string) {
	l.mu.Lock()
	l.prefix = prefix
	l.mu.Unlock()
}

// Run reads lines until Finish is called. It must run on its own goroutine.
//
// A rejected line is delivered with its error and reading continues. Any
// other reader failure delivers QuitLine and no further reads are attempted.
// Run returns the read error once Finish has been observed; io.EOF is a
// normal end of input and yields nil.
func (l *Loop) Run() error {
	var (
		readErr error
		closed  bool
	)
	for {
		l.mu.Lock()
		for !l.mayPrompt && !l.finished {
			l.cond.Wait()
		}
		if l.finished {
			l.state = StateExiting
			l.mu.Unlock()
			return readErr
		}
		if closed {
			l.mayPrompt = false
			l.mu.Unlock()
			continue
		}
		l.state = StatePrompting
		prefix := l.prefix
		l.mu.Unlock()

		text, err := l.reader.ReadLine(prefix)
		line := Line{Text: text}
		switch {
		case err == nil:
		case errors.Is(err, ErrLineTooLong):
			line = Line{Err: err}
		default:
			closed = true
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			line = Line{Text: QuitLine}
		}

		l.mu.Lock()
		l.mayPrompt = false
		l.state = StateLineReady
		l.mu.Unlock()

		// Never blocks: the gate guarantees the slot is empty.
		l.lines <- line
		l.notify()
	}
}

// Take returns the pending line, if any. Only the main loop calls it.
func (l *Loop) Take() (Line, bool) {
	select {
	case line := <-l.lines:
		l.mu.Lock()
		if l.state == StateLineReady {
			l.state = StateIdle
		}
		l.mu.Unlock()
		return line, true
	default:
		return Line{}, false
	}
}

// Arm reopens the prompt gate after the previous line has been dispatched.
func (l *Loop) Arm() {
	l.mu.Lock()
	l.mayPrompt = true
	l.cond.Signal()
	l.mu.Unlock()
}

// Finish tells the goroutine to exit instead of prompting again. A read
// already in progress cannot be interrupted.
func (l *Loop) Finish() {
	l.mu.Lock()
	l.finished = true
	l.cond.Broadcast()
	l.mu.Unlock()
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
