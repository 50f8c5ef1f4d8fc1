// Package command holds the console's fixed command table and line dispatch.
package command

import (
	"fmt"

	"github.com/quocvuong92/spconsole/internal/tokenizer"
)

// Handler runs a command with its full argument vector (args[0] is the
// command name) and returns a status. Non-zero means the command failed.
type Handler func(args []string) int

// Descriptor describes one console command.
type Descriptor struct {
	Name    string
	Help    string
	Handler Handler
}

// UnknownCommandError is returned by Dispatch when no descriptor matches.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %s", e.Name)
}

// HandlerError reports a non-zero handler status. It is informational:
// the console keeps running.
type HandlerError struct {
	Name   string
	Status int
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s returned %d", e.Name, e.Status)
}

// Result describes a dispatched line.
type Result struct {
	Name       string
	Args       []string
	Status     int
	Dispatched bool
}

// Table is an immutable, ordered set of command descriptors. It is safe to
// read from any goroutine; it is only ever called from the main loop.
type Table struct {
	entries []Descriptor
}

// NewTable builds a table. Names should be unique; on duplicates the first
// descriptor wins.
func NewTable(descriptors ...Descriptor) *Table {
	entries := make([]Descriptor, len(descriptors))
	copy(entries, descriptors)
	return &Table{entries: entries}
}

// Lookup finds a descriptor by exact, case-sensitive name.
func (t *Table) Lookup(name string) (Descriptor, bool) {
	for _, d := range t.entries {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Descriptors returns the commands in table order.
func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.entries))
	copy(out, t.entries)
	return out
}

// Names returns the command names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, d := range t.entries {
		names[i] = d.Name
	}
	return names
}

// Dispatch tokenizes line and runs the matching handler.
//
// A tokenize failure or an unknown command returns the error without running
// anything. A blank line returns a zero Result and no error. When the handler
// returns a non-zero status, the Result is still filled in and the error is a
// *HandlerError.
func (t *Table) Dispatch(line string) (Result, error) {
	args, err := tokenizer.Tokenize(line)
	if err != nil {
		return Result{}, err
	}
	if len(args) == 0 {
		return Result{}, nil
	}

	d, ok := t.Lookup(args[0])
	if !ok {
		return Result{}, &UnknownCommandError{Name: args[0]}
	}
	if d.Handler == nil {
		return Result{Name: d.Name, Args: args}, nil
	}

	status := d.Handler(args)
	res := Result{Name: d.Name, Args: args, Status: status, Dispatched: true}
	if status != 0 {
		return res, &HandlerError{Name: d.Name, Status: status}
	}
	return res, nil
}
