// Package backend defines the session collaborator the console drives and
// provides two implementations: an in-process simulation and a client for
// a REST service with a server-sent event stream.
//
// All completion callbacks (login, logout, search results, log messages)
// are queued by backend goroutines and run only from PumpEvents, which the
// console calls from its main loop. The single exception is
// Callbacks.NotifyMainThread, which backend goroutines call directly to ask
// for a pump.
package backend

import (
	"errors"
	"fmt"
	"time"
)

// MaxSearchResults caps the tracks returned by one search.
const MaxSearchResults = 20

// ConnectionState mirrors the backend's view of its connection.
type ConnectionState int

const (
	StateLoggedOut    ConnectionState = 0
	StateLoggedIn     ConnectionState = 1
	StateDisconnected ConnectionState = 2
	StateUndefined    ConnectionState = 3
	StateOffline      ConnectionState = 4
)

func (s ConnectionState) String() string {
	switch s {
	case StateLoggedOut:
		return "logged out"
	case StateLoggedIn:
		return "logged in"
	case StateDisconnected:
		return "disconnected"
	case StateUndefined:
		return "undefined"
	case StateOffline:
		return "offline"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Track is one search hit.
type Track struct {
	Name   string `json:"name" yaml:"name"`
	Artist string `json:"artist" yaml:"artist"`
}

// SearchResult is delivered to a SearchCallback. Err is non-nil when the
// search failed.
type SearchResult struct {
	ID      string
	Pattern string
	Tracks  []Track
	Err     error
}

// SearchCallback receives the outcome of one Search call.
type SearchCallback func(SearchResult)

// Callbacks connects a session to the console.
type Callbacks struct {
	// NotifyMainThread is called from backend goroutines whenever events
	// are queued. It must not block.
	NotifyMainThread func()
	// LoggedIn reports the outcome of a login request.
	LoggedIn func(err error)
	// LoggedOut reports that the session is no longer logged in.
	LoggedOut func()
	// ConnectionError reports a connection problem after login.
	ConnectionError func(err error)
	// LogMessage forwards a diagnostic line from the backend.
	LogMessage func(msg string)
}

func (c Callbacks) withDefaults() Callbacks {
	if c.LoggedIn == nil {
		c.LoggedIn = func(error) {}
	}
	if c.LoggedOut == nil {
		c.LoggedOut = func() {}
	}
	if c.ConnectionError == nil {
		c.ConnectionError = func(error) {}
	}
	if c.LogMessage == nil {
		c.LogMessage = func(string) {}
	}
	return c
}

// Session is the backend collaborator. Every method is called from the
// console's main loop goroutine.
type Session interface {
	// Login submits credentials. The outcome arrives via Callbacks.LoggedIn.
	Login(username, password string) error
	// Logout requests a logout; it is a no-op when not logged in. The
	// outcome arrives via Callbacks.LoggedOut.
	Logout() error
	IsLoggedIn() bool
	ConnectionState() ConnectionState
	// Search submits a query; done runs from PumpEvents.
	Search(pattern string, done SearchCallback) error
	// PumpEvents runs queued work and returns how long to wait before the
	// next call. Zero means call again immediately.
	PumpEvents() (time.Duration, error)
	// Release stops all backend goroutines. The session is unusable after.
	Release() error
}

// ErrorCode classifies a backend failure.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeBadCredentials
	CodeNotLoggedIn
	CodeAlreadyLoggedIn
	CodeNetwork
	CodeService
	CodeReleased
	CodeOther
)

// Error is a failure reported by the backend.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is maps codes onto the package sentinels so callers can use errors.Is.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrLoginFailed:
		return e.Code == CodeBadCredentials
	case ErrNotLoggedIn:
		return e.Code == CodeNotLoggedIn
	case ErrReleased:
		return e.Code == CodeReleased
	}
	return false
}

var (
	// ErrCreateSessionFailed is returned by constructors when no session
	// could be created.
	ErrCreateSessionFailed = errors.New("failed to create session")
	// ErrLoginFailed matches a rejected login.
	ErrLoginFailed = errors.New("login failed")
	// ErrNotLoggedIn matches calls that need a logged-in session.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrReleased matches calls made after Release.
	ErrReleased = errors.New("session released")
)

func errReleased() error {
	return &Error{Code: CodeReleased, Message: "session released"}
}
