// Package console runs the interactive session: the main loop that
// dispatches operator commands and pumps backend events, and the shutdown
// sequence that logs out, drains and releases the backend.
//
// A Console is the single owner of everything the session shares: the
// notification hub, the input goroutine, the command table and the backend
// session. It is created once by the command layer and torn down at the end
// of Run.
package console

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/quocvuong92/spconsole/internal/audio"
	"github.com/quocvuong92/spconsole/internal/auth"
	"github.com/quocvuong92/spconsole/internal/backend"
	"github.com/quocvuong92/spconsole/internal/command"
	"github.com/quocvuong92/spconsole/internal/config"
	"github.com/quocvuong92/spconsole/internal/constants"
	"github.com/quocvuong92/spconsole/internal/display"
	"github.com/quocvuong92/spconsole/internal/input"
	"github.com/quocvuong92/spconsole/internal/logging"
	"github.com/quocvuong92/spconsole/internal/notify"
)

// Banner is printed when the console starts.
const Banner = "Welcome. type 'help' for a list of commands or press CTRL-C to exit"

// Handler statuses
const (
	StatusOK = 0
	// StatusFailed covers usage errors, a missing session and a failed logout.
	StatusFailed = -1
	// StatusBackendError is returned when the backend rejects a request.
	StatusBackendError = -2
)

var (
	// ErrSessionUnavailable is reported by every session command when the
	// backend session could not be created at startup. The console keeps
	// running but the state is permanent.
	ErrSessionUnavailable = errors.New("no backend session: it could not be created at startup")
	// ErrDrainTimeout is returned by Run when the backend did not confirm
	// the logout within the drain timeout.
	ErrDrainTimeout = errors.New("timed out waiting for the backend to confirm logout")
)

// CredentialPrompter asks the operator for login credentials.
type CredentialPrompter interface {
	Prompt() (auth.Credentials, error)
}

// SessionFactory creates the backend session with the console's callbacks.
type SessionFactory func(cb backend.Callbacks) (backend.Session, error)

// Options configures a Console. Config, Reader and NewSession are required.
type Options struct {
	Config     *config.Config
	Reader     input.LineReader
	NewSession SessionFactory

	// Logger defaults to logging.DefaultLogger.
	Logger *logging.Logger
	// Printer defaults to stdout and stderr.
	Printer *display.Printer
	// Prompter defaults to an auth.Prompter on Reader.
	Prompter CredentialPrompter
	// Clock defaults to real time.
	Clock clockwork.Clock
	// Sink defaults to audio.DefaultDevice.
	Sink *audio.Sink
}

// Console is the explicit context object for one interactive run.
type Console struct {
	id       string
	cfg      config.Config
	log      *logging.FieldLogger
	printer  *display.Printer
	clock    clockwork.Clock
	prompter CredentialPrompter
	sink     *audio.Sink

	hub   *notify.Hub
	input *input.Loop
	table *command.Table

	session    backend.Session
	sessionErr error

	finished   atomic.Bool
	logEnabled atomic.Bool

	// Only touched on the main goroutine.
	loginSpinner *display.Spinner
	loginPending bool
	loginUser    string
}

// New creates a console and its backend session. A session that cannot be
// created does not fail New: the console starts in the session-unavailable
// state and reports it.
func New(opts Options) *Console {
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger
	}
	if opts.Printer == nil {
		opts.Printer = display.New(nil, nil, opts.Config.Render)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Prompter == nil {
		opts.Prompter = auth.NewPrompter(opts.Reader, nil)
	}
	if opts.Sink == nil {
		opts.Sink = audio.NewSink(audio.DefaultDevice)
	}

	c := &Console{
		id:       uuid.NewString(),
		cfg:      withLoopDefaults(*opts.Config),
		printer:  opts.Printer,
		clock:    opts.Clock,
		prompter: opts.Prompter,
		sink:     opts.Sink,
	}
	c.log = opts.Logger.WithFields(logging.Fields{"session_id": c.id})
	c.hub = notify.NewHub(opts.Clock)
	c.input = input.NewLoop(opts.Reader, c.hub.RaiseCmdReady)
	c.table = c.commands()
	c.logEnabled.Store(opts.Config.BackendLog)

	session, err := opts.NewSession(c.callbacks())
	if err != nil {
		c.sessionErr = err
		c.log.Error("Failed to create backend session", err, logging.Fields{"backend": c.cfg.Backend})
	} else {
		c.session = session
		c.log.Info("Backend session created", logging.Fields{"backend": c.cfg.Backend})
	}
	return c
}

func withLoopDefaults(cfg config.Config) config.Config {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = constants.DefaultDrainTimeout
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = constants.DefaultDrainInterval
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = constants.DefaultJoinTimeout
	}
	if cfg.MaxPumpIterations <= 0 {
		cfg.MaxPumpIterations = constants.DefaultMaxPumpIterations
	}
	if cfg.PumpYield <= 0 {
		cfg.PumpYield = constants.DefaultPumpYield
	}
	return cfg
}

// ID identifies this run in log entries.
func (c *Console) ID() string {
	return c.id
}

// Finished reports whether quit has been requested.
func (c *Console) Finished() bool {
	return c.finished.Load()
}

// finish sets the program-finished flag exactly once and wakes the input
// goroutine and the main loop.
func (c *Console) finish(reason string) {
	if !c.finished.CompareAndSwap(false, true) {
		return
	}
	c.log.Info("Program finished", logging.Fields{"reason": reason})
	c.input.Finish()
	c.hub.MarkFinished()
}

// callbacks wires the backend to the console. Everything but
// NotifyMainThread runs on the main goroutine inside PumpEvents.
func (c *Console) callbacks() backend.Callbacks {
	return backend.Callbacks{
		NotifyMainThread: c.hub.RaiseEventsReady,
		LoggedIn:         c.onLoggedIn,
		LoggedOut:        c.onLoggedOut,
		ConnectionError:  c.onConnectionError,
		LogMessage:       c.onLogMessage,
	}
}

func (c *Console) onLoggedIn(err error) {
	c.stopLoginSpinner()
	defer c.resumeInput()
	if err != nil {
		c.printer.ShowError(fmt.Errorf("error while logging in: %w", err))
		c.log.Warn("Login rejected", logging.Fields{"error": err.Error()})
		return
	}
	c.printer.ShowNotice("Logged in!")
	c.log.Info("Logged in", logging.Fields{"user": c.loginUser})
	if c.loginUser != "" {
		c.input.SetPrefix(c.loginUser + " " + input.DefaultPrefix)
	}
}

func (c *Console) onLoggedOut() {
	c.printer.ShowNotice("Logged out!")
	c.log.Info("Logged out")
	c.loginUser = ""
	c.input.SetPrefix(input.DefaultPrefix)
}

func (c *Console) onConnectionError(err error) {
	c.stopLoginSpinner()
	c.resumeInput()
	c.printer.ShowError(err)
	c.log.Warn("Connection error", logging.Fields{"error": err.Error()})
}

// resumeInput reopens the prompt gate that a pending login held closed.
func (c *Console) resumeInput() {
	if !c.loginPending {
		return
	}
	c.loginPending = false
	c.input.Arm()
}

func (c *Console) onLogMessage(msg string) {
	c.log.Debug("Backend log", logging.Fields{"message": msg})
	if c.logEnabled.Load() {
		c.printer.ShowStatus("%s", msg)
	}
}

func (c *Console) onSearchDone(r backend.SearchResult) {
	if r.Err != nil {
		c.printer.ShowError(fmt.Errorf("failed to search: %w", r.Err))
		c.log.Warn("Search failed", logging.Fields{"search_id": r.ID, "error": r.Err.Error()})
		return
	}
	c.log.Debug("Search complete", logging.Fields{"search_id": r.ID, "tracks": len(r.Tracks)})
	for i, t := range r.Tracks {
		c.printer.Printf("%d. %s - %s\n", i+1, t.Name, t.Artist)
	}
}

func (c *Console) stopLoginSpinner() {
	if c.loginSpinner != nil {
		c.loginSpinner.Stop()
		c.loginSpinner = nil
	}
}

// configureAudio negotiates the playback format once at startup. A failure
// is logged and does not affect the console.
func (c *Console) configureAudio() {
	params, err := c.sink.Configure(audio.Format{
		SampleRate:  c.cfg.Audio.SampleRate,
		Channels:    c.cfg.Audio.Channels,
		FrameBuffer: c.cfg.Audio.FrameBuffer,
	})
	if err != nil {
		c.log.Warn("Audio configuration failed", logging.Fields{"error": err.Error()})
		return
	}
	c.log.Info("Audio configured", logging.Fields{
		"device":      params.Device,
		"format":      params.Format,
		"rate":        params.SampleRate,
		"channels":    params.Channels,
		"period_size": params.PeriodSize,
		"buffer_size": params.BufferSize,
	})
}
