package backend

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// SimOptions configures the in-process backend.
type SimOptions struct {
	// Users maps username to password.
	Users map[string]string
	// Catalog is the searchable track list. Nil uses DefaultCatalog.
	Catalog []Track
	// Latency delays every completion.
	Latency time.Duration
	// Keepalive is returned by PumpEvents when nothing is queued.
	Keepalive time.Duration
	// Batch bounds the events run per pump.
	Batch int
	Clock clockwork.Clock
}

// DefaultCatalog is searched when SimOptions.Catalog is nil.
var DefaultCatalog = []Track{
	{Name: "Around the World", Artist: "Daft Punk"},
	{Name: "One More Time", Artist: "Daft Punk"},
	{Name: "Digital Love", Artist: "Daft Punk"},
	{Name: "Windowlicker", Artist: "Aphex Twin"},
	{Name: "Xtal", Artist: "Aphex Twin"},
	{Name: "Teardrop", Artist: "Massive Attack"},
	{Name: "Angel", Artist: "Massive Attack"},
	{Name: "Glory Box", Artist: "Portishead"},
	{Name: "Roads", Artist: "Portishead"},
	{Name: "Born Slippy", Artist: "Underworld"},
	{Name: "Open Eye Signal", Artist: "Jon Hopkins"},
	{Name: "Svefn-g-englar", Artist: "Sigur Ros"},
	{Name: "Midnight City", Artist: "M83"},
	{Name: "Kids", Artist: "MGMT"},
	{Name: "Strobe", Artist: "deadmau5"},
	{Name: "Nightcall", Artist: "Kavinsky"},
}

// Sim is an in-process Session. Requests complete after the configured
// latency on timer goroutines, which queue their callbacks for PumpEvents.
type Sim struct {
	cb      Callbacks
	queue   *eventQueue
	clock   clockwork.Clock
	latency time.Duration
	users   map[string]string
	catalog []Track

	mu       sync.Mutex
	state    ConnectionState
	user     string
	released bool
	// timers holds completions that have not fired yet. A nil entry is
	// reserved while its timer is being created.
	timers    map[uint64]clockwork.Timer
	nextTimer uint64
}

var _ Session = (*Sim)(nil)

// NewSim creates a simulated session. It fails with ErrCreateSessionFailed
// when cb has no NotifyMainThread callback.
func NewSim(opts SimOptions, cb Callbacks) (*Sim, error) {
	if cb.NotifyMainThread == nil {
		return nil, fmt.Errorf("%w: no main thread notifier", ErrCreateSessionFailed)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog
	}
	users := make(map[string]string, len(opts.Users))
	for u, p := range opts.Users {
		users[u] = p
	}

	return &Sim{
		cb:      cb.withDefaults(),
		queue:   newEventQueue(cb.NotifyMainThread, opts.Batch, opts.Keepalive),
		clock:   opts.Clock,
		latency: opts.Latency,
		users:   users,
		catalog: catalog,
		state:   StateLoggedOut,
		timers:  make(map[uint64]clockwork.Timer),
	}, nil
}

// schedule queues ev once the latency has elapsed. A timer removes itself
// when it fires, so only outstanding completions are kept for Release.
func (s *Sim) schedule(ev func()) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	id := s.nextTimer
	s.nextTimer++
	s.timers[id] = nil
	s.mu.Unlock()

	t := s.clock.AfterFunc(s.latency, func() {
		s.queue.post(ev)
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
	})

	s.mu.Lock()
	if _, pending := s.timers[id]; pending {
		s.timers[id] = t
	}
	s.mu.Unlock()
}

func (s *Sim) Login(username, password string) error {
	s.mu.Lock()
	switch {
	case s.released:
		s.mu.Unlock()
		return errReleased()
	case s.state == StateLoggedIn:
		s.mu.Unlock()
		return &Error{Code: CodeAlreadyLoggedIn, Message: fmt.Sprintf("already logged in as %s", s.user)}
	}
	s.mu.Unlock()

	s.schedule(func() {
		s.cb.LogMessage(fmt.Sprintf("login attempt for %s", username))
		want, ok := s.users[username]
		if !ok || want != password {
			s.cb.LoggedIn(&Error{Code: CodeBadCredentials, Message: "bad username or password"})
			return
		}
		s.mu.Lock()
		s.state = StateLoggedIn
		s.user = username
		s.mu.Unlock()
		s.cb.LoggedIn(nil)
	})
	return nil
}

func (s *Sim) Logout() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return errReleased()
	}
	if s.state != StateLoggedIn {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	s.schedule(s.completeLogout)
	return nil
}

func (s *Sim) completeLogout() {
	s.mu.Lock()
	if s.state == StateLoggedOut {
		s.mu.Unlock()
		return
	}
	s.state = StateLoggedOut
	s.user = ""
	s.mu.Unlock()
	s.cb.LoggedOut()
}

func (s *Sim) IsLoggedIn() bool {
	return s.ConnectionState() == StateLoggedIn
}

func (s *Sim) ConnectionState() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sim) Search(pattern string, done SearchCallback) error {
	s.mu.Lock()
	switch {
	case s.released:
		s.mu.Unlock()
		return errReleased()
	case s.state != StateLoggedIn:
		s.mu.Unlock()
		return &Error{Code: CodeNotLoggedIn, Message: "search requires a logged in session"}
	}
	s.mu.Unlock()

	id := uuid.NewString()
	s.schedule(func() {
		done(SearchResult{ID: id, Pattern: pattern, Tracks: s.match(pattern)})
	})
	return nil
}

// match returns catalog tracks whose name or artist contains pattern,
// ignoring case.
func (s *Sim) match(pattern string) []Track {
	needle := strings.ToLower(pattern)
	var tracks []Track
	for _, t := range s.catalog {
		if len(tracks) == MaxSearchResults {
			break
		}
		if strings.Contains(strings.ToLower(t.Name), needle) ||
			strings.Contains(strings.ToLower(t.Artist), needle) {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

// DropConnection simulates the service going away: the session moves to
// StateDisconnected and ConnectionError is reported.
func (s *Sim) DropConnection(reason string) {
	s.schedule(func() {
		s.mu.Lock()
		if s.state != StateLoggedIn {
			s.mu.Unlock()
			return
		}
		s.state = StateDisconnected
		s.mu.Unlock()
		s.cb.ConnectionError(&Error{Code: CodeNetwork, Message: reason})
	})
}

func (s *Sim) PumpEvents() (time.Duration, error) {
	s.mu.Lock()
	released := s.released
	s.mu.Unlock()
	if released {
		return 0, errReleased()
	}
	return s.queue.pump(), nil
}

func (s *Sim) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return errReleased()
	}
	s.released = true
	timers := s.timers
	s.timers = make(map[uint64]clockwork.Timer)
	s.mu.Unlock()

	for _, t := range timers {
		if t != nil {
			t.Stop()
		}
	}
	s.queue.close()
	return nil
}
