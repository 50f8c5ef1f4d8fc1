package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quocvuong92/spconsole/internal/logging"
)

// HTTPOptions configures the REST backend.
type HTTPOptions struct {
	// Endpoint is the service base URL, e.g. http://localhost:8080.
	Endpoint string
	// Timeout bounds each non-streaming request.
	Timeout time.Duration
	// Keepalive is returned by PumpEvents when nothing is queued.
	Keepalive time.Duration
	Batch     int
	// Logger receives diagnostics. When LogHTTP is set, every request and
	// response is logged at DEBUG.
	Logger  *logging.Logger
	LogHTTP bool
	// Transport overrides the HTTP transport.
	Transport http.RoundTripper
	// Backoff overrides the retry schedule.
	Backoff func(attempt int) time.Duration
}

// HTTP is a Session backed by a REST service. Requests run on worker
// goroutines; a server-sent event listener runs while logged in.
type HTTP struct {
	cb         Callbacks
	queue      *eventQueue
	client     *http.Client
	base       *url.URL
	logger     *logging.Logger
	httpLogger *logging.HTTPLogger
	backoff    func(int) time.Duration
	timeout    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      ConnectionState
	token      string
	released   bool
	stopEvents context.CancelFunc
	loggingOut bool
}

var _ Session = (*HTTP)(nil)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  string `json:"user"`
}

type searchResponse struct {
	Tracks []Track `json:"tracks"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewHTTP creates a session for the service at opts.Endpoint.
func NewHTTP(opts HTTPOptions, cb Callbacks) (*HTTP, error) {
	if cb.NotifyMainThread == nil {
		return nil, fmt.Errorf("%w: no main thread notifier", ErrCreateSessionFailed)
	}
	base, err := url.Parse(opts.Endpoint)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid endpoint %q", ErrCreateSessionFailed, opts.Endpoint)
	}
	if opts.Logger == nil {
		opts.Logger = logging.DefaultLogger
	}
	if opts.Backoff == nil {
		opts.Backoff = CalculateBackoff
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	var httpLogger *logging.HTTPLogger
	if opts.LogHTTP {
		httpLogger = logging.NewHTTPLogger(opts.Logger)
		transport = logging.NewLoggingRoundTripper(transport, httpLogger, true)
	}

	// No client timeout: it would also cut the event stream. Requests
	// carry their own deadline instead.
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTP{
		cb:         cb.withDefaults(),
		queue:      newEventQueue(cb.NotifyMainThread, opts.Batch, opts.Keepalive),
		client:     &http.Client{Transport: transport},
		base:       base,
		logger:     opts.Logger,
		httpLogger: httpLogger,
		backoff:    opts.Backoff,
		timeout:    opts.Timeout,
		ctx:        ctx,
		cancel:     cancel,
		state:      StateLoggedOut,
	}, nil
}

// spawn runs fn on a tracked worker goroutine.
func (h *HTTP) spawn(fn func()) {
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn()
	}()
}

func (h *HTTP) Login(username, password string) error {
	h.mu.Lock()
	switch {
	case h.released:
		h.mu.Unlock()
		return errReleased()
	case h.state == StateLoggedIn:
		h.mu.Unlock()
		return &Error{Code: CodeAlreadyLoggedIn, Message: "already logged in"}
	}
	h.mu.Unlock()

	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	h.spawn(func() {
		var resp loginResponse
		err := h.do(http.MethodPost, "/v1/session/login", "", body, &resp)
		h.queue.post(func() {
			if err != nil {
				h.cb.LoggedIn(toBackendError(err))
				return
			}
			h.mu.Lock()
			h.state = StateLoggedIn
			h.token = resp.Token
			h.loggingOut = false
			h.mu.Unlock()
			h.startEvents(resp.Token)
			h.cb.LoggedIn(nil)
		})
	})
	return nil
}

func (h *HTTP) Logout() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return errReleased()
	}
	if h.state != StateLoggedIn || h.loggingOut {
		h.mu.Unlock()
		return nil
	}
	h.loggingOut = true
	token := h.token
	h.mu.Unlock()

	h.spawn(func() {
		err := h.do(http.MethodPost, "/v1/session/logout", token, nil, nil)
		h.queue.post(func() {
			if err != nil {
				// The server session is unreachable; report it and drop the
				// local session regardless.
				h.cb.ConnectionError(toBackendError(err))
			}
			h.completeLogout()
		})
	})
	return nil
}

// completeLogout runs on the main loop. It is idempotent so a logged_out
// server event and the logout response may both arrive.
func (h *HTTP) completeLogout() {
	h.mu.Lock()
	if h.state != StateLoggedIn && h.state != StateDisconnected {
		h.mu.Unlock()
		return
	}
	h.state = StateLoggedOut
	h.token = ""
	h.loggingOut = false
	stop := h.stopEvents
	h.stopEvents = nil
	h.mu.Unlock()

	if stop != nil {
		stop()
	}
	h.cb.LoggedOut()
}

func (h *HTTP) IsLoggedIn() bool {
	return h.ConnectionState() == StateLoggedIn
}

func (h *HTTP) ConnectionState() ConnectionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *HTTP) Search(pattern string, done SearchCallback) error {
	h.mu.Lock()
	switch {
	case h.released:
		h.mu.Unlock()
		return errReleased()
	case h.state != StateLoggedIn:
		h.mu.Unlock()
		return &Error{Code: CodeNotLoggedIn, Message: "search requires a logged in session"}
	}
	token := h.token
	h.mu.Unlock()

	id := uuid.NewString()
	path := "/v1/search?" + url.Values{
		"q":     {pattern},
		"limit": {strconv.Itoa(MaxSearchResults)},
	}.Encode()

	h.spawn(func() {
		var resp searchResponse
		err := h.do(http.MethodGet, path, token, nil, &resp)
		result := SearchResult{ID: id, Pattern: pattern}
		if err != nil {
			result.Err = toBackendError(err)
		} else {
			result.Tracks = resp.Tracks
			if len(result.Tracks) > MaxSearchResults {
				result.Tracks = result.Tracks[:MaxSearchResults]
			}
		}
		h.queue.post(func() { done(result) })
	})
	return nil
}

func (h *HTTP) PumpEvents() (time.Duration, error) {
	h.mu.Lock()
	released := h.released
	h.mu.Unlock()
	if released {
		return 0, errReleased()
	}
	return h.queue.pump(), nil
}

// Release cancels in-flight requests and the event stream and waits for
// every worker goroutine.
func (h *HTTP) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return errReleased()
	}
	h.released = true
	h.mu.Unlock()

	h.cancel()
	h.wg.Wait()
	h.queue.close()
	h.client.CloseIdleConnections()
	return nil
}

// startEvents opens the server event stream for token. Called on the main
// loop once a login has completed.
func (h *HTTP) startEvents(token string) {
	ctx, stop := context.WithCancel(h.ctx)
	h.mu.Lock()
	h.stopEvents = stop
	h.mu.Unlock()

	h.spawn(func() {
		defer stop()
		if err := h.listen(ctx, token); err != nil && ctx.Err() == nil {
			h.queue.post(func() {
				h.mu.Lock()
				if h.state == StateLoggedIn {
					h.state = StateDisconnected
				}
				h.mu.Unlock()
				h.cb.ConnectionError(toBackendError(err))
			})
		}
	})
}

func (h *HTTP) listen(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url("/v1/events"), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return readStatusError(resp)
	}
	if h.httpLogger != nil {
		h.httpLogger.LogStreamStart(resp)
	}

	processor := newSSEProcessor(resp.Body, h.logger)
	err = processor.process(ctx, h.dispatchServerEvent)
	if h.httpLogger != nil {
		h.httpLogger.LogStreamEnd(time.Since(start), processor.count)
	}
	if err != nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	return nil
}

// dispatchServerEvent runs on the listener goroutine and queues the
// matching callback.
func (h *HTTP) dispatchServerEvent(ev serverEvent) {
	switch ev.Type {
	case eventLog:
		msg := ev.Message
		h.queue.post(func() { h.cb.LogMessage(msg) })
	case eventConnectionError:
		e := &Error{Code: CodeNetwork, Message: ev.Message}
		h.queue.post(func() { h.cb.ConnectionError(e) })
	case eventLoggedOut:
		h.queue.post(h.completeLogout)
	case eventState:
		if ev.State == nil {
			return
		}
		state := ConnectionState(*ev.State)
		h.queue.post(func() {
			h.mu.Lock()
			if h.state != StateLoggedOut {
				h.state = state
			}
			h.mu.Unlock()
		})
	default:
		h.logger.Debug("Ignoring server event", logging.Fields{"type": ev.Type})
	}
}

func (h *HTTP) url(path string) string {
	return strings.TrimSuffix(h.base.String(), "/") + path
}

// do sends one JSON request with retry and decodes the response into out.
func (h *HTTP) do(method, path, token string, body []byte, out any) error {
	_, err := withRetry(h.ctx, h.backoff, func() (struct{}, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		ctx, cancel := h.requestContext()
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, method, h.url(path), reader)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := h.client.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return struct{}{}, readStatusError(resp)
		}
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return struct{}{}, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return struct{}{}, fmt.Errorf("failed to parse response: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

func (h *HTTP) requestContext() (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(h.ctx)
	}
	return context.WithTimeout(h.ctx, h.timeout)
}

func readStatusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := http.StatusText(resp.StatusCode)
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error.Message != "" {
		msg = er.Error.Message
	}
	return &statusError{StatusCode: resp.StatusCode, Message: msg}
}

// toBackendError classifies a request failure.
func toBackendError(err error) *Error {
	var se *statusError
	if !errors.As(err, &se) {
		return &Error{Code: CodeNetwork, Message: err.Error()}
	}
	switch {
	case se.StatusCode == http.StatusUnauthorized:
		return &Error{Code: CodeBadCredentials, Message: se.Message}
	case se.StatusCode == http.StatusForbidden:
		return &Error{Code: CodeNotLoggedIn, Message: se.Message}
	default:
		return &Error{Code: CodeService, Message: err.Error()}
	}
}
