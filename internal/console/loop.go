package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quocvuong92/spconsole/internal/command"
	"github.com/quocvuong92/spconsole/internal/input"
	"github.com/quocvuong92/spconsole/internal/logging"
	"github.com/quocvuong92/spconsole/internal/tokenizer"
)

// Run starts the input goroutine and runs the main loop on the calling
// goroutine until quit, end of input, or ctx is cancelled. It then logs out,
// waits a bounded time for the backend to confirm, releases the session and
// joins the input goroutine.
//
// A drain timeout or a failed release is reported and returned, but the
// shutdown still completes; callers treat the result as a normal exit.
func (c *Console) Run(ctx context.Context) error {
	c.printer.Banner(Banner)
	if c.session == nil {
		c.printer.ShowError(fmt.Errorf("%w: %v", ErrSessionUnavailable, c.sessionErr))
	}
	c.configureAudio()

	var g errgroup.Group
	g.Go(c.input.Run)

	stop := context.AfterFunc(ctx, func() { c.finish("context cancelled") })
	defer stop()

	c.loop()

	c.stopLoginSpinner()
	err := c.shutdown()
	return errors.Join(err, c.join(&g))
}

// loop is the main loop. The first wait does not block so the backend gets
// an event pump before anything else happens; afterwards the wait is bounded
// by whatever interval the backend asked for.
func (c *Console) loop() {
	var timeout time.Duration
	for !c.Finished() {
		snap := c.hub.Wait(timeout)

		if snap.CmdReady {
			if line, ok := c.input.Take(); ok {
				c.handleLine(line)
			}
			// A login in flight keeps the prompt closed until the backend
			// answers; see resumeInput.
			if !c.loginPending {
				c.input.Arm()
			}
		}

		if c.session == nil {
			timeout = c.cfg.DrainInterval
			continue
		}
		if snap.EventsReady || snap.TimedOut() {
			timeout = c.pumpEvents()
		}
	}
}

// handleLine reports a line the reader rejected, or dispatches it.
func (c *Console) handleLine(line input.Line) {
	if line.Err != nil {
		c.printer.ShowError(fmt.Errorf("line skipped: %w", line.Err))
		c.log.Warn("Rejected input line", logging.Fields{"error": line.Err.Error()})
		return
	}
	c.dispatch(line.Text)
}

// dispatch runs one line and reports the outcome. Nothing here stops the
// loop except the quit handler itself.
func (c *Console) dispatch(line string) {
	res, err := c.table.Dispatch(line)

	var unknown *command.UnknownCommandError
	switch {
	case errors.Is(err, tokenizer.ErrUnterminatedQuote):
		c.printer.ShowError(err)
		c.log.Debug("Rejected line", logging.Fields{"error": err.Error()})
		return
	case errors.As(err, &unknown):
		c.printer.ShowError(err)
		c.log.Debug("Unknown command", logging.Fields{"command": unknown.Name})
		return
	}

	if !res.Dispatched {
		return
	}
	c.printer.ShowStatus("%s returned %d", res.Name, res.Status)

	var failed *command.HandlerError
	if errors.As(err, &failed) {
		c.log.Info("Command failed", logging.Fields{"command": failed.Name, "status": failed.Status})
		return
	}
	c.log.Debug("Command dispatched", logging.Fields{"command": res.Name, "status": res.Status})
}

// pumpEvents calls the backend's event pump until it asks for a non-zero
// interval, which is returned. A backend that keeps asking to be called
// again is cut off after MaxPumpIterations and the loop yields for
// PumpYield before the next round.
func (c *Console) pumpEvents() time.Duration {
	for i := 0; i < c.cfg.MaxPumpIterations; i++ {
		next, err := c.session.PumpEvents()
		if err != nil {
			c.printer.ShowError(fmt.Errorf("error processing events: %w", err))
			c.log.Error("Event pump failed", err)
			return c.cfg.DrainInterval
		}
		if next > 0 {
			return next
		}
	}
	c.log.Warn("Event pump did not settle, yielding", logging.Fields{
		"iterations": c.cfg.MaxPumpIterations,
		"yield_ms":   c.cfg.PumpYield.Milliseconds(),
	})
	return c.cfg.PumpYield
}

// shutdown logs out, drains events until the backend confirms or the drain
// timeout expires, and releases the session either way.
func (c *Console) shutdown() error {
	if c.session == nil {
		return nil
	}

	if err := c.session.Logout(); err != nil {
		c.printer.ShowError(fmt.Errorf("failed to log out: %w", err))
		c.log.Error("Logout failed", err)
	}

	drainErr := c.drain()
	if drainErr != nil {
		c.printer.ShowWarning(drainErr.Error() + "; releasing the session anyway")
		c.log.Warn("Drain timed out", logging.Fields{"timeout_ms": c.cfg.DrainTimeout.Milliseconds()})
	}

	if err := c.session.Release(); err != nil {
		c.log.Error("Failed to release session", err)
		return errors.Join(drainErr, fmt.Errorf("failed to release session: %w", err))
	}
	c.log.Info("Session released")
	return drainErr
}

// drain pumps events at DrainInterval while the backend still reports a
// logged in session. Command lines are ignored.
func (c *Console) drain() error {
	if !c.session.IsLoggedIn() {
		return nil
	}

	sp := c.printer.NewSpinner("Logging out...")
	sp.Start()
	defer sp.Stop()

	deadline := c.clock.Now().Add(c.cfg.DrainTimeout)
	for c.session.IsLoggedIn() {
		remaining := deadline.Sub(c.clock.Now())
		if remaining <= 0 {
			return ErrDrainTimeout
		}
		sp.UpdateMessage(fmt.Sprintf("Logging out... (%.0fs left)", remaining.Seconds()))
		wait := c.cfg.DrainInterval
		if remaining < wait {
			wait = remaining
		}

		snap := c.hub.Wait(wait)
		if snap.EventsReady || snap.TimedOut() {
			c.pumpEvents()
		}
	}
	return nil
}

// join waits for the input goroutine. A reader blocked in a read that cannot
// be interrupted is abandoned after JoinTimeout; the process exits right
// after, which ends it.
func (c *Console) join(g *errgroup.Group) error {
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			c.log.Error("Input reader failed", err)
			return fmt.Errorf("input: %w", err)
		}
		return nil
	case <-c.clock.After(c.cfg.JoinTimeout):
		c.log.Warn("Input reader still blocked, abandoning it", logging.Fields{
			"state":      c.input.State().String(),
			"timeout_ms": c.cfg.JoinTimeout.Milliseconds(),
		})
		return nil
	}
}
