package display

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// Spinner shows progress while the console waits on the backend. It only
// animates when the error stream is a terminal; otherwise every method is a
// no-op so scripted sessions stay clean.
type Spinner struct {
	s *spinner.Spinner
}

// NewSpinner creates a stopped spinner with msg after the animation.
func (p *Printer) NewSpinner(msg string) *Spinner {
	if !isTerminal(p.errOut) {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(p.errOut))
	s.Suffix = " " + msg
	return &Spinner{s: s}
}

// Start begins the animation.
func (sp *Spinner) Start() {
	if sp.s != nil {
		sp.s.Start()
	}
}

// UpdateMessage replaces the text shown after the animation.
func (sp *Spinner) UpdateMessage(msg string) {
	if sp.s == nil {
		return
	}
	sp.s.Lock()
	sp.s.Suffix = " " + msg
	sp.s.Unlock()
}

// Stop ends the animation and clears the line.
func (sp *Spinner) Stop() {
	if sp.s != nil {
		sp.s.Stop()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
