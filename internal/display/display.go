// Package display formats everything the operator sees.
//
// Command output (search results, echo, state) goes to the output writer.
// Errors, handler statuses and backend notices go to the error writer so a
// piped session's stdout holds only command output.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// styles are bound to the stream they are written to, so color is only
// emitted when that stream is a terminal.
type styles struct {
	err     lipgloss.Style
	warning lipgloss.Style
	status  lipgloss.Style
	notice  lipgloss.Style
	banner  lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		err:     r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("11")),
		status:  r.NewStyle().Foreground(lipgloss.Color("8")),
		notice:  r.NewStyle().Foreground(lipgloss.Color("10")),
		banner:  r.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	}
}

// Printer writes operator-facing text. It is safe for concurrent use; the
// spinner and the main loop may both write to the error stream.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	render bool
	styles styles

	rendererOnce sync.Once
	renderer     *glamour.TermRenderer
}

// New creates a printer. Nil writers default to stdout and stderr. With
// render set, help text is rendered as markdown.
func New(out, errOut io.Writer, render bool) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, errOut: errOut, render: render, styles: newStyles(errOut)}
}

// Printf writes command output.
func (p *Printer) Printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Println writes one line of command output.
func (p *Printer) Println(args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, args...)
}

// Banner writes the welcome line.
func (p *Printer) Banner(msg string) {
	p.writeErr(p.styles.banner.Render(msg))
}

// ShowError reports an error.
func (p *Printer) ShowError(err error) {
	p.writeErr(p.styles.err.Render("Error: " + err.Error()))
}

// ShowWarning reports a recoverable problem.
func (p *Printer) ShowWarning(msg string) {
	p.writeErr(p.styles.warning.Render("Warning: " + msg))
}

// ShowStatus writes a dimmed informational line such as a handler status.
func (p *Printer) ShowStatus(format string, args ...interface{}) {
	p.writeErr(p.styles.status.Render(fmt.Sprintf(format, args...)))
}

// ShowNotice writes a backend notification such as "Logged in!".
func (p *Printer) ShowNotice(msg string) {
	p.writeErr(p.styles.notice.Render(msg))
}

func (p *Printer) writeErr(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.errOut, s)
}

// ShowMarkdown writes md to the output, rendered when rendering is on.
// Rendering failures fall back to the raw text.
func (p *Printer) ShowMarkdown(md string) {
	if p.render {
		if r := p.markdownRenderer(); r != nil {
			if out, err := r.Render(md); err == nil {
				p.Printf("%s", out)
				return
			}
		}
	}
	p.Printf("%s", ensureNewline(md))
}

func (p *Printer) markdownRenderer() *glamour.TermRenderer {
	p.rendererOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			p.renderer = r
		}
	})
	return p.renderer
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
