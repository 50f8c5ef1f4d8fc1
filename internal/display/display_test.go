package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPrinter(render bool) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(&out, &errOut, render), &out, &errOut
}

func TestPrinter_Streams(t *testing.T) {
	p, out, errOut := newTestPrinter(false)

	p.Println("1. Around the World - Daft Punk")
	p.Printf("%d\n", 1)
	p.ShowError(errors.New("not logged in"))
	p.ShowWarning("drain timed out")
	p.ShowStatus("%s returned %d", "search", -1)
	p.ShowNotice("Logged in!")
	p.Banner("Welcome.")

	assert.Equal(t, "1. Around the World - Daft Punk\n1\n", out.String())

	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	assert.Equal(t, []string{
		"Error: not logged in",
		"Warning: drain timed out",
		"search returned -1",
		"Logged in!",
		"Welcome.",
	}, lines)
}

func TestPrinter_ShowMarkdown_Plain(t *testing.T) {
	p, out, _ := newTestPrinter(false)

	p.ShowMarkdown("| Command | Description |\n|---|---|\n| `quit` | Exit |")

	assert.Equal(t, "| Command | Description |\n|---|---|\n| `quit` | Exit |\n", out.String())
}

func TestPrinter_ShowMarkdown_Rendered(t *testing.T) {
	p, out, _ := newTestPrinter(true)

	md := "# Commands\n\n- **quit** exit the console\n"
	p.ShowMarkdown(md)

	assert.Contains(t, out.String(), "quit")
	assert.NotEqual(t, md, out.String())
}

func TestSpinner_NoTerminal(t *testing.T) {
	p, _, errOut := newTestPrinter(false)

	sp := p.NewSpinner("Logging out...")
	sp.Start()
	sp.UpdateMessage("Still waiting...")
	sp.Stop()

	assert.Empty(t, errOut.String())
}
