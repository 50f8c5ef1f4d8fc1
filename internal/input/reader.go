package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"
)

// LineReader delivers one complete line of operator input per call,
// blocking until it is available. It returns io.EOF when the input is
// exhausted.
type LineReader interface {
	ReadLine(prefix string) (string, error)
}

// TerminalReader reads lines with go-prompt's line editor and offers
// command-name completion for the first word. Ctrl-C, and Ctrl-D on an empty
// line, end the input with io.EOF.
type TerminalReader struct {
	mu       sync.Mutex
	commands []prompt.Suggest
	closed   bool
}

// NewTerminalReader creates a reader with no completions.
func NewTerminalReader() *TerminalReader {
	return &TerminalReader{}
}

// SetCommands sets the names offered for completion. help maps a command
// name to its description.
func (r *TerminalReader) SetCommands(names []string, help map[string]string) {
	suggestions := make([]prompt.Suggest, 0, len(names))
	for _, name := range names {
		suggestions = append(suggestions, prompt.Suggest{Text: name, Description: help[name]})
	}
	r.mu.Lock()
	r.commands = suggestions
	r.mu.Unlock()
}

// completer only suggests while the first word is being typed.
func (r *TerminalReader) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	text := d.TextBeforeCursor()
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	if w == "" || strings.Contains(strings.TrimLeft(text, " "), " ") {
		return []prompt.Suggest{}, startIndex, endIndex
	}
	return prompt.FilterHasPrefix(r.commands, w, false), startIndex, endIndex
}

// ReadLine shows prefix and returns the edited line. Completion is only
// offered at the console prompt, not while login asks for a username.
func (r *TerminalReader) ReadLine(prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	opts := []prompt.Option{
		prompt.WithPrefix(prefix),
		prompt.WithPrefixTextColor(prompt.Green),
		prompt.WithSuggestionBGColor(prompt.DarkBlue),
		prompt.WithSuggestionTextColor(prompt.White),
		prompt.WithSelectedSuggestionBGColor(prompt.Cyan),
		prompt.WithSelectedSuggestionTextColor(prompt.Black),
		prompt.WithDescriptionBGColor(prompt.DarkBlue),
		prompt.WithDescriptionTextColor(prompt.LightGray),
		prompt.WithMaxSuggestion(8),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return r.closed
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				r.closed = true
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					r.closed = true
				}
				return false
			},
		}),
	}
	if strings.HasSuffix(prefix, DefaultPrefix) {
		opts = append(opts, prompt.WithCompleter(r.completer))
	}

	line := prompt.Input(opts...)
	if r.closed {
		return "", io.EOF
	}
	return line, nil
}

// MaxLineLength bounds one line read by a StreamReader, not counting its
// terminator.
const MaxLineLength = 1 << 20

// ErrLineTooLong is returned for a line longer than the reader's limit. The
// rest of that line is discarded and the next read starts on the line after.
var ErrLineTooLong = errors.New("line too long")

// StreamReader reads newline-terminated lines from a plain stream such as
// a pipe or a script file, where no line editing is possible.
type StreamReader struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	max int
}

// NewStreamReader reads from in. When out is non-nil the prefix is written
// to it before each read.
func NewStreamReader(in io.Reader, out io.Writer) *StreamReader {
	return &StreamReader{in: bufio.NewReader(in), out: out, max: MaxLineLength}
}

// ReadLine returns the next line without its terminator, or io.EOF. A final
// line without a newline is returned as a line.
func (r *StreamReader) ReadLine(prefix string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.out != nil && prefix != "" {
		fmt.Fprint(r.out, prefix)
	}

	var (
		buf     []byte
		size    int
		read    bool
		tooLong bool
	)
	for {
		chunk, err := r.in.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		size += len(chunk)
		if !tooLong && size > r.max+2 {
			tooLong = true
			buf = nil
		}
		if !tooLong {
			buf = append(buf, chunk...)
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			if !read {
				return "", io.EOF
			}
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read line: %w", err)
		}
		break
	}

	line := strings.TrimSuffix(strings.TrimSuffix(string(buf), "\n"), "\r")
	if tooLong || len(line) > r.max {
		return "", fmt.Errorf("%w: over %d bytes", ErrLineTooLong, r.max)
	}
	return line, nil
}
