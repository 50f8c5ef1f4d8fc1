// Package tokenizer splits an operator-entered command line into an argument vector.
//
// The rules are purely lexical:
//
//   - leading spaces are skipped
//   - a backslash copies the next character verbatim
//   - a double quote toggles quoting and is not copied
//   - a run of spaces outside quotes separates two tokens
//   - a newline outside quotes ends the line
//   - everything else is copied into the current token
//
// Only the space character separates tokens; tabs are ordinary characters.
// Input is handled as raw bytes, so text that is not valid UTF-8 passes
// through unchanged.
package tokenizer

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote is returned when the input ends inside a quoted section.
var ErrUnterminatedQuote = errors.New("no closing quotes")

// Tokenize splits line into arguments. The first argument is the command
// name. A blank line yields an empty, non-nil slice and no error.
func Tokenize(line string) ([]string, error) {
	args := []string{}

	var (
		cur    strings.Builder
		open   bool // current token has started, possibly empty ("")
		quoted bool
	)

	flush := func() {
		if open {
			args = append(args, cur.String())
			cur.Reset()
			open = false
		}
	}

	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}

scan:
	for ; i < len(line); i++ {
		b := line[i]
		switch {
		case b == '\\':
			open = true
			if i+1 < len(line) {
				i++
				cur.WriteByte(line[i])
			} else {
				// Nothing left to escape; keep the backslash itself.
				cur.WriteByte(b)
			}
		case b == '"':
			quoted = !quoted
			open = true
		case b == ' ' && !quoted:
			flush()
		case b == '\n' && !quoted:
			break scan
		default:
			open = true
			cur.WriteByte(b)
		}
	}

	if quoted {
		return nil, ErrUnterminatedQuote
	}
	flush()
	return args, nil
}
