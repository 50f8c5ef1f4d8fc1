// Package auth collects login credentials from the operator.
//
// The login command runs on the main goroutine while the input goroutine is
// parked at the closed prompt gate, so the prompter may read the terminal
// directly without racing the console prompt.
package auth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/quocvuong92/spconsole/internal/input"
)

// Prompt prefixes
const (
	UsernamePrompt = "Username: "
	PasswordPrompt = "Password: "
)

// ErrEmptyUsername is returned when the operator enters a blank username.
var ErrEmptyUsername = errors.New("username must not be empty")

// Credentials holds what the operator typed. Call Zero once the password
// has been handed to the backend.
type Credentials struct {
	Username string
	Password []byte
}

// Zero overwrites the password bytes.
func (c *Credentials) Zero() {
	for i := range c.Password {
		c.Password[i] = 0
	}
	c.Password = nil
}

// Prompter asks for a username through the console's line reader and for a
// password without echo when stdin is a terminal.
type Prompter struct {
	lines input.LineReader
	out   io.Writer
	fd    int

	isTerminal   func(fd int) bool
	readPassword func(fd int) ([]byte, error)
}

// NewPrompter reads the password from stdin. out receives the password
// prompt; nil means stderr.
func NewPrompter(lines input.LineReader, out io.Writer) *Prompter {
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{
		lines:        lines,
		out:          out,
		fd:           int(os.Stdin.Fd()),
		isTerminal:   term.IsTerminal,
		readPassword: term.ReadPassword,
	}
}

// Prompt reads a username and a password.
func (p *Prompter) Prompt() (Credentials, error) {
	username, err := p.lines.ReadLine(UsernamePrompt)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return Credentials{}, ErrEmptyUsername
	}

	password, err := p.password()
	if err != nil {
		return Credentials{}, fmt.Errorf("reading password: %w", err)
	}
	return Credentials{Username: username, Password: password}, nil
}

func (p *Prompter) password() ([]byte, error) {
	if !p.isTerminal(p.fd) {
		// Piped input: the password is the next line of the script.
		line, err := p.lines.ReadLine(PasswordPrompt)
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}

	fmt.Fprint(p.out, PasswordPrompt)
	password, err := p.readPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return nil, err
	}
	return password, nil
}
