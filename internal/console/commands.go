package console

import (
	"fmt"
	"strings"

	"github.com/quocvuong92/spconsole/internal/command"
	"github.com/quocvuong92/spconsole/internal/logging"
)

func (c *Console) commands() *command.Table {
	return command.NewTable(
		command.Descriptor{Name: "quit", Help: "Quit the console", Handler: c.cmdQuit},
		command.Descriptor{Name: "help", Help: "Print a list of commands", Handler: c.cmdHelp},
		command.Descriptor{Name: "echo", Help: "Echo to terminal window", Handler: c.cmdEcho},
		command.Descriptor{Name: "login", Help: "Login to the music service", Handler: c.cmdLogin},
		command.Descriptor{Name: "logout", Help: "Logout from the music service", Handler: c.cmdLogout},
		command.Descriptor{Name: "log", Help: "Set backend logging on/off", Handler: c.cmdLog},
		command.Descriptor{Name: "state", Help: "Display connection state", Handler: c.cmdState},
		command.Descriptor{Name: "search", Help: "Search for songs", Handler: c.cmdSearch},
	)
}

// Commands returns the command table, for completion and help.
func (c *Console) Commands() *command.Table {
	return c.table
}

func (c *Console) cmdQuit(args []string) int {
	c.finish("quit")
	return StatusOK
}

func (c *Console) cmdHelp(args []string) int {
	if c.cfg.Render {
		var sb strings.Builder
		sb.WriteString("## Commands\n\n| Command | Description |\n|---|---|\n")
		for _, d := range c.table.Descriptors() {
			fmt.Fprintf(&sb, "| `%s` | %s |\n", d.Name, d.Help)
		}
		c.printer.ShowMarkdown(sb.String())
		return StatusOK
	}

	c.printer.Println("These are the available commands")
	for _, d := range c.table.Descriptors() {
		c.printer.Printf("\t%s\t\t%s\n", d.Name, d.Help)
	}
	return StatusOK
}

func (c *Console) cmdEcho(args []string) int {
	c.printer.Println(strings.Join(args[1:], " "))
	return StatusOK
}

// cmdLogin reads credentials inline. The input goroutine is parked at the
// closed prompt gate until this handler returns, so only one reader uses the
// terminal at a time. The gate then stays closed, with a spinner running,
// until the backend reports the login outcome.
func (c *Console) cmdLogin(args []string) int {
	if c.session == nil {
		c.printer.ShowError(ErrSessionUnavailable)
		return StatusFailed
	}

	creds, err := c.prompter.Prompt()
	if err != nil {
		c.printer.ShowError(fmt.Errorf("failed to read credentials: %w", err))
		return StatusFailed
	}
	defer creds.Zero()

	if err := c.session.Login(creds.Username, string(creds.Password)); err != nil {
		c.printer.ShowError(fmt.Errorf("failed to login: %w", err))
		c.log.Warn("Login request failed", logging.Fields{"user": creds.Username, "error": err.Error()})
		return StatusBackendError
	}
	c.log.Info("Login requested", logging.Fields{"user": creds.Username})

	c.loginPending = true
	c.loginUser = creds.Username
	c.stopLoginSpinner()
	c.loginSpinner = c.printer.NewSpinner("Logging in...")
	c.loginSpinner.Start()
	return StatusOK
}

func (c *Console) cmdLogout(args []string) int {
	if c.session == nil {
		c.printer.ShowError(ErrSessionUnavailable)
		return StatusFailed
	}
	if err := c.session.Logout(); err != nil {
		c.printer.ShowError(fmt.Errorf("failed to log out: %w", err))
		return StatusFailed
	}
	return StatusOK
}

func (c *Console) cmdLog(args []string) int {
	if len(args) == 1 {
		state := "disabled"
		if c.logEnabled.Load() {
			state = "enabled"
		}
		c.printer.Printf("logging is %s\n", state)
		return StatusOK
	}

	switch args[1] {
	case "on":
		c.logEnabled.Store(true)
		c.printer.Println("enabling logging")
	case "off":
		c.logEnabled.Store(false)
		c.printer.Println("disabling logging")
	default:
		c.printer.ShowError(fmt.Errorf("invalid argument %q, should be on or off", args[1]))
		return StatusFailed
	}
	return StatusOK
}

func (c *Console) cmdState(args []string) int {
	if c.session == nil {
		c.printer.ShowError(ErrSessionUnavailable)
		return StatusFailed
	}
	state := c.session.ConnectionState()
	c.printer.Printf("session state is: %d (%s)\n", int(state), state)
	if state < 0 {
		return StatusFailed
	}
	return StatusOK
}

func (c *Console) cmdSearch(args []string) int {
	if len(args) < 2 {
		c.printer.ShowError(fmt.Errorf("not enough arguments. usage: %s \"search pattern\"", args[0]))
		return StatusFailed
	}
	if c.session == nil {
		c.printer.ShowError(ErrSessionUnavailable)
		return StatusFailed
	}
	if err := c.session.Search(args[1], c.onSearchDone); err != nil {
		c.printer.ShowError(fmt.Errorf("failed to search: %w", err))
		return StatusBackendError
	}
	return StatusOK
}
