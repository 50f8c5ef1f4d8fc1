package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/quocvuong92/spconsole/internal/auth"
	"github.com/quocvuong92/spconsole/internal/config"
	"github.com/quocvuong92/spconsole/internal/console"
	"github.com/quocvuong92/spconsole/internal/display"
	"github.com/quocvuong92/spconsole/internal/input"
	"github.com/quocvuong92/spconsole/internal/logging"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

// App holds the application state
type App struct {
	cfg     *config.Config
	verbose bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg:    config.NewConfig(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd(NewApp()).Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spconsole",
		Short: "Interactive console for a music streaming session",
		Long: `spconsole is an interactive console for a music streaming session.

Commands are read one line at a time and run in order. Backend events
(login confirmation, search results, log messages) are handled between
commands. At exit the console logs out and waits a bounded time for the
backend to confirm before releasing the session.

Examples:
  spconsole                               # simulated backend, user demo/demo
  spconsole -r                            # render help as markdown
  spconsole -b http -e http://localhost:8080
  spconsole --log-file ~/spconsole.log -v
  printf 'login\nuser\npass\nsearch "abba"\nquit\n' | spconsole`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.run(cmd.Context())
		},
	}
	rootCmd.SetIn(app.stdin)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	cfg := app.cfg
	flags := rootCmd.Flags()
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVarP(&cfg.Backend, "backend", "b", "", "Session backend: sim or http (default: sim)")
	flags.StringVarP(&cfg.Endpoint, "endpoint", "e", "", "Base URL of the http backend")
	flags.DurationVar(&cfg.RequestTimeout, "request-timeout", 0, "Timeout for backend requests (default: 30s)")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	flags.StringVar(&cfg.LogFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&cfg.LogFile, "log-file", "", "Write logs to a rotated file instead of stderr")
	flags.BoolVar(&cfg.LogHTTP, "log-http", false, "Log backend requests and responses at debug level")
	flags.BoolVarP(&cfg.Render, "render", "r", false, "Render help as markdown")
	flags.BoolVar(&cfg.BackendLog, "backend-log", false, "Start with backend log messages shown")
	flags.DurationVar(&cfg.DrainTimeout, "drain-timeout", 0, "How long to wait for logout confirmation at exit (default: 10s)")
	flags.DurationVar(&cfg.DrainInterval, "drain-interval", 0, "Event pump interval while draining (default: 1s)")
	flags.DurationVar(&cfg.JoinTimeout, "join-timeout", 0, "How long to wait for the input reader at exit (default: 2s)")
	flags.IntVar(&cfg.MaxPumpIterations, "max-pump-iterations", 0, "Event pump calls per main loop round (default: 64)")
	flags.DurationVar(&cfg.PumpYield, "pump-yield", 0, "Pause after a round that hit the pump limit (default: 10ms)")
	flags.DurationVar(&cfg.SimLatency, "sim-latency", 0, "Simulated backend response delay (default: 150ms)")
	flags.DurationVar(&cfg.Keepalive, "keepalive", 0, "Idle event pump interval (default: 1s)")
	flags.StringToStringVar(&cfg.SimUsers, "sim-user", nil, "Simulated backend account as user=password (repeatable)")
	flags.IntVar(&cfg.Audio.SampleRate, "sample-rate", 0, "Playback sample rate in Hz (default: 44100)")
	flags.IntVar(&cfg.Audio.Channels, "channels", 0, "Playback channel count (default: 2)")
	flags.IntVar(&cfg.Audio.FrameBuffer, "frame-buffer", 0, "Playback buffer in frames (default: 2048)")

	rootCmd.AddCommand(NewConfigCmd(app))
	rootCmd.AddCommand(NewVersionCmd(app))

	return rootCmd
}

func (app *App) run(ctx context.Context) error {
	printer := display.New(app.stdout, app.stderr, false)

	if app.verbose {
		app.cfg.LogLevel = "debug"
	}
	if err := app.cfg.Validate(); err != nil {
		printer.ShowError(err)
		return err
	}
	printer = display.New(app.stdout, app.stderr, app.cfg.Render)

	logger, closer, err := logging.Setup(app.cfg.LogLevel, app.cfg.LogFormat, app.cfg.LogFile)
	if err != nil {
		printer.ShowError(err)
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, terminal := app.lineReader()
	clk := clockwork.NewRealClock()
	c := console.New(console.Options{
		Config:     app.cfg,
		Reader:     reader,
		NewSession: console.BackendFactory(app.cfg, logger, clk),
		Logger:     logger,
		Printer:    printer,
		Prompter:   auth.NewPrompter(reader, app.stderr),
		Clock:      clk,
	})
	if terminal != nil {
		help := make(map[string]string)
		for _, d := range c.Commands().Descriptors() {
			help[d.Name] = d.Help
		}
		terminal.SetCommands(c.Commands().Names(), help)
	}

	logger.Info("Console starting", logging.Fields{
		"session_id": c.ID(),
		"backend":    app.cfg.Backend,
		"version":    Version,
	})

	// A drain timeout or a failed release is already reported to the
	// operator; the process still exits normally.
	if err := c.Run(ctx); err != nil {
		logger.Warn("Console shut down with errors", logging.Fields{"error": err.Error()})
	}
	return nil
}

// lineReader picks line editing for a terminal and a plain stream reader for
// anything else. The returned TerminalReader is nil for the latter.
func (app *App) lineReader() (input.LineReader, *input.TerminalReader) {
	if f, ok := app.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r := input.NewTerminalReader()
		return r, r
	}
	return input.NewStreamReader(app.stdin, nil), nil
}
