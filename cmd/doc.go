// Package cmd implements the command line for spconsole.
//
// # Architecture
//
//   - root.go: App struct, cobra command setup, flags, and the wiring that
//     turns a validated config into a running console
//   - config.go: the config and version subcommands
//
// # Key Components
//
// ## App
//
// The App struct holds the configuration that flags are bound to and the
// standard streams, which tests replace. It is created in Execute() and
// passed to every command.
//
// ## Configuration priority
//
// Flags win over SPCONSOLE_* environment variables, which win over the
// config file, which wins over built-in defaults. See internal/config.
//
// ## Exit status
//
// The console exits 0 after any orderly shutdown, including one where the
// backend never confirmed the logout. Only configuration and log file
// errors exit 1.
package cmd
