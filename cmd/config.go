package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/spconsole/internal/config"
	"github.com/quocvuong92/spconsole/internal/display"
)

// NewConfigCmd creates the config command and its subcommands
func NewConfigCmd(app *App) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a commented default configuration file",
		Long: `Write a commented default configuration file to the user config
directory. An existing file is left untouched.

Examples:
  spconsole config init`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfigFile()
			if err != nil {
				display.New(app.stdout, app.stderr, false).ShowError(err)
				return err
			}
			fmt.Fprintf(app.stdout, "Created %s\n", path)
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "paths",
		Short: "List the configuration file locations in priority order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, path := range config.GetConfigPaths() {
				mark := " "
				if _, err := os.Stat(path); err == nil {
					mark = "*"
				}
				fmt.Fprintf(app.stdout, "%s %s\n", mark, path)
			}
		},
	})

	return configCmd
}

// NewVersionCmd creates the version command
func NewVersionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(app.stdout, "spconsole %s\n", Version)
		},
	}
}
