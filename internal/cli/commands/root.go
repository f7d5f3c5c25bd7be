// Package commands implements the metaforge CLI: the daemon entry point
// plus the client-side commands that talk to a running daemon over its
// line protocol.
package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// Persistent flag values shared by every command.
var (
	flagConfig  string
	flagAddr    string
	flagNoColor bool
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "metaforge",
		Short: "Metadata-driven object designer daemon and client",
		Long: color.CyanString(`Metaforge - Metadata-Driven Object Engine

Metaforge serves a metadata provider's type catalog over a line-oriented
JSON protocol and lets clients create, inspect, and compose objects
without knowing the backend.

Features:
  • Batched, cached type catalog
  • Validated object construction with no partial writes
  • Bounded inspection reports safe for any object graph
  • Declarative patterns that stamp out object hierarchies
  • TCP, Unix socket, HTTP, and WebSocket endpoints`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagNoColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: metaforge.yml in the current directory)")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "Daemon address (tcp://host:port or unix:///path/to.sock)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewTypesCommand())
	rootCmd.AddCommand(NewCreateCommand())
	rootCmd.AddCommand(NewGetCommand())
	rootCmd.AddCommand(NewSaveCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewInspectCommand())
	rootCmd.AddCommand(NewPatternsCommand())
	rootCmd.AddCommand(NewBuildCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewCallCommand())
	rootCmd.AddCommand(NewHashKeyCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the metaforge version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)

			w := cmd.OutOrStdout()

			titleColor.Fprint(w, "Metaforge version: ")
			valueColor.Fprintln(w, Version)

			titleColor.Fprint(w, "Git commit: ")
			valueColor.Fprintln(w, GitCommit)

			titleColor.Fprint(w, "Build date: ")
			valueColor.Fprintln(w, BuildDate)

			titleColor.Fprint(w, "Go version: ")
			valueColor.Fprintln(w, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
