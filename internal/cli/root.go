package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/chrono"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Driver     string // overrides store.driver
	Database   string // overrides store.path (sqlite) or store.url (postgres)

	// Clock allows overriding the time source (for testing).
	// If nil, defaults to chrono.SystemClock.
	Clock chrono.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the opsmem CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opsmem",
		Short: "opsmem - biographical memory for operating sessions",
		Long: `A store of sessions, events, learnings and decisions that can be
queried through time, so that each new session starts from what the
previous ones left behind.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (default: search for opsmem.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Driver, "store", "", "store driver (memory|sqlite|postgres)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite database path or PostgreSQL URL")

	// Add subcommands
	cmd.AddCommand(newSchemaCommand(opts))
	cmd.AddCommand(newSessionCommand(opts))
	cmd.AddCommand(newEventCommand(opts))
	cmd.AddCommand(newLearningCommand(opts))
	cmd.AddCommand(newDecisionCommand(opts))
	cmd.AddCommand(newContextCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newLogCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter builds the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
