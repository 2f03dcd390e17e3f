package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/opsmemory/internal/schema"
)

// SchemaInstallResult is the JSON payload of schema install.
type SchemaInstallResult struct {
	Installed bool   `json:"installed"`
	Version   string `json:"version"`
}

func newSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Install or verify the store schema",
	}
	cmd.AddCommand(newSchemaInstallCommand(rootOpts))
	cmd.AddCommand(newSchemaVerifyCommand(rootOpts))
	return cmd
}

func newSchemaInstallCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Declare all classes in the store",
		Long: `Declare the four entity classes and five relationship classes.

Does nothing when the entity classes are already present, unless --force
is given, in which case every class is redeclared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				installed, err := a.schema.Declare(ctx, force)
				if err != nil {
					return out.Fail(ExitFailure, ErrCodeSchema, "failed to install schema", err, nil)
				}
				result := SchemaInstallResult{Installed: installed, Version: schema.Version}
				return out.Render(result, func(w io.Writer) {
					if installed {
						fmt.Fprintln(w, "Schema installed successfully.")
					} else {
						fmt.Fprintln(w, "Schema already exists. Use --force to reinstall.")
					}
				})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "redeclare every class")
	return cmd
}

func newSchemaVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that every class is declared",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				v := a.schema.Verify(ctx)
				err := out.Render(v, func(w io.Writer) {
					fmt.Fprintf(w, "Schema Version: %s\n", v.Version)
					fmt.Fprintf(w, "Valid: %t\n", v.Valid)
					fmt.Fprintf(w, "Classes: %s\n", strings.Join(v.Classes, ", "))
					if len(v.Missing) > 0 {
						fmt.Fprintf(w, "Missing: %s\n", strings.Join(v.Missing, ", "))
					}
					if len(v.Extra) > 0 {
						fmt.Fprintf(w, "Extra: %s\n", strings.Join(v.Extra, ", "))
					}
					if v.Error != "" {
						fmt.Fprintf(w, "Error: %s\n", v.Error)
					}
				})
				if err != nil {
					return err
				}
				if !v.Valid {
					exitErr := NewExitError(ExitFailure, "schema is incomplete")
					exitErr.Reported = true
					return exitErr
				}
				return nil
			})
		},
	}
}
