package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loam/internal/document"
)

// InitResult holds the outcome of document initialisation.
type InitResult struct {
	Path  string   `json:"path"`
	Types []string `json:"types"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a document with the built-in scripts installed",
		Long: `Create a new document database and install the built-in
Note and Task scripts. Running init against an existing document is
safe: the built-ins are only installed into an empty script table.

Example:
  loam init --db ./notes.loam
  loam init --config ./loam.cue`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	doc, err := document.Create(ctx, cfg.DatabasePath, cfg.DeviceID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create document", err)
	}
	defer doc.Close()

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr(), Verbose: opts.Verbose}
	result := InitResult{Path: cfg.DatabasePath, Types: doc.Types()}
	if opts.Format == "json" {
		return f.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialised %s (types: %s)\n", result.Path, strings.Join(result.Types, ", "))
	return nil
}
