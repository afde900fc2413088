package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loam/internal/schema"
	"github.com/hollis-dev/loam/internal/script"
	"github.com/hollis-dev/loam/internal/store"
)

// ScriptJSON is the wire shape of a script record in JSON output.
type ScriptJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	Enabled     bool      `json:"enabled"`
	System      bool      `json:"system"`
	ModifiedAt  time.Time `json:"modified_at"`
}

func scriptJSON(rec *store.ScriptRecord) ScriptJSON {
	return ScriptJSON{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Position:    rec.Position,
		Enabled:     rec.Enabled,
		System:      rec.System,
		ModifiedAt:  rec.ModifiedAt,
	}
}

// NewScriptCommand creates the script command group.
func NewScriptCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage the document's type scripts",
	}

	cmd.AddCommand(newScriptAddCommand(rootOpts))
	cmd.AddCommand(newScriptListCommand(rootOpts))
	cmd.AddCommand(newScriptUpdateCommand(rootOpts))
	cmd.AddCommand(newScriptEnableCommand(rootOpts, true))
	cmd.AddCommand(newScriptEnableCommand(rootOpts, false))
	cmd.AddCommand(newScriptReorderCommand(rootOpts))
	cmd.AddCommand(newScriptRmCommand(rootOpts))

	return cmd
}

// reportScriptErrors prints load diagnostics. A script that fails to
// load stays installed; its types are simply absent until fixed.
func reportScriptErrors(cmd *cobra.Command, errs []schema.ScriptError) {
	if len(errs) == 0 {
		return
	}
	w := cmd.ErrOrStderr()
	for _, e := range errs {
		fmt.Fprintf(w, "warning: script %q: %s\n", e.ScriptName, e.Message)
	}
}

func newScriptAddCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "add <file.js>",
		Short: "Install a script from a file",
		Long: `Install a user script. The script's name comes from --name,
from an @name front-matter comment, or from the file name, in that
order. The registry reloads immediately; load errors are reported but
do not uninstall the script.

Example:
  loam script add ./recipe.js
  loam script add ./recipe.js --name Recipes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read script", err)
			}
			scriptName := name
			if scriptName == "" {
				scriptName = script.ParseMeta(string(source)).Name
			}
			if scriptName == "" {
				base := filepath.Base(args[0])
				scriptName = strings.TrimSuffix(base, filepath.Ext(base))
			}

			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			rec, errs, err := doc.CreateScript(ctx, scriptName, string(source))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to install script", err)
			}
			reportScriptErrors(cmd, errs)

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(scriptJSON(rec))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %q as %s\n", rec.Name, rec.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "script name (defaults to front-matter or file name)")
	return cmd
}

func newScriptListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List installed scripts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			recs, err := doc.Scripts(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list scripts", err)
			}

			if rootOpts.Format == "json" {
				out := make([]ScriptJSON, 0, len(recs))
				for _, rec := range recs {
					out = append(out, scriptJSON(rec))
				}
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(out)
			}

			w := cmd.OutOrStdout()
			for _, rec := range recs {
				state := "enabled"
				if !rec.Enabled {
					state = "disabled"
				}
				kind := "user"
				if rec.System {
					kind = "system"
				}
				fmt.Fprintf(w, "%d  %-20s %-8s %-8s %s\n", rec.Position, rec.Name, kind, state, rec.ID)
			}
			return nil
		},
	}
	return cmd
}

func newScriptUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "update <id> <file.js>",
		Short:         "Replace a script's source",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read script", err)
			}

			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			errs, err := doc.UpdateScript(ctx, args[0], string(source))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to update script", err)
			}
			reportScriptErrors(cmd, errs)

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"id": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", args[0])
			return nil
		},
	}
	return cmd
}

func newScriptEnableCommand(rootOpts *RootOptions, enable bool) *cobra.Command {
	use, short := "enable <id>", "Enable a script"
	if !enable {
		use, short = "disable <id>", "Disable a script"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: `Toggle a script. Disabling a script withdraws its types: existing
notes stay readable as legacy notes, but no new notes of those types
can be created until the script is re-enabled.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			errs, err := doc.SetScriptEnabled(ctx, args[0], enable)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to toggle script", err)
			}
			reportScriptErrors(cmd, errs)

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]any{"id": args[0], "enabled": enable})
			}
			state := "Enabled"
			if !enable {
				state = "Disabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, args[0])
			return nil
		},
	}
	return cmd
}

func newScriptReorderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <id> <position>",
		Short: "Move a script to a new position in load order",
		Long: `Reorder a script. Load order decides which script wins a type
name collision: the earliest registration of a name is kept.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid position %q", args[1]))
			}

			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			errs, err := doc.ReorderScript(ctx, args[0], position)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to reorder script", err)
			}
			reportScriptErrors(cmd, errs)

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]any{"id": args[0], "position": position})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to position %d\n", args[0], position)
			return nil
		},
	}
	return cmd
}

func newScriptRmCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a user script",
		Long: `Remove a user script. System scripts cannot be removed; disable
them instead. Notes of the removed types stay readable as legacy notes.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, _, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			errs, err := doc.DeleteScript(ctx, args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to remove script", err)
			}
			reportScriptErrors(cmd, errs)

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(map[string]string{"id": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
	return cmd
}
