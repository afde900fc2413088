package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loam/internal/op"
)

// OperationJSON is the wire shape of a log record in JSON output.
type OperationJSON struct {
	OperationID string    `json:"operation_id"`
	Timestamp   time.Time `json:"timestamp"`
	DeviceID    string    `json:"device_id"`
	Type        string    `json:"type"`
	Synced      bool      `json:"synced"`
}

// NewLogCommand creates the log command group.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect and prune the operation log",
	}

	cmd.AddCommand(newLogListCommand(rootOpts))
	cmd.AddCommand(newLogPurgeCommand(rootOpts))

	return cmd
}

func newLogListCommand(rootOpts *RootOptions) *cobra.Command {
	var typeFilter string

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List logged operations, oldest first",
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

			ops, err := doc.Operations(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read log", err)
			}

			if rootOpts.Format == "json" {
				out := make([]OperationJSON, 0, len(ops))
				for _, o := range ops {
					if typeFilter != "" && string(o.Type) != typeFilter {
						continue
					}
					out = append(out, OperationJSON{
						OperationID: o.OperationID,
						Timestamp:   o.Timestamp,
						DeviceID:    o.DeviceID,
						Type:        string(o.Type),
						Synced:      o.Synced,
					})
				}
				f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
				return f.Success(out)
			}

			w := cmd.OutOrStdout()
			for _, o := range ops {
				if typeFilter != "" && string(o.Type) != typeFilter {
					continue
				}
				fmt.Fprintf(w, "%s  %-20s %-10s %s\n", o.Timestamp.UTC().Format(time.RFC3339), o.Type, o.DeviceID, o.OperationID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&typeFilter, "type", "", "only show operations of this type")
	return cmd
}

// PurgeJSON is the wire shape of a purge result.
type PurgeJSON struct {
	Strategy string `json:"strategy"`
	Deleted  int    `json:"deleted"`
	Kept     int    `json:"kept"`
}

func newLogPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		keepLast      int
		retentionDays int
		withSync      bool
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Prune old operation log records",
		Long: `Prune the operation log. The default strategy keeps the most
recent records by timestamp; --with-sync instead keeps unsynced
records and ages out synced ones. Flags override the config file.

Example:
  loam log purge --keep-last 500
  loam log purge --with-sync --retention-days 14`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			doc, cfg, err := openDocument(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer doc.Close()

			strategy := cfg.PurgeStrategy()
			switch {
			case withSync:
				days := retentionDays
				if days == 0 {
					days = cfg.Purge.RetentionDays
				}
				strategy = op.WithSync{RetentionDays: days}
			case cmd.Flags().Changed("keep-last"):
				strategy = op.LocalOnly{KeepLast: keepLast}
			}

			deleted, err := doc.Purge(ctx, strategy)
			if err != nil {
				return WrapExitError(ExitFailure, "purge failed", err)
			}
			kept, err := doc.CountOperations(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to count log", err)
			}

			f := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return f.Success(PurgeJSON{Strategy: strategy.String(), Deleted: deleted, Kept: kept})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d record(s), %d kept (%s)\n", deleted, kept, strategy)
			return nil
		},
	}

	cmd.Flags().IntVar(&keepLast, "keep-last", op.DefaultKeepLast, "records to keep (local-only strategy)")
	cmd.Flags().IntVar(&retentionDays, "retention-days", 0, "synced record retention in days (with --with-sync)")
	cmd.Flags().BoolVar(&withSync, "with-sync", false, "use the sync-aware retention strategy")
	return cmd
}
