package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hollis-dev/loam/internal/config"
	"github.com/hollis-dev/loam/internal/document"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Database   string
	DeviceID   string
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the loam CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "loam",
		Short: "loam - scriptable hierarchical notes",
		Long:  "A local-first hierarchical document store whose note types are declared by user scripts.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			logLevel := slog.LevelWarn
			if opts.Verbose {
				logLevel = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: logLevel,
			})
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the document database")
	cmd.PersistentFlags().StringVar(&opts.DeviceID, "device", "", "device id recorded on operations")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a CUE config file")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewNoteCommand(opts))
	cmd.AddCommand(NewScriptCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

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

// resolveConfig merges defaults, the optional CUE config file, and flag
// overrides. Flags win over the file, the file wins over defaults.
func resolveConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Config{DatabasePath: "loam.db"}
	cfg.Purge.Strategy = "local_only"
	cfg.Purge.KeepLast = 1000
	cfg.Purge.RetentionDays = 30

	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
		}
		cfg = loaded
	}
	if opts.Database != "" {
		cfg.DatabasePath = opts.Database
	}
	if opts.DeviceID != "" {
		cfg.DeviceID = opts.DeviceID
	}
	if cfg.DeviceID == "" {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "local"
		}
		cfg.DeviceID = host
	}
	return cfg, nil
}

// openDocument opens an existing document per the resolved config.
func openDocument(ctx context.Context, opts *RootOptions) (*document.Document, config.Config, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, cfg, err
	}
	if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
		return nil, cfg, NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s (run 'loam init' first)", cfg.DatabasePath))
	}
	doc, err := document.Open(ctx, cfg.DatabasePath, cfg.DeviceID)
	if err != nil {
		return nil, cfg, WrapExitError(ExitCommandError, "failed to open document", err)
	}
	return doc, cfg, nil
}

// commandContext returns the command's context, defaulting to Background.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
