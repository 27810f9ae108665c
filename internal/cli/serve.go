package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thimbleforth/ditto-fde-takehome/internal/app"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen   string // overrides cloud.listen
	Database string // overrides cloud.db_path
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cloud sync transport",
		Long: `Run the cloud Sync Transport over the Version Store.

Opens (or creates) the Version Store, loads the RSA public key used to
verify edge tokens, and serves the sync and read routes until interrupted.

Routes:
  POST /api/sync                         accept one record version (Bearer token)
  GET  /api/health                       liveness and store status
  GET  /api/reports                      every stored version, in sequence order
  GET  /api/reports/latest               one projected record per report_id
  GET  /api/reports/{report_id}/versions history of one report
  GET  /api/reports/stream               websocket feed of accepted records

Examples:
  reportsync serve
  reportsync serve --listen :9443 --db ./cloud.sqlite
  reportsync serve --config ./reportsync.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the Version Store (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Cloud.Listen = opts.Listen
	}
	if opts.Database != "" {
		cfg.Cloud.DBPath = opts.Database
	}

	logger, err := newLogger(opts.RootOptions, cfg, cmd)
	if err != nil {
		return err
	}

	logger.Info("opening version store", "path", cfg.Cloud.DBPath)
	cloud, err := app.NewCloud(cfg.Cloud, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start cloud", err)
	}
	defer func() {
		if closeErr := cloud.Close(); closeErr != nil {
			logger.Error("error closing version store", "error", closeErr)
		}
	}()

	ctx, cancel := signalContext(cmd, logger)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Sync transport starting on %s. Press Ctrl-C to stop.\n", cfg.Cloud.Listen)
	if err := cloud.Server.ListenAndServe(ctx, cfg.Cloud.Listen); err != nil {
		return WrapExitError(ExitFailure, "sync transport error", err)
	}

	logger.Info("sync transport stopped gracefully")
	return nil
}
