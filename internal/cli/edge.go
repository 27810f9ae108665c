package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/thimbleforth/ditto-fde-takehome/internal/app"
	"github.com/thimbleforth/ditto-fde-takehome/internal/config"
	"github.com/thimbleforth/ditto-fde-takehome/internal/edge"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
)

// EdgeOptions holds flags shared by the edge subcommands.
type EdgeOptions struct {
	*RootOptions
	User     string // overrides edge.user
	Database string // overrides edge.db_path
	CloudURL string // overrides edge.cloud_url
}

// NewEdgeCommand creates the edge command group.
func NewEdgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EdgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Author and sync reports on an edge node",
		Long: `Edge node commands.

Records are written to the local edge log first and pushed to the cloud by
a sync pass. A record stays unsynced until the cloud acknowledges it with a
sequence id, so an offline edge loses nothing.

The edge identity comes from edge.user (or EDGE_USER) and is carried in a
signed token; the cloud attributes every accepted record to it.`,
	}

	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "edge identity (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the local edge log (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.CloudURL, "cloud-url", "", "cloud base URL (overrides config)")

	cmd.AddCommand(newEdgeCreateCommand(opts))
	cmd.AddCommand(newEdgeListCommand(opts))
	cmd.AddCommand(newEdgeSyncCommand(opts))
	cmd.AddCommand(newEdgeRunCommand(opts))
	cmd.AddCommand(newEdgeDemoCommand(opts))
	cmd.AddCommand(newEdgeLatestCommand(opts))
	cmd.AddCommand(newEdgeHistoryCommand(opts))

	return cmd
}

// edgeConfig loads the config and applies the edge flag overrides.
func (opts *EdgeOptions) edgeConfig() (*config.Config, error) {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return nil, err
	}
	if opts.User != "" {
		cfg.Edge.User = opts.User
	}
	if opts.Database != "" {
		cfg.Edge.DBPath = opts.Database
	}
	if opts.CloudURL != "" {
		cfg.Edge.CloudURL = opts.CloudURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.RequireEdgeUser(); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

// openEdge builds the edge context for a subcommand.
func (opts *EdgeOptions) openEdge(cmd *cobra.Command) (*app.Edge, *config.Config, error) {
	cfg, err := opts.edgeConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(opts.RootOptions, cfg, cmd)
	if err != nil {
		return nil, nil, err
	}
	e, err := app.NewEdge(cfg.Edge, logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open edge", err)
	}
	return e, cfg, nil
}

type edgeCreateOptions struct {
	*EdgeOptions
	ReportID       string
	Title          string
	Content        string
	Classification string
	UpdatedAt      string
}

func newEdgeCreateCommand(edgeOpts *EdgeOptions) *cobra.Command {
	opts := &edgeCreateOptions{EdgeOptions: edgeOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Author a report version in the local edge log",
		Long: `Validate a report version and append it to the local edge log as unsynced.

updated_at defaults to now. It is the authoring time the cloud uses to
decide which version of a report is latest.

Examples:
  reportsync edge create --report-id r-100 --title "Bridge" --content "Passable"
  reportsync edge create --report-id r-100 --title "Bridge" --content "Closed" \
    --classification IL5 --updated-at 2025-03-14T10:05:00Z`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdgeCreate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ReportID, "report-id", "", "report identifier (required)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "report title (required)")
	cmd.Flags().StringVar(&opts.Content, "content", "", "report body (required)")
	cmd.Flags().StringVar(&opts.Classification, "classification", "", "classification label (default CUI)")
	cmd.Flags().StringVar(&opts.UpdatedAt, "updated-at", "", "authoring timestamp (default now)")
	_ = cmd.MarkFlagRequired("report-id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("content")

	return cmd
}

func runEdgeCreate(opts *edgeCreateOptions, cmd *cobra.Command) error {
	e, _, err := opts.openEdge(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	rec, err := e.Log.AppendLocal(commandContext(cmd), ir.Submission{
		ReportID:       opts.ReportID,
		Title:          opts.Title,
		Content:        opts.Content,
		Classification: opts.Classification,
		UpdatedAt:      opts.UpdatedAt,
	})
	if err != nil {
		if ir.IsValidationError(err) {
			return WrapExitError(ExitFailure, "record rejected", err)
		}
		return WrapExitError(ExitCommandError, "failed to write edge log", err)
	}

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if f.JSON() {
		return f.Success(rec)
	}
	fmt.Fprintf(f.Writer, "%s Created %s (%s) updated_at=%s\n",
		markOK, rec.ReportID, rec.ID, ir.FormatTimestamp(rec.UpdatedAt))
	return nil
}

type edgeListOptions struct {
	*EdgeOptions
	Unsynced bool
}

func newEdgeListCommand(edgeOpts *EdgeOptions) *cobra.Command {
	opts := &edgeListOptions{EdgeOptions: edgeOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List records in the local edge log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdgeList(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Unsynced, "unsynced", false, "only records not yet acknowledged by the cloud")

	return cmd
}

func runEdgeList(opts *edgeListOptions, cmd *cobra.Command) error {
	e, _, err := opts.openEdge(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := commandContext(cmd)
	var records []edge.LocalRecord
	if opts.Unsynced {
		records, err = e.Log.ListUnsynced(ctx)
	} else {
		records, err = e.Log.List(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read edge log", err)
	}

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if f.JSON() {
		return f.Success(records)
	}

	w := f.Writer
	if len(records) == 0 {
		fmt.Fprintln(w, "No local records.")
		return nil
	}
	for _, r := range records {
		status := "unsynced"
		if r.Synced() {
			status = fmt.Sprintf("seq %d", r.SyncedSeq)
		}
		fmt.Fprintf(w, "%s  %-24s %-12s %s\n", r.ID, r.ReportID, status, ir.FormatTimestamp(r.UpdatedAt))
		if r.LastError != "" && opts.Verbose {
			fmt.Fprintf(w, "  last error (attempt %d): %s\n", r.Attempts, r.LastError)
		}
	}
	return nil
}

func newEdgeSyncCommand(opts *EdgeOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass",
		Long: `Push every unsynced local record to the cloud, oldest first.

Exit codes:
  0 - All pending records synced
  1 - Some records were rejected or the pass aborted (they stay unsynced)
  2 - Command error (bad config, missing key, etc.)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdgeSync(opts, cmd)
		},
	}
}

func runEdgeSync(opts *EdgeOptions, cmd *cobra.Command) error {
	e, _, err := opts.openEdge(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	result, syncErr := e.Agent.SyncOnce(commandContext(cmd))
	return reportSync(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), result, syncErr)
}

// reportSync prints a sync pass result and maps it to an exit code.
func reportSync(f *OutputFormatter, result edge.SyncResult, syncErr error) error {
	failed := syncErr != nil || result.Failed > 0

	if f.JSON() {
		if failed {
			msg := fmt.Sprintf("%d record(s) failed to sync", result.Failed)
			if syncErr != nil {
				msg = syncErr.Error()
			}
			if err := f.Failure("E_SYNC_FAILED", msg, result); err != nil {
				return err
			}
		} else if err := f.Success(result); err != nil {
			return err
		}
	} else {
		printSyncText(f.Writer, result)
	}

	if syncErr != nil {
		return WrapExitError(ExitFailure, "sync pass aborted", syncErr)
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d record(s) failed to sync", result.Failed))
	}
	return nil
}

func printSyncText(w io.Writer, result edge.SyncResult) {
	if result.Attempted == 0 {
		fmt.Fprintln(w, "Nothing to sync.")
		return
	}
	mark := markOK
	if result.Failed > 0 || result.Pending > 0 {
		mark = markFail
	}
	fmt.Fprintf(w, "%s Synced %d of %d record(s)", mark, result.Synced, result.Attempted)
	if result.Failed > 0 {
		fmt.Fprintf(w, ", %d failed", result.Failed)
	}
	if result.Pending > 0 {
		fmt.Fprintf(w, ", %d not attempted", result.Pending)
	}
	fmt.Fprintln(w)
	if len(result.Seqs) > 0 {
		fmt.Fprintf(w, "  sequence ids: %v\n", result.Seqs)
	}
}

type edgeRunOptions struct {
	*EdgeOptions
	Schedule string
}

func newEdgeRunCommand(edgeOpts *EdgeOptions) *cobra.Command {
	opts := &edgeRunOptions{EdgeOptions: edgeOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run sync passes on a schedule until interrupted",
		Long: `Run the edge sync agent, performing a sync pass on every tick of the
schedule. A tick that fires while a pass is still running is skipped.

The schedule is a cron spec with an optional seconds field, or a descriptor
such as "@every 30s". It defaults to edge.sync_schedule.

Examples:
  reportsync edge run --schedule "@every 30s"
  reportsync edge run --schedule "*/5 * * * *"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdgeRun(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schedule, "schedule", "", "cron schedule (overrides config)")

	return cmd
}

func runEdgeRun(opts *edgeRunOptions, cmd *cobra.Command) error {
	e, cfg, err := opts.openEdge(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	spec := cfg.Edge.SyncSchedule
	if opts.Schedule != "" {
		spec = opts.Schedule
	}
	if spec == "" {
		return NewExitError(ExitCommandError, "no sync schedule: set edge.sync_schedule or --schedule")
	}
	schedule, err := config.ParseSchedule(spec)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid schedule %q", spec), err)
	}

	ctx, cancel := signalContext(cmd, e.Logger)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Edge sync agent running (%s). Press Ctrl-C to stop.\n", spec)
	if err := e.Agent.Run(ctx, schedule); err != nil {
		return WrapExitError(ExitFailure, "sync agent error", err)
	}
	return nil
}

type edgeDemoOptions struct {
	*EdgeOptions
	Suffix int
}

func newEdgeDemoCommand(edgeOpts *EdgeOptions) *cobra.Command {
	opts := &edgeDemoOptions{EdgeOptions: edgeOpts}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Author the demo records and sync them",
		Long: `Author one report owned by this edge plus this edge's version of the
shared report (` + edge.SharedReportID + `), then run one sync pass.

Running the demo on two edges reproduces a concurrent edit of the shared
report; the cloud keeps both versions and projects the one with the later
updated_at.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdgeDemo(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Suffix, "suffix", 0, "suffix for this edge's own report id (default random)")

	return cmd
}

func runEdgeDemo(opts *edgeDemoOptions, cmd *cobra.Command) error {
	e, cfg, err := opts.openEdge(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	created, result, syncErr := edge.RunDemo(commandContext(cmd), e.Log, e.Agent, cfg.Edge.User, opts.Suffix)
	// Nothing was attempted: the local log failed before the sync pass began.
	if syncErr != nil && result.Attempted == 0 {
		return WrapExitError(ExitCommandError, "demo failed", syncErr)
	}

	if !f.JSON() {
		for _, rec := range created {
			fmt.Fprintf(f.Writer, "%s Created %s (%s)\n", markOK, rec.ReportID, rec.Classification)
		}
	}
	return reportSync(f, result, syncErr)
}

func newEdgeLatestCommand(opts *EdgeOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "latest",
		Short:         "Fetch the cloud's latest projection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.openEdge(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			views, err := e.Client.Latest(commandContext(cmd))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to fetch latest reports", err)
			}
			return printViews(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), views, "No reports.")
		},
	}
}

func newEdgeHistoryCommand(opts *EdgeOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <report_id>",
		Short:         "Fetch every cloud version of one report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, err := opts.openEdge(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			views, err := e.Client.Versions(commandContext(cmd), args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "failed to fetch report history", err)
			}
			return printViews(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), views,
				fmt.Sprintf("No versions of %s.", args[0]))
		},
	}
}
