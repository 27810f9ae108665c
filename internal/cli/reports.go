package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/thimbleforth/ditto-fde-takehome/internal/api"
	"github.com/thimbleforth/ditto-fde-takehome/internal/app"
	"github.com/thimbleforth/ditto-fde-takehome/internal/engine"
	"github.com/thimbleforth/ditto-fde-takehome/internal/ir"
	"github.com/thimbleforth/ditto-fde-takehome/internal/store"
)

// ReportsOptions holds flags shared by the reports subcommands.
type ReportsOptions struct {
	*RootOptions
	Database string
}

// NewReportsCommand creates the reports command group.
func NewReportsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect a Version Store file offline",
		Long: `Read-only views over a Version Store file, computed the same way the
cloud serves them. The database defaults to cloud.db_path.`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the Version Store (defaults to cloud.db_path)")

	cmd.AddCommand(newReportsListCommand(opts))
	cmd.AddCommand(newReportsLatestCommand(opts))
	cmd.AddCommand(newReportsHistoryCommand(opts))

	return cmd
}

// openReconciler opens the store named by --db (or the config) and wraps it
// in a reconciler for reads.
func openReconciler(rootOpts *RootOptions, dbFlag string) (*engine.Reconciler, *store.Store, error) {
	path := dbFlag
	if path == "" {
		cfg, err := loadConfig(rootOpts)
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Cloud.DBPath
	}

	st, err := app.OpenReadOnlyStore(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return engine.New(st, nil), st, nil
}

type reportsListOptions struct {
	*ReportsOptions
	Filter store.Filter
}

func newReportsListCommand(reportsOpts *ReportsOptions) *cobra.Command {
	opts := &reportsListOptions{ReportsOptions: reportsOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored versions in sequence order",
		Example: `  reportsync reports list --db ./cloud.sqlite
  reportsync reports list --updated-by edge-alpha --after-seq 10 --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, st, err := openReconciler(opts.RootOptions, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := rec.Query(commandContext(cmd), opts.Filter)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to query versions", err)
			}
			return printRecords(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), records, "No versions found.")
		},
	}

	cmd.Flags().StringVar(&opts.Filter.ReportID, "report-id", "", "only this report")
	cmd.Flags().StringVar(&opts.Filter.Classification, "classification", "", "only this classification")
	cmd.Flags().StringVar(&opts.Filter.UpdatedBy, "updated-by", "", "only versions by this identity")
	cmd.Flags().Int64Var(&opts.Filter.AfterSeq, "after-seq", 0, "only versions after this sequence id")
	cmd.Flags().IntVar(&opts.Filter.Limit, "limit", 0, "maximum versions to list (0 = all)")

	return cmd
}

func newReportsLatestCommand(opts *ReportsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "latest",
		Short:         "Show the latest version of every report",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, st, err := openReconciler(opts.RootOptions, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := rec.Latest(commandContext(cmd))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to project latest", err)
			}
			return printRecords(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), records, "No reports found.")
		},
	}
}

func newReportsHistoryCommand(opts *ReportsOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <report_id>",
		Short:         "Show every stored version of one report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, st, err := openReconciler(opts.RootOptions, opts.Database)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := rec.History(commandContext(cmd), args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read history", err)
			}
			return printRecords(newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()), records,
				fmt.Sprintf("No versions of %s.", args[0]))
		},
	}
}

func printRecords(f *OutputFormatter, records []ir.Record, empty string) error {
	views := make([]api.RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, api.NewRecordView(rec))
	}
	return printViews(f, views, empty)
}

// printViews writes record views as a JSON response or an aligned table.
func printViews(f *OutputFormatter, views []api.RecordView, empty string) error {
	if views == nil {
		views = []api.RecordView{}
	}
	if f.JSON() {
		return f.Success(views)
	}

	if len(views) == 0 {
		fmt.Fprintln(f.Writer, empty)
		return nil
	}

	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tREPORT_ID\tUPDATED_AT\tUPDATED_BY\tCLASS\tTITLE")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			v.SequenceID, v.ReportID, v.UpdatedAt, v.UpdatedBy, v.Classification, v.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if f.Verbose {
		for _, v := range views {
			f.VerboseLog("%d digest=%s received_at=%s", v.SequenceID, v.Digest, v.ReceivedAt)
		}
	}
	return nil
}
