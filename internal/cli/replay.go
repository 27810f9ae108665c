package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the version history and verify the projection is deterministic",
		Long: `Re-read every stored version and compute the latest projection twice,
once in sequence order and once in reverse, then compare the projection
digests.

Equal digests mean every reader sees the same latest state for this history
no matter how it scans it.

Exit codes:
  0 - Projection is deterministic
  1 - Determinism verification failed (digests differ)
  2 - Command error (database not found, etc.)

Examples:
  reportsync replay --db ./cloud.sqlite
  reportsync replay --db ./cloud.sqlite --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the Version Store (defaults to cloud.db_path)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	rec, st, err := openReconciler(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := rec.Replay(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay history", err)
	}

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if f.JSON() {
		if !result.Identical {
			if err := f.Failure("E_DETERMINISM", "determinism verification failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "determinism verification failed")
		}
		return f.Success(result)
	}

	w := f.Writer
	if result.Versions == 0 {
		fmt.Fprintln(w, "No versions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d version(s), %d report(s)\n", result.Versions, result.Reports)
	if opts.Verbose {
		fmt.Fprintf(w, "  Projection digest: %s\n", result.Digest)
	}

	if result.Identical {
		fmt.Fprintf(w, "%s Projection verified deterministic\n", markOK)
		return nil
	}

	fmt.Fprintf(w, "%s Determinism verification failed\n", markFail)
	return NewExitError(ExitFailure, "determinism verification failed")
}
