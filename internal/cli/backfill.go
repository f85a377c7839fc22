package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewBackfillCommand creates the backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Recompute revision-row bookkeeping",
		Long: `Recompute the expiration bookkeeping of every revision table.

Orders each entity's history by revision timestamp and rewrites the
expired_id / expired_timestamp / current columns, then verifies the
single-current accounting. Safe to re-run; already-correct rows are
rewritten to the same values.

Examples:
  vdm backfill --db ./catalog.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(rootOpts, cmd)
		},
	}

	return cmd
}

func runBackfill(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Backfill(ctx); err != nil {
		return WrapExitError(ExitCommandError, "backfill failed", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success("Backfill complete.")
}
