package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	Yes bool
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge <revision-id>",
		Short: "Physically delete a revision's rows",
		Long: `Physically delete every revision row stamped with a revision.

The revision record itself is kept as an audit entry. Entities whose
only history was this revision are removed entirely. This operation is
irreversible, so it requires --yes.

Examples:
  vdm purge --db ./catalog.db 01f0c3a2 --yes`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the irreversible purge")

	return cmd
}

func runPurge(opts *PurgeOptions, revisionID string, cmd *cobra.Command) error {
	if !opts.Yes {
		return NewExitError(ExitCommandError, "purge is irreversible; re-run with --yes to confirm")
	}

	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.PurgeRevision(ctx, revisionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("revision %s not found", revisionID))
		}
		return WrapExitError(ExitCommandError, "failed to purge revision", err)
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	return formatter.Success(fmt.Sprintf("Purged revision %s.", revisionID))
}
