package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opencatalog/vdm/internal/vdm"
)

// DiffOptions holds flags for the diff command.
type DiffOptions struct {
	*RootOptions
	From string // optional revision id for the older side
	To   string // optional revision id for the newer side
}

// DiffResult holds the per-field deltas of one entity between two
// revisions.
type DiffResult struct {
	Entity       string            `json:"entity"`
	ContinuityID string            `json:"continuity_id"`
	From         string            `json:"from,omitempty"`
	To           string            `json:"to,omitempty"`
	Fields       map[string]string `json:"fields"`
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DiffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "diff <entity> <continuity-id>",
		Short: "Diff an entity's fields between two revisions",
		Long: `Diff a continuity entity's fields between two revisions.

Without --from and --to, diffs the entity's two most recent revision
rows. Changed scalar fields render as "- old" / "+ new"; multi-line
fields render as a unified diff.

Examples:
  vdm diff --db ./catalog.db package 7f3a...
  vdm diff --db ./catalog.db package 7f3a... --from 01f0c3a2 --to 01f0c4b9`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "older revision id (default: second most recent row)")
	cmd.Flags().StringVar(&opts.To, "to", "", "newer revision id (default: most recent row)")

	return cmd
}

func runDiff(opts *DiffOptions, entity, continuityID string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer st.Close()

	from, err := resolveRevision(ctx, st, opts.From)
	if err != nil {
		return err
	}
	to, err := resolveRevision(ctx, st, opts.To)
	if err != nil {
		return err
	}

	fields, err := st.DiffFields(ctx, entity, continuityID, from, to)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to diff", err)
	}

	result := DiffResult{
		Entity:       entity,
		ContinuityID: continuityID,
		From:         opts.From,
		To:           opts.To,
		Fields:       fields,
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	if len(fields) == 0 {
		fmt.Fprintln(w, "No differences.")
		return nil
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "--- %s\n%s\n", name, fields[name])
	}
	return nil
}

// resolveRevision loads a revision by id, or returns nil for an empty id.
func resolveRevision(ctx context.Context, st revisionGetter, id string) (*vdm.Revision, error) {
	if id == "" {
		return nil, nil
	}
	rev, err := st.GetRevision(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("revision %s not found", id))
		}
		return nil, WrapExitError(ExitCommandError, "failed to load revision", err)
	}
	return &rev, nil
}

// revisionGetter is the subset of the store the diff command reads
// revisions through.
type revisionGetter interface {
	GetRevision(ctx context.Context, id string) (vdm.Revision, error)
}
