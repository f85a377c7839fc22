package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencatalog/vdm/internal/store"
)

// ChangesResult holds the change listing for one revision, grouped by
// entity type.
type ChangesResult struct {
	Revision string                       `json:"revision"`
	Changes  map[string][]store.ChangeRow `json:"changes"`
}

// NewChangesCommand creates the changes command.
func NewChangesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes <revision-id>",
		Short: "List every row written by a revision",
		Long: `List every revision row stamped with a revision, grouped by entity type.

Used for audit: shows exactly which entities a revision touched and the
values it wrote.

Examples:
  vdm changes --db ./catalog.db 01f0c3a2
  vdm changes --db ./catalog.db 01f0c3a2 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChanges(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runChanges(opts *RootOptions, revisionID string, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	changes, err := st.ListChanges(ctx, revisionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("revision %s not found", revisionID))
		}
		return WrapExitError(ExitCommandError, "failed to list changes", err)
	}

	result := ChangesResult{Revision: revisionID, Changes: changes}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: result})
	}

	w := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintf(w, "Revision %s wrote no rows.\n", revisionID)
		return nil
	}

	// Sort entity names for deterministic output
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(w, "=== %s ===\n", name)
		for _, row := range changes[name] {
			marker := " "
			if row.Current {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s  %s  %s\n", marker, row.ContinuityID, row.State, formatFields(row.Fields))
		}
	}
	return nil
}

// formatFields renders a field map with sorted keys for deterministic
// output.
func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
