package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencatalog/vdm/internal/vdm"
)

// LogEntry is one revision in the log output.
type LogEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Author    string `json:"author"`
	Message   string `json:"message"`
	State     string `json:"state"`
	Approved  string `json:"approved,omitempty"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "List revisions, newest first",
		Long: `List every revision in the database, newest first.

Revisions created in the same instant are ordered by id, so the listing
is stable across runs.

Examples:
  vdm log --db ./catalog.db
  vdm log --db ./catalog.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(rootOpts, cmd)
		},
	}

	return cmd
}

func runLog(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	revisions, err := st.ListRevisions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list revisions", err)
	}

	entries := make([]LogEntry, 0, len(revisions))
	for _, rev := range revisions {
		entry := LogEntry{
			ID:        rev.ID,
			Timestamp: vdm.FormatTime(rev.Timestamp),
			Author:    rev.Author,
			Message:   rev.Message,
			State:     string(rev.State),
		}
		if rev.ApprovedAt != nil {
			entry.Approved = vdm.FormatTime(*rev.ApprovedAt)
		}
		entries = append(entries, entry)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: entries})
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No revisions.")
		return nil
	}
	for _, e := range entries {
		approved := ""
		if e.Approved != "" {
			approved = " (approved)"
		}
		fmt.Fprintf(w, "%s  %s  %s%s\n", e.ID, e.Timestamp, e.Author, approved)
		if e.Message != "" {
			fmt.Fprintf(w, "    %s\n", e.Message)
		}
	}
	return nil
}
