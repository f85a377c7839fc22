package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencatalog/vdm/internal/store"
)

// VerifyResult holds the consistency scan outcome.
type VerifyResult struct {
	Consistent bool              `json:"consistent"`
	Violations []store.Violation `json:"violations,omitempty"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check structural invariants",
		Long: `Scan every revision table for structural invariant violations:
exactly one current row per entity, coherent current flags, gapless
interval chains, and revision timestamps matching their revision.

Violations are reported, never repaired. Exits 1 if any are found.

Examples:
  vdm verify --db ./catalog.db
  vdm verify --db ./catalog.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}

	return cmd
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer st.Close()

	violations, err := st.VerifyConsistency(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "verification failed to run", err)
	}

	result := VerifyResult{
		Consistent: len(violations) == 0,
		Violations: violations,
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(CLIResponse{Status: "ok", Data: result}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		if result.Consistent {
			fmt.Fprintln(w, "OK: all invariants hold.")
		} else {
			fmt.Fprintf(w, "FAIL: %d violation(s):\n", len(violations))
			for _, v := range violations {
				fmt.Fprintf(w, "  %s\n", v)
			}
		}
	}

	if !result.Consistent {
		return NewExitError(ExitFailure, fmt.Sprintf("%d consistency violation(s) found", len(violations)))
	}
	return nil
}
