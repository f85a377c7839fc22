package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/store"
	"github.com/opencatalog/vdm/internal/testutil"
)

// seedDatabase creates a database with one package across two revisions
// and returns its path plus the revision ids, oldest first.
func seedDatabase(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "catalog.db")
	clock := testutil.NewFixedClock(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(path, store.WithClock(clock))
	require.NoError(t, err)
	defer s.Close()

	pkgs := store.NewRepository(s, catalog.PackageDescriptor)

	var ids []string
	for _, lic := range []string{"L1", "L2"} {
		clock.Advance(time.Hour)
		u, err := s.Begin(ctx)
		require.NoError(t, err)
		rev := s.NewRevision("seeder", "set license "+lic)
		require.NoError(t, u.SetRevision(rev))
		if lic == "L1" {
			require.NoError(t, pkgs.Create(u, "pkg-anna", catalog.Package{Name: "anna", License: lic}))
		} else {
			require.NoError(t, pkgs.Update(u, "pkg-anna", catalog.Package{Name: "anna", License: lic}))
		}
		require.NoError(t, u.Commit(ctx))
		ids = append(ids, rev.ID)
	}
	return path, ids
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestLogCommand(t *testing.T) {
	path, _ := seedDatabase(t)

	out, err := execute(t, "log", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeder")
	assert.Contains(t, out, "set license L2")
}

func TestLogCommand_JSON(t *testing.T) {
	path, ids := seedDatabase(t)

	out, err := execute(t, "log", "--db", path, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []LogEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	// Youngest first
	assert.Equal(t, ids[1], resp.Data[0].ID)
}

func TestChangesCommand(t *testing.T) {
	path, ids := seedDatabase(t)

	out, err := execute(t, "changes", "--db", path, ids[1])
	require.NoError(t, err)
	assert.Contains(t, out, "package")
	assert.Contains(t, out, "license=L2")
}

func TestChangesCommand_UnknownRevision(t *testing.T) {
	path, _ := seedDatabase(t)

	_, err := execute(t, "changes", "--db", path, "no-such-revision")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDiffCommand(t *testing.T) {
	path, ids := seedDatabase(t)

	out, err := execute(t, "diff", "--db", path, "package", "pkg-anna",
		"--from", ids[0], "--to", ids[1])
	require.NoError(t, err)
	assert.Contains(t, out, "- L1")
	assert.Contains(t, out, "+ L2")
}

func TestDiffCommand_DefaultsToLatestPair(t *testing.T) {
	path, _ := seedDatabase(t)

	out, err := execute(t, "diff", "--db", path, "package", "pkg-anna")
	require.NoError(t, err)
	assert.Contains(t, out, "- L1")
	assert.Contains(t, out, "+ L2")
}

func TestPurgeCommand_RequiresConfirmation(t *testing.T) {
	path, ids := seedDatabase(t)

	_, err := execute(t, "purge", "--db", path, ids[1])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestPurgeCommand(t *testing.T) {
	path, ids := seedDatabase(t)

	out, err := execute(t, "purge", "--db", path, ids[1], "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged revision")

	// The purged revision no longer lists any changes
	out, err = execute(t, "changes", "--db", path, ids[1])
	require.NoError(t, err)
	assert.Contains(t, out, "wrote no rows")
}

func TestBackfillCommand(t *testing.T) {
	path, _ := seedDatabase(t)

	out, err := execute(t, "backfill", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Backfill complete")
}

func TestVerifyCommand_Clean(t *testing.T) {
	path, _ := seedDatabase(t)

	out, err := execute(t, "verify", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestVerifyCommand_Violations(t *testing.T) {
	path, _ := seedDatabase(t)

	// Corrupt the database directly
	s, err := store.Open(path)
	require.NoError(t, err)
	_, err = s.DB().Exec(`UPDATE package_revision SET is_current = 0`)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	out, execErr := execute(t, "verify", "--db", path)
	require.Error(t, execErr)
	assert.Equal(t, ExitFailure, GetExitCode(execErr))
	assert.Contains(t, out, "FAIL")
}
