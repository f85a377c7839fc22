package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/vdm"
)

// seedLegacyHistory inserts revision rows the way a pre-bookkeeping
// importer would: revision_id populated, expiration columns blank.
func seedLegacyHistory(t *testing.T, s *Store, continuityID string, licenses []string) []vdm.Revision {
	t.Helper()

	_, err := s.db.Exec(
		`INSERT INTO package (id, name, license, state) VALUES (?, 'anna', 'stale', 'active')`,
		continuityID)
	require.NoError(t, err)

	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	revisions := make([]vdm.Revision, len(licenses))
	for i, lic := range licenses {
		rev := vdm.Revision{
			ID:        string(rune('a'+i)) + "-legacy",
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Author:    "importer",
			State:     vdm.StateActive,
		}
		revisions[i] = rev

		_, err := s.db.Exec(
			`INSERT INTO revision (id, timestamp, author, message, state) VALUES (?, ?, 'importer', '', 'active')`,
			rev.ID, vdm.FormatTime(rev.Timestamp))
		require.NoError(t, err)

		_, err = s.db.Exec(`
			INSERT INTO package_revision
				(id, continuity_id, revision_id, name, license, state, revision_timestamp, expired_timestamp, is_current)
			VALUES (?, ?, ?, 'anna', ?, 'active', '', '', 0)
		`, rev.ID+"-row", continuityID, rev.ID, lic)
		require.NoError(t, err)
	}
	return revisions
}

func TestBackfill_LegacyRows(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	pkgs := NewRepository(s, catalog.PackageDescriptor)

	revisions := seedLegacyHistory(t, s, "pkg-legacy", []string{"L1", "L2", "L3"})

	require.NoError(t, s.Backfill(ctx))

	history, err := pkgs.AllRevisions(ctx, "pkg-legacy")
	require.NoError(t, err)
	require.Len(t, history, 3)

	// Newest row is current and open-ended
	assert.True(t, history[0].Current)
	assert.True(t, vdm.IsSentinel(history[0].ExpiredTimestamp))
	assert.Nil(t, history[0].ExpiredID)
	assert.Equal(t, "L3", history[0].Value.License)

	// Each older row expires exactly at its successor's start and points
	// at it
	for i := 0; i < len(history)-1; i++ {
		older, newer := history[i+1], history[i]
		assert.False(t, older.Current)
		require.NotNil(t, older.ExpiredID)
		assert.Equal(t, newer.ID, *older.ExpiredID)
		assert.True(t, older.ExpiredTimestamp.Equal(newer.RevisionTimestamp))
	}

	// revision_timestamp is rewritten from the owning revision
	for i, row := range history {
		want := revisions[len(revisions)-1-i].Timestamp
		assert.True(t, row.RevisionTimestamp.Equal(want), "row %d timestamp", i)
	}

	assertSingleCurrent(t, s, "package_revision", "pkg-legacy")
}

func TestBackfill_RefreshesContinuityCache(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	pkgs := NewRepository(s, catalog.PackageDescriptor)

	seedLegacyHistory(t, s, "pkg-legacy", []string{"L1", "L2"})
	require.NoError(t, s.Backfill(ctx))

	// The continuity row's stale cached values are rewritten from the
	// newly current revision row.
	row, err := pkgs.Get(ctx, "pkg-legacy")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "L2", row.Value.License)
}

func TestBackfill_Idempotent(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	pkgs := NewRepository(s, catalog.PackageDescriptor)

	commitPackage(t, s, "pkg-1", catalog.Package{Name: "anna", License: "L1"})
	clock.Advance(time.Hour)
	commitUpdate(t, s, "pkg-1", catalog.Package{Name: "anna", License: "L2"})

	before, err := pkgs.AllRevisions(ctx, "pkg-1")
	require.NoError(t, err)

	// Rows written by the live flush path already carry correct
	// bookkeeping; backfill must leave them unchanged.
	require.NoError(t, s.Backfill(ctx))

	after, err := pkgs.AllRevisions(ctx, "pkg-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestBackfill_EmptyDatabase(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Backfill(context.Background()))
}
