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

// assocFixture creates a package and a tag, each in its own revision,
// and returns their continuity ids.
func assocFixture(t *testing.T, s *Store) (pkgID, tagID string) {
	t.Helper()
	ctx := context.Background()

	commitPackage(t, s, "pkg-1", catalog.Package{Name: "anna"})

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback()
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "add tag")))

	tags := NewRepository(s, catalog.TagDescriptor)
	tagID, err = tags.Add(u, catalog.Tag{Name: "geo"})
	require.NoError(t, err)
	require.NoError(t, u.Commit(ctx))

	return "pkg-1", tagID
}

func TestAssociation_AddReturnsContinuityID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	pkgID, tagID := assocFixture(t, s)

	links := NewRepository(s, catalog.PackageTagDescriptor)

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback()
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "link")))

	linkID, err := links.Add(u, catalog.PackageTag{PackageID: pkgID, TagID: tagID})
	require.NoError(t, err)
	assert.NotEmpty(t, linkID)

	// Adding the same pair again inside the same unit of work resolves
	// to the same continuity row.
	again, err := links.Add(u, catalog.PackageTag{PackageID: pkgID, TagID: tagID})
	require.NoError(t, err)
	assert.Equal(t, linkID, again)

	require.NoError(t, u.Commit(ctx))
}

func TestAssociation_RemoveThenReAddSameUnitOfWork(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	pkgID, tagID := assocFixture(t, s)
	links := NewRepository(s, catalog.PackageTagDescriptor)
	pair := catalog.PackageTag{PackageID: pkgID, TagID: tagID}

	clock.Advance(time.Hour)
	u, err := s.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback()
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "link")))
	linkID, err := links.Add(u, pair)
	require.NoError(t, err)
	require.NoError(t, u.Commit(ctx))

	// Remove and re-add within one unit of work. The staged change
	// collapses: one continuity row, one revision row, final state active.
	clock.Advance(time.Hour)
	u, err = s.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback()
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "rewrite tag list")))
	require.NoError(t, links.Remove(u, pair))
	reAdded, err := links.Add(u, pair)
	require.NoError(t, err)
	assert.Equal(t, linkID, reAdded, "re-add must reuse the existing continuity row")
	require.NoError(t, u.Commit(ctx))

	var continuityCount int
	require.NoError(t, s.db.QueryRow(
		"SELECT COUNT(*) FROM package_tag WHERE package_id = ? AND tag_id = ?", pkgID, tagID,
	).Scan(&continuityCount))
	assert.Equal(t, 1, continuityCount, "never two continuity rows for the same pair")

	history, err := links.AllRevisions(ctx, linkID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, vdm.StateActive, history[0].State)
	assert.True(t, history[0].Current)

	assertSingleCurrent(t, s, "package_tag_revision", linkID)
}

func TestAssociation_RemoveThenReAddAcrossRevisions(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	pkgID, tagID := assocFixture(t, s)
	links := NewRepository(s, catalog.PackageTagDescriptor)
	pair := catalog.PackageTag{PackageID: pkgID, TagID: tagID}

	var linkID string
	steps := []struct {
		message string
		mutate  func(u *UnitOfWork) error
	}{
		{"link", func(u *UnitOfWork) error {
			var err error
			linkID, err = links.Add(u, pair)
			return err
		}},
		{"unlink", func(u *UnitOfWork) error {
			return links.Remove(u, pair)
		}},
		{"relink", func(u *UnitOfWork) error {
			id, err := links.Add(u, pair)
			if err == nil {
				assert.Equal(t, linkID, id, "cross-revision re-add must reuse the deleted continuity row")
			}
			return err
		}},
	}

	for _, step := range steps {
		clock.Advance(time.Hour)
		u, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, u.SetRevision(s.NewRevision("tester", step.message)))
		require.NoError(t, step.mutate(u))
		require.NoError(t, u.Commit(ctx))
	}

	history, err := links.AllRevisions(ctx, linkID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, vdm.StateActive, history[0].State)
	assert.Equal(t, vdm.StateDeleted, history[1].State)
	assert.Equal(t, vdm.StateActive, history[2].State)

	assertSingleCurrent(t, s, "package_tag_revision", linkID)
}

func TestAssociation_AddActiveUnmodifiedIsNoop(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	pkgID, tagID := assocFixture(t, s)
	links := NewRepository(s, catalog.PackageTagDescriptor)
	pair := catalog.PackageTag{PackageID: pkgID, TagID: tagID}

	clock.Advance(time.Hour)
	u, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "link")))
	linkID, err := links.Add(u, pair)
	require.NoError(t, err)
	require.NoError(t, u.Commit(ctx))

	// Re-adding an already-active pair in a later revision writes no
	// new revision row.
	clock.Advance(time.Hour)
	u, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "redundant link")))
	_, err = links.Add(u, pair)
	require.NoError(t, err)
	require.NoError(t, u.Commit(ctx))

	history, err := links.AllRevisions(ctx, linkID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAssociation_RemoveAbsentPair(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	links := NewRepository(s, catalog.PackageTagDescriptor)

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback()
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "")))

	err = links.Remove(u, catalog.PackageTag{PackageID: "nope", TagID: "nada"})
	require.Error(t, err)
	assert.True(t, vdm.IsConfigurationError(err))
}

func TestPackageExtra_ReSetReusesContinuityRow(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()
	commitPackage(t, s, "pkg-1", catalog.Package{Name: "anna"})

	extras := NewRepository(s, catalog.PackageExtraDescriptor)
	extra := catalog.PackageExtra{PackageID: "pkg-1", Key: "spatial", Value: "true"}

	clock.Advance(time.Hour)
	u, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "set extra")))
	extraID, err := extras.Add(u, extra)
	require.NoError(t, err)
	require.NoError(t, u.Commit(ctx))

	// Changing the value reuses the (package, key) continuity row.
	clock.Advance(time.Hour)
	u, err = s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.SetRevision(s.NewRevision("tester", "update extra")))
	extra.Value = "false"
	sameID, err := extras.Add(u, extra)
	require.NoError(t, err)
	assert.Equal(t, extraID, sameID)
	require.NoError(t, u.Commit(ctx))

	row, err := extras.Get(ctx, extraID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "false", row.Value.Value)
}
