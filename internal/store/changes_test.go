package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/vdm/internal/catalog"
	"github.com/opencatalog/vdm/internal/vdm"
)

func TestListChanges_UnknownRevision(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.ListChanges(context.Background(), "no-such-revision")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListChanges_EmptyRevision(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Begin(ctx)
	require.NoError(t, err)
	rev := s.NewRevision("tester", "empty")
	require.NoError(t, u.SetRevision(rev))
	// Bound but unused revisions still commit (and are listed empty)
	require.NoError(t, u.Commit(ctx))

	changes, err := s.ListChanges(ctx, rev.ID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestListChanges_GroupsByEntity(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	commitPackage(t, s, "pkg-1", catalog.Package{Name: "anna", License: "L1"})

	// One revision touches the package, a tag, and their link
	clock.Advance(time.Hour)
	u, err := s.Begin(ctx)
	require.NoError(t, err)
	rev := s.NewRevision("tester", "retag")
	require.NoError(t, u.SetRevision(rev))

	pkgs := NewRepository(s, catalog.PackageDescriptor)
	tags := NewRepository(s, catalog.TagDescriptor)
	links := NewRepository(s, catalog.PackageTagDescriptor)

	require.NoError(t, pkgs.Update(u, "pkg-1", catalog.Package{Name: "anna", License: "L2"}))
	tagID, err := tags.Add(u, catalog.Tag{Name: "geo"})
	require.NoError(t, err)
	_, err = links.Add(u, catalog.PackageTag{PackageID: "pkg-1", TagID: tagID})
	require.NoError(t, err)
	require.NoError(t, u.Commit(ctx))

	changes, err := s.ListChanges(ctx, rev.ID)
	require.NoError(t, err)
	require.Len(t, changes, 3)

	require.Len(t, changes["package"], 1)
	pkg := changes["package"][0]
	assert.Equal(t, "pkg-1", pkg.ContinuityID)
	assert.Equal(t, vdm.StateActive, pkg.State)
	assert.True(t, pkg.Current)
	assert.Equal(t, "L2", pkg.Fields["license"])

	require.Len(t, changes["tag"], 1)
	assert.Equal(t, "geo", changes["tag"][0].Fields["name"])

	require.Len(t, changes["package_tag"], 1)
	assert.Equal(t, tagID, changes["package_tag"][0].Fields["tag_id"])
}

func TestListChanges_OnlyTheGivenRevision(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	rev1 := commitPackage(t, s, "pkg-1", catalog.Package{Name: "anna", License: "L1"})
	clock.Advance(time.Hour)
	commitUpdate(t, s, "pkg-1", catalog.Package{Name: "anna", License: "L2"})

	changes, err := s.ListChanges(ctx, rev1.ID)
	require.NoError(t, err)
	require.Len(t, changes["package"], 1)
	assert.Equal(t, "L1", changes["package"][0].Fields["license"])
	assert.False(t, changes["package"][0].Current, "rev1's row was superseded")
}
