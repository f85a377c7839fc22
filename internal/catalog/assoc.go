package catalog

// PackageTag is the versioned many-to-many association between a package
// and a tag. The pair of continuity ids is its natural key: removing and
// re-adding the same pair must reuse one continuity row, never create a
// second one.
type PackageTag struct {
	PackageID string
	TagID     string
}

// PackageTagDescriptor maps PackageTag onto package_tag/package_tag_revision.
var PackageTagDescriptor = Descriptor[PackageTag]{
	Entity: Entity{
		Name:          "package_tag",
		Table:         "package_tag",
		RevisionTable: "package_tag_revision",
		Columns:       []string{"package_id", "tag_id"},
		NaturalKey:    []string{"package_id", "tag_id"},
		Refs: []Ref{
			{Column: "package_id", Entity: "package"},
			{Column: "tag_id", Entity: "tag"},
		},
	},
	Values: func(pt PackageTag) []any { return []any{pt.PackageID, pt.TagID} },
	Ptrs:   func(pt *PackageTag) []any { return []any{&pt.PackageID, &pt.TagID} },
	Fields: func(pt PackageTag) map[string]string {
		return map[string]string{
			"package_id": pt.PackageID,
			"tag_id":     pt.TagID,
		}
	},
	Key: func(pt PackageTag) []any { return []any{pt.PackageID, pt.TagID} },
}

// PackageGroup is the versioned membership of a package in a group.
type PackageGroup struct {
	PackageID string
	GroupID   string
}

// PackageGroupDescriptor maps PackageGroup onto package_group/package_group_revision.
var PackageGroupDescriptor = Descriptor[PackageGroup]{
	Entity: Entity{
		Name:          "package_group",
		Table:         "package_group",
		RevisionTable: "package_group_revision",
		Columns:       []string{"package_id", "group_id"},
		NaturalKey:    []string{"package_id", "group_id"},
		Refs: []Ref{
			{Column: "package_id", Entity: "package"},
			{Column: "group_id", Entity: "group"},
		},
	},
	Values: func(pg PackageGroup) []any { return []any{pg.PackageID, pg.GroupID} },
	Ptrs:   func(pg *PackageGroup) []any { return []any{&pg.PackageID, &pg.GroupID} },
	Fields: func(pg PackageGroup) map[string]string {
		return map[string]string{
			"package_id": pg.PackageID,
			"group_id":   pg.GroupID,
		}
	},
	Key: func(pg PackageGroup) []any { return []any{pg.PackageID, pg.GroupID} },
}
