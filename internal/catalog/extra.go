package catalog

// PackageExtra is a versioned key-value attribute on a package. The
// (package, key) pair is its natural key, so deleting and re-setting the
// same key reuses one continuity row.
type PackageExtra struct {
	PackageID string
	Key       string
	Value     string
}

// PackageExtraDescriptor maps PackageExtra onto package_extra/package_extra_revision.
var PackageExtraDescriptor = Descriptor[PackageExtra]{
	Entity: Entity{
		Name:          "package_extra",
		Table:         "package_extra",
		RevisionTable: "package_extra_revision",
		Columns:       []string{"package_id", "key", "value"},
		NaturalKey:    []string{"package_id", "key"},
		Refs: []Ref{
			{Column: "package_id", Entity: "package"},
		},
	},
	Values: func(e PackageExtra) []any { return []any{e.PackageID, e.Key, e.Value} },
	Ptrs:   func(e *PackageExtra) []any { return []any{&e.PackageID, &e.Key, &e.Value} },
	Fields: func(e PackageExtra) map[string]string {
		return map[string]string{
			"package_id": e.PackageID,
			"key":        e.Key,
			"value":      e.Value,
		}
	},
	Key: func(e PackageExtra) []any { return []any{e.PackageID, e.Key} },
}
