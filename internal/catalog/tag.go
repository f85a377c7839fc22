package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tag is a flat label attachable to packages. Tags are unique by
// normalized name.
type Tag struct {
	Name string
}

// NormalizeTagName lowercases, trims, and NFC-normalizes a tag name so
// that visually identical names share one continuity row.
func NormalizeTagName(name string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))
}

// TagDescriptor maps Tag onto tag/tag_revision.
var TagDescriptor = Descriptor[Tag]{
	Entity: Entity{
		Name:          "tag",
		Table:         "tag",
		RevisionTable: "tag_revision",
		Columns:       []string{"name"},
		NaturalKey:    []string{"name"},
	},
	Values: func(t Tag) []any { return []any{t.Name} },
	Ptrs:   func(t *Tag) []any { return []any{&t.Name} },
	Fields: func(t Tag) map[string]string {
		return map[string]string{"name": t.Name}
	},
	Key: func(t Tag) []any { return []any{t.Name} },
}
