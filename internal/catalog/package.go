package catalog

// Package is a dataset record, the central continuity entity of the
// catalogue. Business fields only; identity and state bookkeeping live on
// the continuity and revision rows.
type Package struct {
	Name    string
	Title   string
	URL     string
	Notes   string
	License string
}

// PackageDescriptor maps Package onto package/package_revision.
var PackageDescriptor = Descriptor[Package]{
	Entity: Entity{
		Name:          "package",
		Table:         "package",
		RevisionTable: "package_revision",
		Columns:       []string{"name", "title", "url", "notes", "license"},
	},
	Values: func(p Package) []any {
		return []any{p.Name, p.Title, p.URL, p.Notes, p.License}
	},
	Ptrs: func(p *Package) []any {
		return []any{&p.Name, &p.Title, &p.URL, &p.Notes, &p.License}
	},
	Fields: func(p Package) map[string]string {
		return map[string]string{
			"name":    p.Name,
			"title":   p.Title,
			"url":     p.URL,
			"notes":   p.Notes,
			"license": p.License,
		}
	},
}
