package catalog

// Group is a curated collection of packages.
type Group struct {
	Name        string
	Title       string
	Description string
}

// GroupDescriptor maps Group onto "grp"/grp_revision. The table is named
// grp because GROUP is reserved in SQL.
var GroupDescriptor = Descriptor[Group]{
	Entity: Entity{
		Name:          "group",
		Table:         "grp",
		RevisionTable: "grp_revision",
		Columns:       []string{"name", "title", "description"},
	},
	Values: func(g Group) []any { return []any{g.Name, g.Title, g.Description} },
	Ptrs:   func(g *Group) []any { return []any{&g.Name, &g.Title, &g.Description} },
	Fields: func(g Group) map[string]string {
		return map[string]string{
			"name":        g.Name,
			"title":       g.Title,
			"description": g.Description,
		}
	},
}
