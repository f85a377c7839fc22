package catalog

// Scanner is the subset of sql.Row and sql.Rows used by descriptors.
type Scanner interface {
	Scan(dest ...any) error
}

// Ref declares a foreign-key reference from one entity's column to another
// entity's continuity table. Purge uses refs to remove association rows
// together with a purged continuity row.
type Ref struct {
	// Column is the referencing column on this entity.
	Column string

	// Entity is the name of the referenced entity.
	Entity string
}

// Entity is the untyped view of a descriptor. The store's cross-entity
// operations (purge, backfill, verify, change listing) iterate the registry
// of entities without knowing the business-field struct.
type Entity struct {
	// Name is the entity name, e.g. "package".
	Name string

	// Table is the continuity table holding the identity anchor and a
	// cache of the current field values.
	Table string

	// RevisionTable holds the historical revision rows.
	RevisionTable string

	// Columns are the business columns, in a fixed order shared by
	// Values and Ptrs.
	Columns []string

	// NaturalKey names the columns forming the entity's natural key, or
	// nil for entities addressed by continuity id only.
	NaturalKey []string

	// Refs lists foreign-key references to other entities.
	Refs []Ref
}

// Descriptor binds a business-field struct T to its table pair.
//
// Values, Ptrs and Fields must agree with Columns on order and length.
// Business columns are TEXT; richer field types belong in the struct's
// own accessors, not in the storage mapping.
type Descriptor[T any] struct {
	Entity

	// Values returns the column values of v in Columns order.
	Values func(v T) []any

	// Ptrs returns scan destinations into v in Columns order.
	Ptrs func(v *T) []any

	// Fields returns a field-name to rendered-value map used by the
	// diff engine.
	Fields func(v T) map[string]string

	// Key returns the natural-key values of v, in NaturalKey order.
	// Nil for entities without a natural key.
	Key func(v T) []any
}
