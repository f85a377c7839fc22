// Package catalog declares the versioned entity types of the open-data
// catalogue and their descriptors.
//
// A Descriptor binds a plain business-field struct to its continuity and
// revision tables. The store's generic repository works entirely through
// descriptors, so adding an entity type means adding a struct, a
// descriptor, and two tables in schema.sql; no per-entity persistence
// code is written by hand.
//
// Association entities (PackageTag, PackageGroup) and keyed attributes
// (PackageExtra) declare a natural key. The unit of work uses it to find
// and reuse an existing continuity row, in any state, instead of inserting
// a duplicate when the same association is removed and re-added.
package catalog
