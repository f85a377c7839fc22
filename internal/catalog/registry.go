package catalog

// Entities returns the untyped registry of every versioned entity, in
// dependency order: association entities precede the entities they
// reference, so purge can delete rows without tripping foreign keys.
func Entities() []Entity {
	return []Entity{
		PackageTagDescriptor.Entity,
		PackageGroupDescriptor.Entity,
		PackageExtraDescriptor.Entity,
		PackageDescriptor.Entity,
		TagDescriptor.Entity,
		GroupDescriptor.Entity,
	}
}

// EntityByName looks up a registry entry, or false if the name is unknown.
func EntityByName(name string) (Entity, bool) {
	for _, e := range Entities() {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}
