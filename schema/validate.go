package schema

import "fmt"

// Validate runs every fatal-at-registration validation rule from §4.1 over a
// parsed Document. Every rule except 6 is checked here, so a user sees each
// problem class reported consistently, even though rules 1/2 are already
// enforced incidentally while parsing (parse.go). Rule 6 (nested lists) is
// enforced only by Parse, since a Document cannot hold a nested list.
// Re-checking here keeps Validate the
// single authority callers (e.g. the service package, before running DDL)
// can rely on without re-parsing.
func Validate(doc *Document) error {
	byName := make(map[string]*Entity, len(doc.Entities))
	for _, e := range doc.Entities {
		byName[e.Name] = e
	}

	for _, e := range doc.Entities {
		// Rule 1: reserved type names may not be redefined (also enforced in Parse).
		if IsReserved(e.Name) {
			return NewSchemaError(e.Name, fmt.Sprintf("%q redefines a reserved type name", e.Name))
		}

		idField, hasID := e.Field("id")

		// Rule 3: virtual entities may not declare an id column.
		if e.Virtual && hasID {
			return NewSchemaError(e.Name, "@virtual entities may not declare an \"id\" column")
		}

		// Rule 2: a field named id must have type ID! or UID! (re-checked for defense in depth).
		if hasID && idField.Type != ScalarID && idField.Type != ScalarUID {
			return NewSchemaError(e.Name, "field \"id\" must have type ID! or UID!")
		}

		listRefs := 0
		for _, f := range e.Fields {
			// Rule 4: a foreign-key field may not also carry @unique.
			if f.IsReference && !f.ListReference && f.Unique {
				return NewSchemaError(e.Name, fmt.Sprintf("field %q: a foreign-key field may not also be @unique (use @join on the referent instead)", f.Name))
			}

			if f.ListReference {
				listRefs++
				// Rule 7: many-to-many relations may only reference id: ID! on the child.
				if f.JoinOn != "" {
					return NewSchemaError(e.Name, fmt.Sprintf("field %q: many-to-many relations may only reference \"id\" on the child, not @join", f.Name))
				}
				if ref, ok := byName[f.Entity]; ok {
					if rid, ok := ref.Field("id"); !ok || (rid.Type != ScalarID && rid.Type != ScalarUID) {
						return NewSchemaError(e.Name, fmt.Sprintf("field %q: many-to-many child %q must declare id: ID!", f.Name, f.Entity))
					}
				}
			}
		}
		if listRefs > MaxForeignKeyListFields {
			return NewSchemaError(e.Name, fmt.Sprintf("more than %d many-to-many relations declared", MaxForeignKeyListFields))
		}
	}

	// Rule 5: union member entities must be uniformly virtual or uniformly non-virtual.
	// Rule 8: a derived union field must have a single consistent scalar id type across all members.
	for name, members := range doc.Unions {
		if len(members) == 0 {
			continue
		}
		var virtualSeen, concreteSeen bool
		var idType ScalarType
		for i, mn := range members {
			m, ok := byName[mn]
			if !ok {
				return NewSchemaError(name, fmt.Sprintf("union member %q is not a declared entity", mn))
			}
			if m.Virtual {
				virtualSeen = true
			} else {
				concreteSeen = true
			}
			if !m.Virtual {
				if id, ok := m.Field("id"); ok {
					if i == 0 || idType == "" {
						idType = id.Type
					} else if idType != id.Type {
						return NewSchemaError(name, "union members must share a single consistent id scalar type")
					}
				}
			}
		}
		if virtualSeen && concreteSeen {
			return NewSchemaError(name, "union members must be uniformly @virtual or uniformly non-virtual")
		}
	}

	return nil
}
