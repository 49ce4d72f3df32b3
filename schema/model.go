package schema

import (
	"fmt"
	"sort"
)

// Model is the fully resolved Schema Model for one (namespace, identifier,
// schema-version): the entity graph plus every derived DDL artifact (§4.1).
type Model struct {
	Namespace  string
	Identifier string

	Entities    []*Entity // topologically ordered, FK dependencies first
	ForeignKeys []ForeignKey
	JoinTables  []JoinTable
	Indexes     []Index

	byName map[string]*Entity
}

// Entity looks up an entity by name.
func (m *Model) Entity(name string) (*Entity, bool) {
	e, ok := m.byName[name]
	return e, ok
}

// Build validates a parsed Document and derives the full Schema Model:
// foreign keys, join tables, indices, and a topological table order (§4.1).
func Build(namespace, identifier string, doc *Document) (*Model, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	entities := doc.Entities

	byName := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
	}

	m := &Model{Namespace: namespace, Identifier: identifier, byName: byName}

	deps := map[string]map[string]bool{}
	for _, e := range entities {
		deps[e.Name] = map[string]bool{}
	}

	listCount := map[string]int{}
	for _, e := range entities {
		if e.Virtual {
			continue
		}
		for _, f := range e.Fields {
			if !f.IsReference {
				continue
			}
			ref, ok := byName[f.Entity]
			if !ok {
				return nil, NewSchemaError(e.Name, fmt.Sprintf("field %q references unknown type %q", f.Name, f.Entity))
			}

			if f.ListReference {
				if ref.Virtual {
					return nil, NewSchemaError(e.Name, fmt.Sprintf("field %q: many-to-many relations cannot target a @virtual entity", f.Name))
				}
				listCount[e.Name]++
				if listCount[e.Name] > MaxForeignKeyListFields {
					return nil, NewSchemaError(e.Name, fmt.Sprintf("more than %d many-to-many relations declared", MaxForeignKeyListFields))
				}
				jt := JoinTable{
					Name:        JoinTableName(e.Name, ref.Name),
					ParentTable: e.TableName(),
					ParentCol:   ToSnakeCase(e.Name) + "_id",
					ChildTable:  ref.TableName(),
					ChildCol:    ToSnakeCase(ref.Name) + "_id",
					FieldName:   f.Name,
				}
				m.JoinTables = append(m.JoinTables, jt)
				continue
			}

			if ref.Virtual {
				// Virtual singular references are embedded as JSON; no FK, no edge.
				continue
			}

			deps[e.Name][ref.Name] = true

			refCol := "id"
			refTy := ScalarUID
			if f.JoinOn != "" {
				target, ok := ref.Field(f.JoinOn)
				if !ok {
					return nil, NewSchemaError(e.Name, fmt.Sprintf("field %q: @join(on: %q) target field not found on %q", f.Name, f.JoinOn, ref.Name))
				}
				refCol = target.ColumnName()
				refTy = target.Type
			} else if id, ok := ref.Field("id"); ok {
				refTy = id.Type
			}

			fk := ForeignKey{
				Table:       e.TableName(),
				Column:      f.ColumnName(),
				RefTable:    ref.TableName(),
				RefColumn:   refCol,
				RefColumnTy: refTy,
				OnDelete:    NoAction,
				OnUpdate:    NoAction,
				Nullable:    !f.Required,
			}
			m.ForeignKeys = append(m.ForeignKeys, fk)
		}

		for _, f := range e.Fields {
			if f.IsReference {
				continue
			}
			if f.Unique {
				m.Indexes = append(m.Indexes, Index{
					Table: e.TableName(), Name: e.TableName() + "_" + f.ColumnName() + "_key",
					Columns: []string{f.ColumnName()}, Unique: true, Kind: IndexBTree,
				})
			} else if f.Indexed {
				kind := f.IndexKind
				if kind == "" {
					kind = IndexBTree
				}
				m.Indexes = append(m.Indexes, Index{
					Table: e.TableName(), Name: e.TableName() + "_" + f.ColumnName() + "_idx",
					Columns: []string{f.ColumnName()}, Unique: false, Kind: kind,
				})
			}
		}
	}

	ordered, err := topoSort(entities, deps)
	if err != nil {
		return nil, err
	}
	m.Entities = ordered

	nonVirtual := make([]*Entity, 0, len(ordered))
	for _, e := range ordered {
		if !e.Virtual {
			nonVirtual = append(nonVirtual, e)
		}
	}
	AssignTypeIDs(namespace, identifier, nonVirtual)

	return m, nil
}

// topoSort orders entities so that every foreign-key referent appears before
// its dependents (§4.1 "for DDL emission order"), using Kahn's algorithm.
// Ties are broken alphabetically for determinism across runs. Foreign-key
// constraints are emitted as a separate ALTER TABLE pass after every table is
// created (§4.2), so a reference cycle between entities (e.g. reciprocal
// O2O edges) is not a hard error here: once no zero-indegree node remains,
// the alphabetically-first remaining entity is placed next and its outgoing
// edges are forgiven, breaking the cycle.
func topoSort(entities []*Entity, deps map[string]map[string]bool) ([]*Entity, error) {
	byName := make(map[string]*Entity, len(entities))
	remaining := make(map[string]map[string]bool, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
		remaining[e.Name] = map[string]bool{}
		for ref := range deps[e.Name] {
			remaining[e.Name][ref] = true
		}
	}

	var out []*Entity
	placed := map[string]bool{}
	for len(out) < len(entities) {
		var ready []string
		for name, refs := range remaining {
			if placed[name] {
				continue
			}
			allPlaced := true
			for ref := range refs {
				if !placed[ref] {
					allPlaced = false
					break
				}
			}
			if allPlaced {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			// Cycle: break it by placing the alphabetically-first remaining entity.
			for name := range remaining {
				if !placed[name] {
					ready = append(ready, name)
				}
			}
		}
		sort.Strings(ready)
		n := ready[0]
		placed[n] = true
		out = append(out, byName[n])
	}
	return out, nil
}
