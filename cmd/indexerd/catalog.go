package main

import (
	"github.com/syssam/indexerd/codec"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

// modelCatalog derives the per-type-id table name and column layout a
// running indexer's Schema Model implies, giving the Database Adapter
// (db.TableResolver) and the Runtime Host (runtime.ColumnResolver) a shared
// source of truth without either reparsing SDL (§5, §9 "Schema-as-data").
//
// TableForType returns the same namespace-qualified/prefixed identifier
// ddl.Build used when creating the table (ddl.QualifiedTable), already
// quoted, so callers must use it as-is rather than re-quoting a bare name.
type modelCatalog struct {
	tableByType   map[uint64]string
	columnsByType map[uint64][]codec.ColumnSpec
}

func newModelCatalog(m *schema.Model, dialect ddl.Dialect) *modelCatalog {
	c := &modelCatalog{
		tableByType:   make(map[uint64]string),
		columnsByType: make(map[uint64][]codec.ColumnSpec),
	}
	for _, e := range m.Entities {
		if e.Virtual {
			continue
		}
		c.tableByType[e.TypeID] = ddl.QualifiedTable(dialect, m.Namespace, e.TableName())
		c.columnsByType[e.TypeID] = columnsForEntity(m, e)
	}
	return c
}

// columnsForEntity mirrors ddl.createTableSQL's column ordering (id first,
// then declared fields in SDL order, skipping list-reference fields which
// live in a join table instead of a column), so the Row Codec decodes a
// module-written row against the same layout the table was created with.
func columnsForEntity(m *schema.Model, e *schema.Entity) []codec.ColumnSpec {
	var cols []codec.ColumnSpec
	if idField, ok := e.Field("id"); ok {
		cols = append(cols, codec.ColumnSpec{Name: "id", Type: idField.Type})
	}
	for _, f := range e.Fields {
		if f.Name == "id" || f.ListReference {
			continue
		}
		switch {
		case f.IsReference:
			ref, _ := m.Entity(f.Entity)
			if ref != nil && ref.Virtual {
				cols = append(cols, codec.ColumnSpec{Name: f.ColumnName(), Type: schema.ScalarJSON})
				continue
			}
			refColType := schema.ScalarUID
			if ref != nil {
				if idField, ok := ref.Field("id"); ok {
					refColType = idField.Type
				}
			}
			cols = append(cols, codec.ColumnSpec{Name: f.ColumnName(), Type: refColType})
		default:
			cols = append(cols, codec.ColumnSpec{Name: f.ColumnName(), Type: f.Type})
		}
	}
	return cols
}

// TableForType implements db.TableResolver.
func (c *modelCatalog) TableForType(typeID uint64) (string, bool) {
	t, ok := c.tableByType[typeID]
	return t, ok
}

// ColumnsForType implements runtime.ColumnResolver.
func (c *modelCatalog) ColumnsForType(typeID uint64) ([]codec.ColumnSpec, bool) {
	cols, ok := c.columnsByType[typeID]
	return cols, ok
}
