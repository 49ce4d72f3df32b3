package codec

import "github.com/syssam/indexerd/schema"

// Cell is a single typed value in a Row (§4.3). Null cells carry the
// declared type but no Value, so that decode(encode(row)) still reports the
// correct type for a nil column.
type Cell struct {
	Type  schema.ScalarType
	Null  bool
	Value any // concrete Go type depends on Type; see normalizeDecoded in value.go
}

// Row is an ordered, positional sequence of typed cells — the in-module
// representation of one entity's columns.
type Row struct {
	Columns []string // column name per cell, positional and parallel to Cells
	Cells   []Cell
}

// Get returns the cell for the named column and whether it was present.
func (r Row) Get(column string) (Cell, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Cells[i], true
		}
	}
	return Cell{}, false
}

// NullCell returns the null-form cell for a declared scalar type (§4.3 "Null
// handling: decoding an absent cell yields the null form of its declared type").
func NullCell(t schema.ScalarType) Cell {
	return Cell{Type: t, Null: true}
}
