package codec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/syssam/indexerd/schema"
)

// Dialect names used at the database boundary, mirrored from the db package
// to avoid an import cycle (db imports codec, not the reverse).
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// BindValue converts a Cell into a value database/sql accepts as a query
// parameter, honoring the per-dialect scalar encodings from §4.2's
// column-type mapping table. It never produces SQL text — only bound values
// (§4.3 "does not inline values into SQL text").
func BindValue(dialect string, c Cell) (any, error) {
	if c.Null {
		return nil, nil
	}
	switch c.Type {
	case schema.ScalarUID, schema.ScalarID, schema.ScalarAddress, schema.ScalarContractID,
		schema.ScalarAssetID, schema.ScalarBytes4, schema.ScalarBytes8, schema.ScalarBytes32, schema.ScalarBytes64:
		b, ok := c.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("codec: expected []byte for %s, got %T", c.Type, c.Value)
		}
		return hex.EncodeToString(b), nil
	case schema.ScalarBytes, schema.ScalarBlob:
		b, ok := c.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("codec: expected []byte for %s, got %T", c.Type, c.Value)
		}
		if dialect == DialectSQLite {
			return b, nil // BLOB column accepts raw bytes directly
		}
		return b, nil // bytea also accepts []byte via lib/pq
	case schema.ScalarJSON:
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("codec: marshaling json column: %w", err)
		}
		return string(raw), nil
	case schema.ScalarHexString:
		s, ok := c.Value.(string)
		if !ok {
			return nil, fmt.Errorf("codec: expected string for HexString, got %T", c.Value)
		}
		return s, nil
	default:
		return c.Value, nil
	}
}

// BindRow converts every cell of a Row into positional dialect-bound
// parameters, in column order.
func BindRow(dialect string, row Row) ([]any, error) {
	out := make([]any, len(row.Cells))
	for i, c := range row.Cells {
		v, err := BindValue(dialect, c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
