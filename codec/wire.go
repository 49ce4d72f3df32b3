package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/indexerd/schema"
)

// tagOf/typeOfTag give the wire form a short stable numeric alphabet instead
// of writing the scalar type name on every cell. Reordering this table
// invalidates previously persisted wire bytes for rows encoded under the old
// order unless the schema version is bumped (§4.3 "forward compatibility is
// not promised").
var tagOf = map[schema.ScalarType]byte{
	schema.ScalarUID: 1, schema.ScalarID: 1, schema.ScalarAddress: 2,
	schema.ScalarAssetID: 3, schema.ScalarContractID: 4,
	schema.ScalarBytes4: 5, schema.ScalarBytes8: 6, schema.ScalarBytes32: 7, schema.ScalarBytes64: 8,
	schema.ScalarBytes: 9, schema.ScalarString: 10, schema.ScalarBoolean: 11,
	schema.ScalarI8: 12, schema.ScalarI32: 13, schema.ScalarI64: 14, schema.ScalarI128: 15,
	schema.ScalarU8: 16, schema.ScalarU32: 17, schema.ScalarU64: 18, schema.ScalarU128: 19,
	schema.ScalarJSON: 20, schema.ScalarHexString: 21, schema.ScalarBlob: 22,
	schema.ScalarIdentity: 23, schema.ScalarEnum: 24,
}

var typeOfTag = func() map[byte]schema.ScalarType {
	m := make(map[byte]schema.ScalarType, len(tagOf))
	for t, b := range tagOf {
		if t == schema.ScalarID {
			continue // ID and UID share a tag; UID is the canonical decode target.
		}
		m[b] = t
	}
	return m
}()

// ColumnSpec is the minimal per-column metadata Decode needs to reconstruct
// null cells with the correct declared type and to name decoded cells; it is
// sourced from the registry's columns table (§4.2), not reparsed from SDL.
type ColumnSpec struct {
	Name string
	Type schema.ScalarType
}

// Encode serializes a Row into the wire form: a length-prefixed sequence of
// type-tag + payload triples, one per cell, in column order (§4.3).
func Encode(row Row) ([]byte, error) {
	var buf bytes.Buffer
	for i, cell := range row.Cells {
		tag, ok := tagOf[cell.Type]
		if !ok {
			return nil, fmt.Errorf("codec: unknown scalar type %q for column %q", cell.Type, columnNameAt(row, i))
		}
		var presence byte
		var payload []byte
		if !cell.Null {
			presence = 1
			p, err := msgpack.Marshal(cell.Value)
			if err != nil {
				return nil, fmt.Errorf("codec: encoding column %q: %w", columnNameAt(row, i), err)
			}
			payload = p
		}
		buf.WriteByte(tag)
		buf.WriteByte(presence)
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		buf.Write(lenBuf[:])
		buf.Write(payload)
	}
	return buf.Bytes(), nil
}

func columnNameAt(row Row, i int) string {
	if i < len(row.Columns) {
		return row.Columns[i]
	}
	return fmt.Sprintf("#%d", i)
}

// Decode deserializes wire bytes into a Row, given the declared column order
// (name + type) for the entity being decoded. A cell whose presence bit is 0
// decodes to the null form of its declared type (§4.3).
func Decode(data []byte, columns []ColumnSpec) (Row, error) {
	r := bytes.NewReader(data)
	row := Row{Columns: make([]string, 0, len(columns)), Cells: make([]Cell, 0, len(columns))}
	for _, col := range columns {
		var header [6]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return Row{}, fmt.Errorf("codec: truncated frame at column %q: %w", col.Name, err)
		}
		tag := header[0]
		presence := header[1]
		length := binary.BigEndian.Uint32(header[2:6])

		wantTag, ok := tagOf[col.Type]
		if !ok {
			return Row{}, fmt.Errorf("codec: unknown declared scalar type %q for column %q", col.Type, col.Name)
		}
		if tag != wantTag {
			return Row{}, fmt.Errorf("codec: column %q: wire tag %d does not match declared type %q (tag %d)", col.Name, tag, col.Type, wantTag)
		}

		payload := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return Row{}, fmt.Errorf("codec: truncated payload at column %q: %w", col.Name, err)
			}
		}

		cell := Cell{Type: col.Type}
		if presence == 0 {
			cell.Null = true
		} else {
			var v any
			if err := msgpack.Unmarshal(payload, &v); err != nil {
				return Row{}, fmt.Errorf("codec: decoding column %q: %w", col.Name, err)
			}
			cell.Value = normalizeDecoded(col.Type, v)
		}
		row.Columns = append(row.Columns, col.Name)
		row.Cells = append(row.Cells, cell)
	}
	return row, nil
}
