package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd/schema"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cols := []ColumnSpec{
		{Name: "id", Type: schema.ScalarUID},
		{Name: "height", Type: schema.ScalarU64},
		{Name: "hash", Type: schema.ScalarBytes32},
		{Name: "note", Type: schema.ScalarString},
	}
	row := Row{
		Columns: []string{"id", "height", "hash", "note"},
		Cells: []Cell{
			{Type: schema.ScalarUID, Value: []byte{1, 2, 3}},
			{Type: schema.ScalarU64, Value: uint64(42)},
			{Type: schema.ScalarBytes32, Value: make([]byte, 32)},
			{Type: schema.ScalarString, Null: true},
		},
	}

	wire, err := Encode(row)
	require.NoError(t, err)

	decoded, err := Decode(wire, cols)
	require.NoError(t, err)
	require.Equal(t, row.Columns, decoded.Columns)

	require.False(t, decoded.Cells[0].Null)
	require.Equal(t, []byte{1, 2, 3}, decoded.Cells[0].Value)

	require.Equal(t, uint64(42), decoded.Cells[1].Value)

	require.True(t, decoded.Cells[3].Null)
	require.Equal(t, schema.ScalarString, decoded.Cells[3].Type)
	require.Nil(t, decoded.Cells[3].Value)
}

func TestDecode_WrongDeclaredTypeRejected(t *testing.T) {
	row := Row{
		Columns: []string{"height"},
		Cells:   []Cell{{Type: schema.ScalarU64, Value: uint64(1)}},
	}
	wire, err := Encode(row)
	require.NoError(t, err)

	_, err = Decode(wire, []ColumnSpec{{Name: "height", Type: schema.ScalarString}})
	require.Error(t, err)
}

func TestBindValue_UID_HexEncoded(t *testing.T) {
	v, err := BindValue(DialectPostgres, Cell{Type: schema.ScalarUID, Value: []byte{0xde, 0xad}})
	require.NoError(t, err)
	require.Equal(t, "dead", v)
}

func TestBindValue_Null(t *testing.T) {
	v, err := BindValue(DialectSQLite, Cell{Type: schema.ScalarString, Null: true})
	require.NoError(t, err)
	require.Nil(t, v)
}
