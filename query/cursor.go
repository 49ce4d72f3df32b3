package query

import (
	"encoding/base64"
	"fmt"
)

// EncodeCursor turns a sort-key byte string into the opaque cursor surfaced
// as `endCursor`/`after`/`before` (§4.8 step 5: "base64(sort_key_bytes)").
func EncodeCursor(sortKey []byte) string {
	return base64.StdEncoding.EncodeToString(sortKey)
}

// DecodeCursor reverses EncodeCursor, used when binding an `after`/`before`
// argument to the planned WHERE clause.
func DecodeCursor(cursor string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(cursor)
	if err != nil {
		return nil, fmt.Errorf("query: invalid cursor: %w", err)
	}
	return b, nil
}

// sortKeyBytes renders one row's order-by column values into the byte string
// a cursor encodes, joining multi-key sorts with a NUL separator; the
// Executor cuts a decoded cursor at its first NUL to recover the leading
// key's value. A NUL inside a value is not escaped.
func sortKeyBytes(values []any) []byte {
	var out []byte
	for i, v := range values {
		if i > 0 {
			out = append(out, 0)
		}
		out = append(out, []byte(fmt.Sprintf("%v", v))...)
	}
	return out
}
