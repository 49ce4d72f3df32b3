package query

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor_RoundTrip(t *testing.T) {
	raw := sortKeyBytes([]any{int64(42), "hello"})
	cursor := EncodeCursor(raw)
	decoded, err := DecodeCursor(cursor)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestDecodeCursor_InvalidBase64(t *testing.T) {
	_, err := DecodeCursor("not-base64!!")
	require.Error(t, err)
}

func TestSortKeyBytes_MultiKeySeparator(t *testing.T) {
	a := sortKeyBytes([]any{"foo", "bar"})
	b := sortKeyBytes([]any{"foobar"})
	require.NotEqual(t, a, b)
}
