package codec

import "github.com/syssam/indexerd/schema"

// normalizeDecoded coerces a msgpack-decoded any back to the canonical Go
// representation for a scalar type, since msgpack's generic decode picks the
// narrowest integer type that fits a value (int8, uint16, ...) rather than a
// fixed width. Encode always round-trips correctly on its own; normalization
// only matters when callers compare decoded values against typed Go literals.
func normalizeDecoded(t schema.ScalarType, v any) any {
	switch t {
	case schema.ScalarI8, schema.ScalarI32, schema.ScalarI64, schema.ScalarI128:
		return toInt64(v)
	case schema.ScalarU8, schema.ScalarU32, schema.ScalarU64, schema.ScalarU128:
		return toUint64(v)
	default:
		return v
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		return 0
	}
}

func toUint64(v any) uint64 {
	switch n := v.(type) {
	case uint8:
		return uint64(n)
	case uint16:
		return uint64(n)
	case uint32:
		return uint64(n)
	case uint64:
		return n
	case uint:
		return uint64(n)
	case int64:
		return uint64(n)
	default:
		return 0
	}
}
