package ddl

import "github.com/syssam/indexerd/schema"

// ColumnType returns the dialect-specific physical column type for a
// semantic scalar type, per §4.2's column-type mapping table. uidForm selects
// the UID/ID case: without it the column is bigint/INTEGER (legacy integer
// keys), with it the 32-byte opaque UID form is varchar(64)/TEXT hex (§9
// Entity IDs). isPK does not affect the result.
func ColumnType(d Dialect, t schema.ScalarType, isPK, uidForm bool) string {
	switch t {
	case schema.ScalarUID, schema.ScalarID:
		if uidForm {
			if d == Postgres {
				return "varchar(64)"
			}
			return "TEXT"
		}
		if d == Postgres {
			return "bigint"
		}
		return "INTEGER"
	case schema.ScalarBytes32, schema.ScalarAddress, schema.ScalarContractID, schema.ScalarAssetID:
		if d == Postgres {
			return "varchar(64)"
		}
		return "TEXT"
	case schema.ScalarBytes4:
		if d == Postgres {
			return "varchar(8)"
		}
		return "TEXT"
	case schema.ScalarBytes8:
		if d == Postgres {
			return "varchar(16)"
		}
		return "TEXT"
	case schema.ScalarBytes64:
		if d == Postgres {
			return "varchar(128)"
		}
		return "TEXT"
	case schema.ScalarU64, schema.ScalarI64, schema.ScalarU128, schema.ScalarI128:
		if d == Postgres {
			return "bigint"
		}
		return "INTEGER"
	case schema.ScalarU32, schema.ScalarI32:
		if d == Postgres {
			return "integer"
		}
		return "INTEGER"
	case schema.ScalarU8, schema.ScalarI8:
		if d == Postgres {
			return "smallint"
		}
		return "INTEGER"
	case schema.ScalarJSON:
		if d == Postgres {
			return "jsonb"
		}
		return "TEXT"
	case schema.ScalarBytes, schema.ScalarBlob:
		if d == Postgres {
			return "bytea"
		}
		return "BLOB"
	case schema.ScalarString, schema.ScalarHexString, schema.ScalarIdentity:
		if d == Postgres {
			return "text"
		}
		return "TEXT"
	case schema.ScalarBoolean:
		if d == Postgres {
			return "boolean"
		}
		return "INTEGER"
	case schema.ScalarEnum:
		if d == Postgres {
			return "text"
		}
		return "TEXT"
	default:
		if d == Postgres {
			return "text"
		}
		return "TEXT"
	}
}

// Quote quotes an identifier for the given dialect.
func Quote(d Dialect, ident string) string {
	if d == Postgres {
		return `"` + ident + `"`
	}
	return "`" + ident + "`"
}
