package ddl

import (
	"fmt"

	"github.com/syssam/indexerd/schema"
)

// Registry returns the fixed bootstrap tables (§6 Persisted state layout)
// that every database backend carries regardless of any indexer's schema:
// indexer bookkeeping, the GraphQL root document, type-ID assignments, the
// flattened column catalog consumed by the Query Planner, and single-use
// nonces for the node handshake.
func Registry(d Dialect) []Statement {
	text := ColumnType(d, schema.ScalarString, false, false)
	blob := ColumnType(d, schema.ScalarBlob, false, false)
	bigint := ColumnType(d, schema.ScalarU64, false, false)
	serial := ColumnType(d, schema.ScalarID, true, false)

	return []Statement{
		{Kind: "registry", SQL: fmt.Sprintf(`CREATE TABLE %s (
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s,
  %s %s NOT NULL,
  %s %s,
  %s %s,
  %s %s NOT NULL,
  PRIMARY KEY (%s, %s)
)`,
			Quote(d, "indexer"),
			Quote(d, "namespace"), text,
			Quote(d, "identifier"), text,
			Quote(d, "schema_version"), text,
			Quote(d, "module_bytes"), blob,
			Quote(d, "cursor"), bigint,
			Quote(d, "start_block"), bigint,
			Quote(d, "end_block"), bigint,
			Quote(d, "status"), text,
			Quote(d, "namespace"), Quote(d, "identifier"),
		)},
		{Kind: "registry", SQL: fmt.Sprintf(`CREATE TABLE %s (
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  PRIMARY KEY (%s)
)`,
			Quote(d, "graph_root"),
			Quote(d, "id"), serial,
			Quote(d, "version"), text,
			Quote(d, "schema_name"), text,
			Quote(d, "schema_identifier"), text,
			Quote(d, "query"), text,
			Quote(d, "schema"), blob,
			Quote(d, "id"),
		)},
		{Kind: "registry", SQL: fmt.Sprintf(`CREATE TABLE %s (
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  PRIMARY KEY (%s)
)`,
			Quote(d, "type_id"),
			Quote(d, "id"), serial,
			Quote(d, "version"), text,
			Quote(d, "namespace"), text,
			Quote(d, "identifier"), text,
			Quote(d, "type_name"), text,
			Quote(d, "id"),
		)},
		{Kind: "registry", SQL: fmt.Sprintf(`CREATE TABLE %s (
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL,
  %s %s NOT NULL
)`,
			Quote(d, "columns"),
			Quote(d, "column_position"), bigint,
			Quote(d, "column_name"), text,
			Quote(d, "column_type"), text,
			Quote(d, "table_name"), text,
			Quote(d, "schema_name"), text,
			Quote(d, "schema_identifier"), text,
			Quote(d, "schema_version"), text,
		)},
		{Kind: "registry", SQL: fmt.Sprintf(`CREATE TABLE %s (
  %s %s NOT NULL,
  %s %s NOT NULL,
  PRIMARY KEY (%s)
)`,
			Quote(d, "nonce"),
			Quote(d, "uid"), text,
			Quote(d, "expiry"), bigint,
			Quote(d, "uid"),
		)},
	}
}
