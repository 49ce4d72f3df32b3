package ddl

import (
	"fmt"
	"strings"

	"github.com/syssam/indexerd/schema"
)

// Statement is a single emitted DDL statement.
type Statement struct {
	SQL  string
	Kind string // "schema" | "table" | "join_table" | "foreign_key" | "index"
}

// objectColumn stores the Row Codec's wire bytes for a row, enabling
// get_entity (§4.4) to reload without re-deriving bytes from columns.
const objectColumn = "object"

// Build emits the full ordered DDL sequence for a Model (§4.2): schema
// creation (PostgreSQL only) -> table creates (topological) -> join-table
// creates -> foreign-key constraints -> indices.
func Build(m *schema.Model, d Dialect) ([]Statement, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("ddl: unsupported dialect %q", d)
	}

	var out []Statement
	if d == Postgres {
		out = append(out, Statement{Kind: "schema", SQL: fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", Quote(d, m.Namespace))})
	}

	fksByTable := map[string][]schema.ForeignKey{}
	for _, fk := range m.ForeignKeys {
		fksByTable[fk.Table] = append(fksByTable[fk.Table], fk)
	}

	for _, e := range m.Entities {
		if e.Virtual {
			continue
		}
		out = append(out, Statement{Kind: "table", SQL: createTableSQL(d, m, e, fksByTable[e.TableName()])})
	}

	for _, jt := range m.JoinTables {
		out = append(out, Statement{Kind: "join_table", SQL: createJoinTableSQL(d, m.Namespace, jt)})
	}

	if d == Postgres {
		for _, fk := range m.ForeignKeys {
			out = append(out, Statement{Kind: "foreign_key", SQL: alterAddForeignKeySQL(d, m.Namespace, fk)})
		}
		for _, jt := range m.JoinTables {
			for _, sql := range alterAddJoinTableForeignKeysSQL(d, m.Namespace, jt) {
				out = append(out, Statement{Kind: "foreign_key", SQL: sql})
			}
		}
	}

	for _, idx := range m.Indexes {
		out = append(out, Statement{Kind: "index", SQL: createIndexSQL(d, m.Namespace, idx)})
	}

	return out, nil
}

// Drop emits the DROP statements that undo Build, in reverse dependency
// order (join tables and FK-bearing tables before their referents), for the
// Indexer Service's Remove operation (§4.7 "drop the indexer's tables").
func Drop(m *schema.Model, d Dialect) []Statement {
	var out []Statement
	for _, jt := range m.JoinTables {
		out = append(out, Statement{Kind: "join_table", SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s", qualifiedTable(d, m.Namespace, jt.Name))})
	}
	for i := len(m.Entities) - 1; i >= 0; i-- {
		e := m.Entities[i]
		if e.Virtual {
			continue
		}
		out = append(out, Statement{Kind: "table", SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s", qualifiedTable(d, m.Namespace, e.TableName()))})
	}
	return out
}

func qualifiedTable(d Dialect, namespace, table string) string {
	if d == Postgres {
		return Quote(d, namespace) + "." + Quote(d, table)
	}
	return Quote(d, namespace+"_"+table)
}

// QualifiedTable returns the same namespace-qualified (PostgreSQL) or
// namespace-prefixed (SQLite) identifier Build used to create table, for
// callers outside this package that resolve a table by name after DDL has
// already run — the Database Adapter's TableResolver and the Query Executor
// (§4.2, §4.4, §4.9) — so reads and writes target the table DDL actually
// created rather than a bare name.
func QualifiedTable(d Dialect, namespace, table string) string {
	return qualifiedTable(d, namespace, table)
}

func createTableSQL(d Dialect, m *schema.Model, e *schema.Entity, fks []schema.ForeignKey) string {
	fkByCol := map[string]schema.ForeignKey{}
	for _, fk := range fks {
		fkByCol[fk.Column] = fk
	}

	var cols []string
	idType, hasID := e.Field("id")
	uidForm := hasID && idType.Type == schema.ScalarUID
	if hasID {
		pk := "PRIMARY KEY"
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL %s", Quote(d, "id"), ColumnType(d, idType.Type, true, uidForm), pk))
	}

	for _, f := range e.Fields {
		if f.Name == "id" || f.ListReference {
			continue
		}
		if f.IsReference {
			ref, _ := m.Entity(f.Entity)
			if ref != nil && ref.Virtual {
				cols = append(cols, columnDef(d, m.Namespace, f.ColumnName(), schema.ScalarJSON, f.Required, nil))
				continue
			}
			fk, ok := fkByCol[f.ColumnName()]
			if ok && d == SQLite {
				cols = append(cols, columnDef(d, m.Namespace, f.ColumnName(), fk.RefColumnTy, f.Required, &fk))
				continue
			}
			cols = append(cols, columnDef(d, m.Namespace, f.ColumnName(), fk.RefColumnTy, f.Required, nil))
			continue
		}
		cols = append(cols, columnDef(d, m.Namespace, f.ColumnName(), f.Type, f.Required, nil))
	}
	cols = append(cols, fmt.Sprintf("%s %s", Quote(d, objectColumn), ColumnType(d, schema.ScalarBlob, false, false)))

	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", qualifiedTable(d, m.Namespace, e.TableName()), strings.Join(cols, ",\n  "))
}

func columnDef(d Dialect, namespace, name string, t schema.ScalarType, required bool, inlineFK *schema.ForeignKey) string {
	null := ""
	if required {
		null = " NOT NULL"
	}
	def := fmt.Sprintf("%s %s%s", Quote(d, name), ColumnType(d, t, false, t == schema.ScalarUID), null)
	if inlineFK != nil {
		def += fmt.Sprintf(" REFERENCES %s(%s)", qualifiedTable(d, namespace, inlineFK.RefTable), Quote(d, inlineFK.RefColumn))
	}
	return def
}

// createJoinTableSQL emits the join table itself, and its two REFERENCES
// (SQLite only; Postgres adds FK constraints separately via
// alterAddJoinTableForeignKeysSQL), namespace-qualified/prefixed the same way
// createTableSQL qualifies entity tables (§4.2).
func createJoinTableSQL(d Dialect, namespace string, jt schema.JoinTable) string {
	parentRef := fmt.Sprintf(" REFERENCES %s(id)", qualifiedTable(d, namespace, jt.ParentTable))
	childRef := fmt.Sprintf(" REFERENCES %s(id)", qualifiedTable(d, namespace, jt.ChildTable))
	if d == Postgres {
		parentRef, childRef = "", ""
	}
	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s %s NOT NULL%s,\n  %s %s NOT NULL%s,\n  PRIMARY KEY (%s, %s)\n)",
		qualifiedTable(d, namespace, jt.Name),
		Quote(d, jt.ParentCol), ColumnType(d, schema.ScalarUID, false, true), parentRef,
		Quote(d, jt.ChildCol), ColumnType(d, schema.ScalarUID, false, true), childRef,
		Quote(d, jt.ParentCol), Quote(d, jt.ChildCol),
	)
}

func alterAddForeignKeySQL(d Dialect, namespace string, fk schema.ForeignKey) string {
	name := fmt.Sprintf("%s_%s_fkey", fk.Table, fk.Column)
	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s ON UPDATE %s DEFERRABLE INITIALLY DEFERRED",
		qualifiedTable(d, namespace, fk.Table), Quote(d, name), Quote(d, fk.Column), qualifiedTable(d, namespace, fk.RefTable), Quote(d, fk.RefColumn), fk.OnDelete, fk.OnUpdate,
	)
}

// alterAddJoinTableForeignKeysSQL emits the Postgres-side FK constraints a
// join table's two columns imply (§4.2). SQLite has no ALTER TABLE ADD
// CONSTRAINT, so createJoinTableSQL inlines the equivalent REFERENCES
// clauses there instead; this is the Postgres-only counterpart, bringing
// join tables in line with the constraint pass m.ForeignKeys already gets.
func alterAddJoinTableForeignKeysSQL(d Dialect, namespace string, jt schema.JoinTable) []string {
	fkey := func(col, refTable, name string) string {
		return fmt.Sprintf(
			"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE %s ON UPDATE %s DEFERRABLE INITIALLY DEFERRED",
			qualifiedTable(d, namespace, jt.Name), Quote(d, name), Quote(d, col),
			qualifiedTable(d, namespace, refTable), Quote(d, "id"), schema.NoAction, schema.NoAction,
		)
	}
	return []string{
		fkey(jt.ParentCol, jt.ParentTable, fmt.Sprintf("%s_%s_fkey", jt.Name, jt.ParentCol)),
		fkey(jt.ChildCol, jt.ChildTable, fmt.Sprintf("%s_%s_fkey", jt.Name, jt.ChildCol)),
	}
}

func createIndexSQL(d Dialect, namespace string, idx schema.Index) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	using := ""
	if d == Postgres && idx.Kind == schema.IndexHash {
		using = " USING hash"
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = Quote(d, c)
	}
	// Postgres: the index name itself isn't qualified; CREATE INDEX ... ON
	// schema.table already places it in that table's schema. SQLite has no
	// schema concept, so the index name is prefixed the same way the table
	// name is, to avoid collisions between namespaces sharing one database.
	indexName := Quote(d, idx.Name)
	if d == SQLite {
		indexName = Quote(d, namespace+"_"+idx.Name)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s%s (%s)", unique, indexName, qualifiedTable(d, namespace, idx.Table), using, strings.Join(cols, ", "))
}
