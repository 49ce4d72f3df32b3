package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/ddl"
)

// Row is one record of the `indexer` registry table (§6 Persisted state layout).
type Row struct {
	Namespace     string
	Identifier    string
	SchemaVersion string
	ModuleBytes   []byte
	Cursor        uint64
	StartBlock    uint64
	EndBlock      *uint64
	Status        indexerd.Status
}

// RegistryStore persists and reloads Row entries against the fixed `indexer`
// bootstrap table (ddl.Registry), independent of any indexer's own schema.
type RegistryStore struct {
	adapter *db.Adapter
	dialect ddl.Dialect
}

// NewRegistryStore wraps an already-open Database Adapter.
func NewRegistryStore(adapter *db.Adapter, dialect ddl.Dialect) *RegistryStore {
	return &RegistryStore{adapter: adapter, dialect: dialect}
}

func ph(d ddl.Dialect, n int) string {
	if d == ddl.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Insert adds a new registry row (§4.7 Register).
func (r *RegistryStore) Insert(ctx context.Context, row Row) error {
	q := fmt.Sprintf(
		"INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		ddl.Quote(r.dialect, "indexer"),
		ddl.Quote(r.dialect, "namespace"), ddl.Quote(r.dialect, "identifier"), ddl.Quote(r.dialect, "schema_version"),
		ddl.Quote(r.dialect, "module_bytes"), ddl.Quote(r.dialect, "cursor"), ddl.Quote(r.dialect, "start_block"),
		ddl.Quote(r.dialect, "end_block"), ddl.Quote(r.dialect, "status"),
		ph(r.dialect, 1), ph(r.dialect, 2), ph(r.dialect, 3), ph(r.dialect, 4), ph(r.dialect, 5), ph(r.dialect, 6), ph(r.dialect, 7), ph(r.dialect, 8),
	)
	_, err := r.adapter.Exec(ctx, q, row.Namespace, row.Identifier, row.SchemaVersion, row.ModuleBytes, row.Cursor, row.StartBlock, nullableU64(row.EndBlock), string(row.Status))
	return err
}

func nullableU64(v *uint64) any {
	if v == nil {
		return nil
	}
	return *v
}

// UpdateCursor persists the cursor atomically with a committed batch (§4.6:
// "the persisted cursor is the database-visible cursor column ... written
// atomically with the batch").
func (r *RegistryStore) UpdateCursor(ctx context.Context, namespace, identifier string, cursor uint64) error {
	q := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s AND %s = %s",
		ddl.Quote(r.dialect, "indexer"), ddl.Quote(r.dialect, "cursor"), ph(r.dialect, 1),
		ddl.Quote(r.dialect, "namespace"), ph(r.dialect, 2), ddl.Quote(r.dialect, "identifier"), ph(r.dialect, 3))
	_, err := r.adapter.Exec(ctx, q, cursor, namespace, identifier)
	return err
}

// UpdateStatus persists a status transition (§4.5 state machine).
func (r *RegistryStore) UpdateStatus(ctx context.Context, namespace, identifier string, status indexerd.Status) error {
	q := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s AND %s = %s",
		ddl.Quote(r.dialect, "indexer"), ddl.Quote(r.dialect, "status"), ph(r.dialect, 1),
		ddl.Quote(r.dialect, "namespace"), ph(r.dialect, 2), ddl.Quote(r.dialect, "identifier"), ph(r.dialect, 3))
	_, err := r.adapter.Exec(ctx, q, string(status), namespace, identifier)
	return err
}

// Delete removes a registry row (§4.7 Remove).
func (r *RegistryStore) Delete(ctx context.Context, namespace, identifier string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s",
		ddl.Quote(r.dialect, "indexer"), ddl.Quote(r.dialect, "namespace"), ph(r.dialect, 1), ddl.Quote(r.dialect, "identifier"), ph(r.dialect, 2))
	_, err := r.adapter.Exec(ctx, q, namespace, identifier)
	return err
}

// LoadAll reconstructs every registry row (§4.7 Register-from-registry).
func (r *RegistryStore) LoadAll(ctx context.Context) ([]Row, error) {
	q := fmt.Sprintf("SELECT %s, %s, %s, %s, %s, %s, %s, %s FROM %s",
		ddl.Quote(r.dialect, "namespace"), ddl.Quote(r.dialect, "identifier"), ddl.Quote(r.dialect, "schema_version"),
		ddl.Quote(r.dialect, "module_bytes"), ddl.Quote(r.dialect, "cursor"), ddl.Quote(r.dialect, "start_block"),
		ddl.Quote(r.dialect, "end_block"), ddl.Quote(r.dialect, "status"), ddl.Quote(r.dialect, "indexer"))

	rows, err := r.adapter.ExecuteQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var endBlock sql.NullInt64
		var status string
		if err := rows.Scan(&row.Namespace, &row.Identifier, &row.SchemaVersion, &row.ModuleBytes, &row.Cursor, &row.StartBlock, &endBlock, &status); err != nil {
			return nil, err
		}
		if endBlock.Valid {
			v := uint64(endBlock.Int64)
			row.EndBlock = &v
		}
		row.Status = indexerd.Status(status)
		out = append(out, row)
	}
	return out, rows.Err()
}
