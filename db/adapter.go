package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/codec"
	"github.com/syssam/indexerd/ddl"
)

// retry/backoff parameters for Acquire (§4.4): initial 2s, doubled each
// retry, 5 attempts total.
const (
	initialBackoff = 2 * time.Second
	maxAttempts    = 5
)

// Adapter is a connection pool bound to one dialect (§4.4, §9 dialect
// abstraction without inheritance: a single concrete type tagged by Dialect,
// not a type per backend).
type Adapter struct {
	db      *sql.DB
	dialect ddl.Dialect
}

// Open parses a database URL, selects the driver by scheme, and acquires the
// pool with exponential backoff. Supported schemes: postgres://, postgresql://
// (PostgreSQL via lib/pq) and sqlite://, file: (SQLite via modernc.org/sqlite).
func Open(ctx context.Context, dsn string) (*Adapter, error) {
	driver, dialect, source, err := resolveDriver(dsn)
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "db.Open", err.Error(), err)
	}

	sqlDB, err := sql.Open(driver, source)
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindConfiguration, "db.Open", "failed to open driver", err)
	}

	a := &Adapter{db: sqlDB, dialect: dialect}
	if err := a.acquire(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return a, nil
}

func resolveDriver(dsn string) (driver string, d ddl.Dialect, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", ddl.Postgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", ddl.SQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", ddl.SQLite, dsn, nil
	default:
		return "", "", "", fmt.Errorf("db: unrecognized connection URL scheme in %q", dsn)
	}
}

// acquire pings the pool with exponential backoff, surfacing
// ErrBackendUnavailable after maxAttempts failures (§4.4, §4.5 fatal errors).
func (a *Adapter) acquire(ctx context.Context) error {
	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, initialBackoff)
		lastErr = a.db.PingContext(pingCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return indexerd.NewError(indexerd.KindDatabaseTransient, "db.acquire", "context canceled while acquiring backend", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return indexerd.NewError(indexerd.KindDatabaseFatal, "db.acquire", "retries exhausted", fmt.Errorf("%w: %v", indexerd.ErrBackendUnavailable, lastErr))
}

// NewWithDB wraps an already-open *sql.DB, skipping Open's driver resolution
// and Acquire retry loop. Used to bind an Adapter to a test double (sqlmock)
// or a pool constructed by an embedding application.
func NewWithDB(sqlDB *sql.DB, dialect ddl.Dialect) *Adapter {
	return &Adapter{db: sqlDB, dialect: dialect}
}

// Dialect reports the backend this adapter targets.
func (a *Adapter) Dialect() ddl.Dialect { return a.dialect }

// Close releases the pool.
func (a *Adapter) Close() error { return a.db.Close() }

// Exec runs a single parameterized statement outside of any batch
// transaction, for registry bookkeeping (§4.7) rather than entity writes.
func (a *Adapter) Exec(ctx context.Context, sqlText string, args ...any) (sql.Result, error) {
	res, err := a.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

// ExecDDL runs a DDL Builder statement sequence outside of any batch
// transaction (used at indexer registration time, §4.7 step "emit DDL
// within a registry transaction").
func (a *Adapter) ExecDDL(ctx context.Context, statements []ddl.Statement) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	for _, st := range statements {
		if _, err := tx.ExecContext(ctx, st.SQL); err != nil {
			_ = tx.Rollback()
			return classify(fmt.Errorf("exec %s statement: %w", st.Kind, err))
		}
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// classify wraps a raw database/sql error as a transient or fatal CoreError.
// Connection-level failures (the pool itself unreachable) are transient and
// retryable by the caller; constraint/syntax errors are fatal.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "connection") || strings.Contains(msg, "driver: bad connection") {
		return indexerd.NewError(indexerd.KindDatabaseTransient, "db", "transient backend error", err)
	}
	return indexerd.NewError(indexerd.KindDatabaseFatal, "db", "fatal backend error", err)
}

// TableResolver maps a Schema Model's deterministic type ID to the table it
// was assigned (the `type_id` registry table, §6), decoupling the Database
// Adapter from the Schema Model package. The returned table string is
// already the full namespace-qualified/prefixed, quoted identifier
// ddl.QualifiedTable produced for the same entity when ddl.Build created it
// (e.g. "ns"."authors" on PostgreSQL, ns_authors in backquotes on SQLite) — callers
// use it verbatim rather than passing it through ddl.Quote again.
type TableResolver interface {
	TableForType(typeID uint64) (table string, ok bool)
}

// Tx is a single block batch's transaction: all entity writes within one
// batch occur on this connection under this transaction (§4.4, §4.5 step 2).
type Tx struct {
	tx       *sql.Tx
	dialect  ddl.Dialect
	resolver TableResolver
}

// StartTx begins the batch transaction (§4.4 start_tx).
func (a *Adapter) StartTx(ctx context.Context, resolver TableResolver) (*Tx, error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err)
	}
	return &Tx{tx: tx, dialect: a.dialect, resolver: resolver}, nil
}

// CommitTx commits the batch transaction (§4.4 commit_tx, §4.5 step 7).
func (t *Tx) CommitTx() error {
	if err := t.tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

// RevertTx rolls back the batch transaction (§4.4 revert_tx, §4.5 step 6).
func (t *Tx) RevertTx() error {
	if err := t.tx.Rollback(); err != nil {
		return classify(err)
	}
	return nil
}

// PutEntity performs an upsert keyed on id into the table named by typeID
// (§4.4 put_entity). row carries the bound column values; wireBytes is
// stored in the `object` column used by GetEntity/load.
func (t *Tx) PutEntity(ctx context.Context, typeID uint64, id codec.Cell, row codec.Row, wireBytes []byte) error {
	table, ok := t.resolver.TableForType(typeID)
	if !ok {
		return indexerd.NewError(indexerd.KindModuleExecution, "db.PutEntity", fmt.Sprintf("unknown type id %d", typeID), nil)
	}

	args, err := codec.BindRow(string(t.dialect), row)
	if err != nil {
		return indexerd.NewError(indexerd.KindModuleExecution, "db.PutEntity", "failed to bind row", err)
	}
	idVal, err := codec.BindValue(string(t.dialect), id)
	if err != nil {
		return indexerd.NewError(indexerd.KindModuleExecution, "db.PutEntity", "failed to bind id", err)
	}

	cols := append(append([]string{"id"}, row.Columns...), "object")
	allArgs := append([]any{idVal}, args...)
	allArgs = append(allArgs, wireBytes)
	sqlText := upsertSQL(t.dialect, table, cols)

	if _, err := t.tx.ExecContext(ctx, sqlText, allArgs...); err != nil {
		return classify(err)
	}
	return nil
}

func upsertSQL(d ddl.Dialect, table string, cols []string) string {
	placeholders := make([]string, len(cols))
	updates := make([]string, 0, len(cols))
	for i, c := range cols {
		placeholders[i] = placeholder(d, i+1)
		if c != "id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", ddl.Quote(d, c), ddl.Quote(d, c)))
		}
	}
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = ddl.Quote(d, c)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(quotedCols, ", "),
		strings.Join(placeholders, ", "),
		ddl.Quote(d, "id"),
		strings.Join(updates, ", "),
	)
}

func placeholder(d ddl.Dialect, n int) string {
	if d == ddl.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// GetEntity reads the wire bytes object column for id in the table named by
// typeID (§4.4 get_entity). Returns ok=false if no row exists.
func (t *Tx) GetEntity(ctx context.Context, typeID uint64, id codec.Cell) (wireBytes []byte, ok bool, err error) {
	table, found := t.resolver.TableForType(typeID)
	if !found {
		return nil, false, indexerd.NewError(indexerd.KindModuleExecution, "db.GetEntity", fmt.Sprintf("unknown type id %d", typeID), nil)
	}
	idVal, err := codec.BindValue(string(t.dialect), id)
	if err != nil {
		return nil, false, indexerd.NewError(indexerd.KindModuleExecution, "db.GetEntity", "failed to bind id", err)
	}

	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s", ddl.Quote(t.dialect, "object"), table, ddl.Quote(t.dialect, "id"), placeholder(t.dialect, 1))
	row := t.tx.QueryRowContext(ctx, q, idVal)
	if scanErr := row.Scan(&wireBytes); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, classify(scanErr)
	}
	return wireBytes, true, nil
}

// PutManyToMany executes a precomputed bulk insert for one join-table group
// (§4.4 put_many_to_many). The caller is responsible for appending
// ON CONFLICT DO NOTHING.
func (t *Tx) PutManyToMany(ctx context.Context, rawInsertSQL string) error {
	if _, err := t.tx.ExecContext(ctx, rawInsertSQL); err != nil {
		return classify(err)
	}
	return nil
}

// ExecuteQuery runs a planned SQL statement for the Query Executor (§4.4
// execute_query, §4.9).
func (t *Tx) ExecuteQuery(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// ExecuteQuery runs a planned SQL statement outside of any batch transaction
// (used by the Query Executor, which reads committed state only, §4.9).
func (a *Adapter) ExecuteQuery(ctx context.Context, sqlText string, args ...any) (*sql.Rows, error) {
	rows, err := a.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}
