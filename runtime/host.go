package runtime

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/codec"
	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

const idScalar = schema.ScalarUID

// ColumnResolver supplies the column layout the Row Codec needs to decode a
// wire-encoded row for a given type ID, sourced from the Schema Model.
type ColumnResolver interface {
	ColumnsForType(typeID uint64) (columns []codec.ColumnSpec, ok bool)
}

// manyToManyRecord is the msgpack payload a module passes to
// ff_put_many_to_many_record: one row to insert into a join table (§4.5).
// The Runtime Host, not the module, is responsible for turning this into the
// precomputed raw_insert_sql that db.Tx.PutManyToMany (§4.4) expects.
type manyToManyRecord struct {
	Table     string
	ParentCol string
	ParentID  []byte
	ChildCol  string
	ChildID   []byte
}

// DBHost binds HostCallbacks to a single open batch transaction, the Row
// Codec, and the Schema Model's column/table metadata (§4.5 steps 4-5).
type DBHost struct {
	tx        *db.Tx
	dialect   ddl.Dialect
	namespace string
	columns   ColumnResolver
	killed    *KillSwitch
	budget    *Budget
	earlyHit  bool
	exitCode  int32
	onLog     func(LogLevel, string)
}

// NewDBHost constructs the host-callback binding for one batch. namespace is
// the Schema Model's namespace, needed to qualify/prefix the join-table name
// a module supplies in a manyToManyRecord the same way ddl.Build qualified
// it when the table was created (§4.2, §4.5).
func NewDBHost(tx *db.Tx, dialect ddl.Dialect, namespace string, columns ColumnResolver, kill *KillSwitch, budget *Budget) *DBHost {
	return &DBHost{tx: tx, dialect: dialect, namespace: namespace, columns: columns, killed: kill, budget: budget}
}

// SetLogSink installs the callback used by LogData to forward module log
// output; fn may be nil to discard log output.
func (h *DBHost) SetLogSink(fn func(LogLevel, string)) { h.onLog = fn }

func (h *DBHost) charge() error {
	if h.killed.Tripped() {
		return indexerd.ErrKilled
	}
	if !h.budget.Charge(1) {
		return indexerd.ErrBudgetExhausted
	}
	return nil
}

// GetObject implements HostCallbacks (ff_get_object).
func (h *DBHost) GetObject(ctx context.Context, typeID uint64, id []byte) ([]byte, bool, error) {
	if err := h.charge(); err != nil {
		return nil, false, err
	}
	return h.tx.GetEntity(ctx, typeID, codec.Cell{Type: idScalar, Value: id})
}

// PutObject implements HostCallbacks (ff_put_object): decodes the wire row
// via the Row Codec and upserts it, visible to later GetObject calls within
// the same batch (§4.5 step 4).
func (h *DBHost) PutObject(ctx context.Context, typeID uint64, wireBytes []byte) error {
	if err := h.charge(); err != nil {
		return err
	}
	cols, ok := h.columns.ColumnsForType(typeID)
	if !ok {
		return indexerd.NewError(indexerd.KindModuleExecution, "runtime.PutObject", fmt.Sprintf("unknown type id %d", typeID), nil)
	}
	row, err := codec.Decode(wireBytes, cols)
	if err != nil {
		return indexerd.NewError(indexerd.KindModuleExecution, "runtime.PutObject", "row decode failed", err)
	}
	idCell, ok := row.Get("id")
	if !ok {
		return indexerd.NewError(indexerd.KindModuleExecution, "runtime.PutObject", "row missing id cell", nil)
	}
	return h.tx.PutEntity(ctx, typeID, idCell, withoutID(row), wireBytes)
}

func withoutID(row codec.Row) codec.Row {
	out := codec.Row{Columns: make([]string, 0, len(row.Columns)), Cells: make([]codec.Cell, 0, len(row.Cells))}
	for i, c := range row.Columns {
		if c == "id" {
			continue
		}
		out.Columns = append(out.Columns, c)
		out.Cells = append(out.Cells, row.Cells[i])
	}
	return out
}

// PutManyToManyRecord implements HostCallbacks (ff_put_many_to_many_record):
// decodes the module's join-row payload and builds the precomputed
// ON CONFLICT DO NOTHING insert db.Tx.PutManyToMany expects (§4.4, §4.5).
func (h *DBHost) PutManyToManyRecord(ctx context.Context, raw []byte) error {
	if err := h.charge(); err != nil {
		return err
	}
	var rec manyToManyRecord
	if err := msgpack.Unmarshal(raw, &rec); err != nil {
		return indexerd.NewError(indexerd.KindModuleExecution, "runtime.PutManyToManyRecord", "record decode failed", err)
	}
	sqlText := fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES ('%s', '%s') ON CONFLICT DO NOTHING",
		ddl.QualifiedTable(h.dialect, h.namespace, rec.Table),
		ddl.Quote(h.dialect, rec.ParentCol), ddl.Quote(h.dialect, rec.ChildCol),
		hex.EncodeToString(rec.ParentID), hex.EncodeToString(rec.ChildID),
	)
	return h.tx.PutManyToMany(ctx, sqlText)
}

// LogData implements HostCallbacks (ff_log_data); wired up by the Runtime
// Host's caller to log/slog with the appropriate level.
func (h *DBHost) LogData(level LogLevel, msg string) {
	if h.onLog != nil {
		h.onLog(level, msg)
	}
}

// EarlyExit implements HostCallbacks (ff_early_exit): records the exit code
// so Invoke can translate it into an ErrEarlyExit result.
func (h *DBHost) EarlyExit(code int32) {
	h.earlyHit = true
	h.exitCode = code
}

// EarlyExitHit reports whether the module called ff_early_exit during Invoke.
func (h *DBHost) EarlyExitHit() (bool, int32) { return h.earlyHit, h.exitCode }
