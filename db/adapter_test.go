package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/codec"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

// staticResolver's values mirror what a real TableResolver returns: the
// already namespace-qualified, quoted identifier (e.g. `"ns"."blocks"`), not
// a bare table name.
type staticResolver map[uint64]string

func (r staticResolver) TableForType(typeID uint64) (string, bool) {
	t, ok := r[typeID]
	return t, ok
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	return &Adapter{db: sqlDB, dialect: ddl.Postgres}, mock
}

func TestAdapter_PutEntity_Upsert(t *testing.T) {
	a, mock := newMockAdapter(t)
	defer a.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "blocks"`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := a.StartTx(context.Background(), staticResolver{1: `"blocks"`})
	require.NoError(t, err)

	row := codec.Row{
		Columns: []string{"height"},
		Cells:   []codec.Cell{{Type: schema.ScalarU64, Value: uint64(10)}},
	}
	err = tx.PutEntity(context.Background(), 1, codec.Cell{Type: schema.ScalarUID, Value: []byte{1}}, row, []byte("wire"))
	require.NoError(t, err)
	require.NoError(t, tx.CommitTx())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_PutEntity_UnknownTypeID(t *testing.T) {
	a, mock := newMockAdapter(t)
	defer a.Close()

	mock.ExpectBegin()
	tx, err := a.StartTx(context.Background(), staticResolver{})
	require.NoError(t, err)

	err = tx.PutEntity(context.Background(), 99, codec.Cell{}, codec.Row{}, nil)
	require.Error(t, err)
	require.True(t, indexerd.IsModuleExecution(err))
}

func TestAdapter_GetEntity_NotFound(t *testing.T) {
	a, mock := newMockAdapter(t)
	defer a.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT "object" FROM "blocks"`).WillReturnRows(sqlmock.NewRows([]string{"object"}))
	tx, err := a.StartTx(context.Background(), staticResolver{1: `"blocks"`})
	require.NoError(t, err)

	_, ok, err := tx.GetEntity(context.Background(), 1, codec.Cell{Type: schema.ScalarUID, Value: []byte{1}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAdapter_RevertTx(t *testing.T) {
	a, mock := newMockAdapter(t)
	defer a.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()
	tx, err := a.StartTx(context.Background(), staticResolver{})
	require.NoError(t, err)
	require.NoError(t, tx.RevertTx())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_PutManyToMany(t *testing.T) {
	a, mock := newMockAdapter(t)
	defer a.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "authors_books"`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := a.StartTx(context.Background(), staticResolver{})
	require.NoError(t, err)
	err = tx.PutManyToMany(context.Background(), `INSERT INTO "authors_books" (author_id, book_id) VALUES (1, 2) ON CONFLICT DO NOTHING`)
	require.NoError(t, err)
	require.NoError(t, tx.CommitTx())
}
