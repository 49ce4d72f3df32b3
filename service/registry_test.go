package service

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/ddl"
)

func newMockStore(t *testing.T) (*RegistryStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	adapter := db.NewWithDB(sqlDB, ddl.Postgres)
	return NewRegistryStore(adapter, ddl.Postgres), mock
}

func TestRegistryStore_Insert(t *testing.T) {
	store, mock := newMockStore(t)
	end := uint64(100)
	mock.ExpectExec(`INSERT INTO "indexer"`).
		WithArgs("ns", "ident", "v1", []byte("wasm"), uint64(0), uint64(0), end, "registered").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Insert(t.Context(), Row{
		Namespace: "ns", Identifier: "ident", SchemaVersion: "v1",
		ModuleBytes: []byte("wasm"), Cursor: 0, StartBlock: 0, EndBlock: &end,
		Status: indexerd.StatusRegistered,
	})
	require.NoError(t, mock.ExpectationsWereMet())
	require.NoError(t, err)
}

func TestRegistryStore_UpdateCursor(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`UPDATE "indexer" SET "cursor"`).
		WithArgs(uint64(42), "ns", "ident").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateCursor(t.Context(), "ns", "ident", 42)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryStore_LoadAll(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"namespace", "identifier", "schema_version", "module_bytes", "cursor", "start_block", "end_block", "status"}).
		AddRow("ns", "ident", "v1", []byte("wasm"), uint64(10), uint64(0), int64(100), "running")
	mock.ExpectQuery(`SELECT .* FROM "indexer"`).WillReturnRows(rows)

	out, err := store.LoadAll(t.Context())
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, uint64(10), out[0].Cursor)
	require.NotNil(t, out[0].EndBlock)
	require.Equal(t, uint64(100), *out[0].EndBlock)
	require.Equal(t, indexerd.StatusRunning, out[0].Status)
}

func TestRegistryStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM "indexer"`).
		WithArgs("ns", "ident").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete(t.Context(), "ns", "ident")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
