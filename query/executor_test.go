package query

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

const executorTestSDL = `
type Block {
  id: ID!
  height: U64!
  txs: [Tx!]!
}

type Tx {
  id: ID!
  hash: Bytes32! @unique
}
`

func mustBuildExecutorModel(t *testing.T) *schema.Model {
	t.Helper()
	doc, err := schema.Parse("t.graphql", executorTestSDL)
	require.NoError(t, err)
	m, err := schema.Build("ns", "id1", doc)
	require.NoError(t, err)
	return m
}

func newMockRunner(t *testing.T) (*db.Adapter, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db.NewWithDB(sqlDB, ddl.Postgres), mock
}

func TestExecutor_ExecuteObject_ScalarProjection(t *testing.T) {
	m := mustBuildExecutorModel(t)
	adapter, mock := newMockRunner(t)
	defer adapter.Close()

	rows := sqlmock.NewRows([]string{"__id", "height"}).AddRow("1", int64(42))
	mock.ExpectQuery(`SELECT .* FROM "ns"\."blocks" AS "t1"`).WillReturnRows(rows)

	ex := NewExecutor(adapter, ddl.Postgres, m)
	block, _ := m.Entity("Block")
	plan := SelectionPlan{
		ResponseKey: "block",
		Entity:      block,
		RootID:      "1",
		Children: []FieldSelection{
			{ResponseKey: "height", Field: mustField(t, block, "height"), IsScalar: true},
		},
	}

	out, err := ex.Execute(context.Background(), &OperationPlan{Selections: []SelectionPlan{plan}})
	require.NoError(t, err)
	obj, ok := out["block"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, int64(42), obj["height"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ExecuteObject_NotFound(t *testing.T) {
	m := mustBuildExecutorModel(t)
	adapter, mock := newMockRunner(t)
	defer adapter.Close()

	rows := sqlmock.NewRows([]string{"__id", "height"})
	mock.ExpectQuery(`SELECT .* FROM "ns"\."blocks" AS "t1"`).WillReturnRows(rows)

	ex := NewExecutor(adapter, ddl.Postgres, m)
	block, _ := m.Entity("Block")
	plan := SelectionPlan{ResponseKey: "block", Entity: block, RootID: "999"}

	out, err := ex.Execute(context.Background(), &OperationPlan{Selections: []SelectionPlan{plan}})
	require.NoError(t, err)
	require.Nil(t, out["block"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ExecuteConnection_Pagination(t *testing.T) {
	m := mustBuildExecutorModel(t)
	adapter, mock := newMockRunner(t)
	defer adapter.Close()

	listRows := sqlmock.NewRows([]string{"__id", "height"}).
		AddRow("1", int64(1)).
		AddRow("2", int64(2)).
		AddRow("3", int64(3))
	mock.ExpectQuery(`SELECT .* FROM "ns"\."blocks" AS "t1"`).WillReturnRows(listRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "ns"\."blocks"`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(3)))

	ex := NewExecutor(adapter, ddl.Postgres, m)
	block, _ := m.Entity("Block")
	n := 2
	plan := SelectionPlan{
		ResponseKey: "blocks",
		Entity:      block,
		IsList:      true,
		Order:       []SortKey{{Field: "height"}},
		Pagination:  Pagination{First: &n},
		Children: []FieldSelection{
			{ResponseKey: "height", Field: mustField(t, block, "height"), IsScalar: true},
		},
	}

	out, err := ex.Execute(context.Background(), &OperationPlan{Selections: []SelectionPlan{plan}})
	require.NoError(t, err)
	conn, ok := out["blocks"].(map[string]any)
	require.True(t, ok)
	nodes, ok := conn["nodes"].([]any)
	require.True(t, ok)
	require.Len(t, nodes, 2)
	pageInfo, ok := conn["pageInfo"].(map[string]any)
	require.True(t, ok)
	require.True(t, pageInfo["hasNextPage"].(bool))
	require.Equal(t, int64(3), conn["totalCount"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_NestedConnection_ScopedByJoinTable(t *testing.T) {
	m := mustBuildExecutorModel(t)
	adapter, mock := newMockRunner(t)
	defer adapter.Close()

	rows := sqlmock.NewRows([]string{"__id", "height"}).AddRow("1", int64(10))
	mock.ExpectQuery(`SELECT .* FROM "ns"\."blocks" AS "t1"`).WillReturnRows(rows)

	nestedRows := sqlmock.NewRows([]string{"__id", "hash"}).AddRow("5", "0xabc")
	mock.ExpectQuery(`SELECT .* FROM "ns"\."txs" AS "t1".*IN \(SELECT "tx_id" FROM "ns"\."blocks_txs" WHERE "block_id" = \$1\)`).
		WithArgs("1").WillReturnRows(nestedRows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "ns"\."txs" AS "t1".*IN \(SELECT "tx_id" FROM "ns"\."blocks_txs" WHERE "block_id" = \$1\)`).
		WithArgs("1").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	ex := NewExecutor(adapter, ddl.Postgres, m)
	block, _ := m.Entity("Block")
	tx, _ := m.Entity("Tx")
	n := 5
	plan := SelectionPlan{
		ResponseKey: "block",
		Entity:      block,
		RootID:      "1",
		Children: []FieldSelection{
			{ResponseKey: "height", Field: mustField(t, block, "height"), IsScalar: true},
			{
				ResponseKey:  "txs",
				Field:        mustField(t, block, "txs"),
				IsConnection: true,
				Entity:       tx,
				Order:        []SortKey{{Field: "hash"}},
				Pagination:   Pagination{First: &n},
				Children: []FieldSelection{
					{ResponseKey: "hash", Field: mustField(t, tx, "hash"), IsScalar: true},
				},
			},
		},
	}

	out, err := ex.Execute(context.Background(), &OperationPlan{Selections: []SelectionPlan{plan}})
	require.NoError(t, err)
	obj, ok := out["block"].(map[string]any)
	require.True(t, ok)
	txs, ok := obj["txs"].(map[string]any)
	require.True(t, ok)
	nodes, ok := txs["nodes"].([]any)
	require.True(t, ok)
	require.Len(t, nodes, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func mustField(t *testing.T, e *schema.Entity, name string) schema.Field {
	t.Helper()
	f, ok := e.Field(name)
	require.True(t, ok)
	return f
}
