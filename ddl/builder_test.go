package ddl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd/schema"
)

const sampleSDL = `
type Block {
  id: ID!
  height: U64!
  hash: Bytes32! @unique
}

type Tx {
  id: ID!
  hash: Bytes32! @unique
  block: Block! @join(on: hash)
}

type Author {
  id: ID!
  name: String!
  books: [Book!]!
}

type Book {
  id: ID!
  title: String!
}
`

func buildSampleModel(t *testing.T) *schema.Model {
	t.Helper()
	doc, err := schema.Parse("t.graphql", sampleSDL)
	require.NoError(t, err)
	m, err := schema.Build("ns", "id1", doc)
	require.NoError(t, err)
	return m
}

func TestBuild_StatementOrder(t *testing.T) {
	m := buildSampleModel(t)

	stmts, err := Build(m, Postgres)
	require.NoError(t, err)
	require.NotEmpty(t, stmts)

	require.Equal(t, "schema", stmts[0].Kind)

	var sawTable, sawJoinTable, sawFK, sawIndex bool
	lastTable, lastJoinTable, lastFK := -1, -1, -1
	for i, st := range stmts {
		switch st.Kind {
		case "table":
			sawTable = true
			lastTable = i
		case "join_table":
			sawJoinTable = true
			lastJoinTable = i
		case "foreign_key":
			sawFK = true
			lastFK = i
		case "index":
			sawIndex = true
			require.Greater(t, i, lastTable)
		}
	}
	require.True(t, sawTable)
	require.True(t, sawJoinTable)
	require.True(t, sawFK)
	require.True(t, sawIndex)
	require.Greater(t, lastJoinTable, -1)
	require.Greater(t, lastTable, -1)
	require.Less(t, lastTable, lastFK)
	require.Less(t, lastJoinTable, lastFK)
}

func TestBuild_PostgresForeignKeysDeferred(t *testing.T) {
	m := buildSampleModel(t)
	stmts, err := Build(m, Postgres)
	require.NoError(t, err)

	var found bool
	for _, st := range stmts {
		if st.Kind == "foreign_key" {
			found = true
			require.Contains(t, st.SQL, "ALTER TABLE")
			require.Contains(t, st.SQL, "DEFERRABLE INITIALLY DEFERRED")
		}
	}
	require.True(t, found)
}

func TestBuild_PostgresJoinTableForeignKeysQualified(t *testing.T) {
	m := buildSampleModel(t)
	stmts, err := Build(m, Postgres)
	require.NoError(t, err)

	var joinFKCount int
	for _, st := range stmts {
		if st.Kind != "foreign_key" {
			continue
		}
		if strings.Contains(st.SQL, `"authors_books"`) {
			joinFKCount++
			require.Contains(t, st.SQL, `ALTER TABLE "ns"."authors_books"`)
			require.Contains(t, st.SQL, `REFERENCES "ns".`)
		}
	}
	require.Equal(t, 2, joinFKCount, "join table should get one FK constraint per column")
}

func TestBuild_SQLiteInlinesForeignKeys(t *testing.T) {
	m := buildSampleModel(t)
	stmts, err := Build(m, SQLite)
	require.NoError(t, err)

	for _, st := range stmts {
		require.NotEqual(t, "foreign_key", st.Kind)
	}

	var sawInlineFK bool
	for _, st := range stmts {
		if st.Kind == "table" && strings.Contains(st.SQL, "REFERENCES") {
			sawInlineFK = true
		}
	}
	require.True(t, sawInlineFK)
}

func TestBuild_UnsupportedDialect(t *testing.T) {
	m := buildSampleModel(t)
	_, err := Build(m, Dialect("oracle"))
	require.Error(t, err)
}

func TestRegistry_HasFixedBootstrapTables(t *testing.T) {
	stmts := Registry(Postgres)
	require.Len(t, stmts, 5)
	for _, st := range stmts {
		require.Equal(t, "registry", st.Kind)
		require.Contains(t, st.SQL, "CREATE TABLE")
	}
}
