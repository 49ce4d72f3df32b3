package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
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

type Meta @virtual {
  note: String
}
`

func TestParseAndBuild(t *testing.T) {
	doc, err := Parse("t.graphql", sampleSDL)
	require.NoError(t, err)
	require.Len(t, doc.Entities, 5)

	m, err := Build("ns", "id1", doc)
	require.NoError(t, err)

	// Tables are topologically ordered: Block before Tx (direct @join FK).
	idx := map[string]int{}
	for i, e := range m.Entities {
		idx[e.Name] = i
	}
	require.Less(t, idx["Block"], idx["Tx"])

	require.Len(t, m.ForeignKeys, 1)
	fk := m.ForeignKeys[0]
	require.Equal(t, "txs", fk.Table)
	require.Equal(t, "blocks", fk.RefTable)
	require.Equal(t, "hash", fk.RefColumn)

	require.Len(t, m.JoinTables, 1)
	jt := m.JoinTables[0]
	require.Equal(t, "authors_books", jt.Name)

	require.Len(t, m.Indexes, 2) // Block.hash @unique, Tx.hash @unique

	block, ok := m.Entity("Block")
	require.True(t, ok)
	require.NotZero(t, block.TypeID)

	meta, ok := m.Entity("Meta")
	require.True(t, ok)
	require.True(t, meta.Virtual)
	require.Zero(t, meta.TypeID)
}

func TestValidate_VirtualEntityCannotDeclareID(t *testing.T) {
	doc, err := Parse("t.graphql", `
type Foo @virtual {
  id: ID!
}
`)
	require.NoError(t, err)
	_, err = Build("ns", "id1", doc)
	require.Error(t, err)
}

func TestValidate_ForeignKeyCannotBeUnique(t *testing.T) {
	doc, err := Parse("t.graphql", `
type A { id: ID! }
type B { id: ID! a: A! @unique }
`)
	require.NoError(t, err)
	_, err = Build("ns", "id1", doc)
	require.Error(t, err)
}

func TestValidate_NestedListsRejected(t *testing.T) {
	_, err := Parse("t.graphql", `
type A { id: ID! vals: [[String]] }
`)
	require.Error(t, err)
}

func TestValidate_ManyToManyMustTargetConcreteID(t *testing.T) {
	doc, err := Parse("t.graphql", `
type A { id: ID! children: [B!]! }
type B @virtual { note: String }
`)
	require.NoError(t, err)
	_, err = Build("ns", "id1", doc)
	require.Error(t, err)
}

func TestTypeID_Deterministic(t *testing.T) {
	a := TypeID("ns", "id", "Block")
	b := TypeID("ns", "id", "Block")
	require.Equal(t, a, b)
	c := TypeID("ns", "id", "Tx")
	require.NotEqual(t, a, c)
}

func TestVersion_IgnoresWhitespaceOnlyChanges(t *testing.T) {
	v1 := Version("type A { id: ID! }\n")
	v2 := Version("type A { id: ID! }   \n\n\n")
	require.Equal(t, v1, v2)
}

func TestSelfReferenceDoesNotCycleError(t *testing.T) {
	doc, err := Parse("t.graphql", `
type Node {
  id: ID!
  parent: Node
}
`)
	require.NoError(t, err)
	_, err = Build("ns", "id1", doc)
	require.NoError(t, err)
}
