package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/indexerd/schema"
)

const plannerTestSDL = `
type Block {
  id: ID!
  height: U64!
  hash: Bytes32! @unique
  txs: [Tx!]!
}

type Tx {
  id: ID!
  hash: Bytes32! @unique
  block: Block!
}

type Meta @virtual {
  note: String
}

type Author {
  id: ID!
  name: String!
  meta: Meta
}
`

func mustBuildModel(t *testing.T) *schema.Model {
	t.Helper()
	doc, err := schema.Parse("t.graphql", plannerTestSDL)
	require.NoError(t, err)
	m, err := schema.Build("ns", "id1", doc)
	require.NoError(t, err)
	return m
}

func mustParseQuery(t *testing.T, query string) *ast.QueryDocument {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	require.NoError(t, err)
	return doc
}

func TestPlan_RootObjectRequiresID(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { block { height } }`)
	_, err := p.Plan(doc, "", nil)
	require.Error(t, err)
}

func TestPlan_RootObjectByID(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { block(id: "1") { height hash } }`)
	plan, err := p.Plan(doc, "", nil)
	require.NoError(t, err)
	require.Len(t, plan.Selections, 1)
	require.Equal(t, "1", plan.Selections[0].RootID)
	require.False(t, plan.Selections[0].IsList)
}

func TestPlan_RootListRequiresOrderAndDirection(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))

	_, err := p.Plan(mustParseQuery(t, `query { blocks(first: 10) { nodes { height } } }`), "", nil)
	require.Error(t, err)

	_, err = p.Plan(mustParseQuery(t, `query { blocks(order: {height: asc}) { nodes { height } } }`), "", nil)
	require.Error(t, err)

	_, err = p.Plan(mustParseQuery(t, `query { blocks(first: 10, last: 5, order: {height: asc}) { nodes { height } } }`), "", nil)
	require.Error(t, err)
}

func TestPlan_RootListValid(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { blocks(first: 10, order: {height: asc}) { nodes { height hash } } }`)
	plan, err := p.Plan(doc, "", nil)
	require.NoError(t, err)
	require.True(t, plan.Selections[0].IsList)
	require.Equal(t, []SortKey{{Field: "height", Desc: false}}, plan.Selections[0].Order)
}

func TestPlan_UnknownField(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { block(id: "1") { nonsense } }`)
	_, err := p.Plan(doc, "", nil)
	require.Error(t, err)
}

func TestPlan_VirtualEntityRejectedAtRoot(t *testing.T) {
	m := mustBuildModel(t)
	p := NewPlanner(m)
	_, ok := m.Entity("Meta")
	require.True(t, ok)
	// Meta is @virtual and never indexed under a root list/object field name,
	// so a query naming it directly resolves as unknown rather than reaching
	// the virtual-root check; this asserts that Planner never registers one.
	_, hasList := p.rootByList["metas"]
	_, hasObj := p.rootByObject["meta"]
	require.False(t, hasList)
	require.False(t, hasObj)
}

func TestPlan_VirtualReference(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { author(id: "1") { name meta { note } } }`)
	plan, err := p.Plan(doc, "", nil)
	require.NoError(t, err)
	require.Len(t, plan.Selections[0].Children, 2)
	var virtual *FieldSelection
	for i := range plan.Selections[0].Children {
		if plan.Selections[0].Children[i].ResponseKey == "meta" {
			virtual = &plan.Selections[0].Children[i]
		}
	}
	require.NotNil(t, virtual)
	require.True(t, virtual.IsVirtual)
}

func TestPlan_NestedConnectionRequiresOrder(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { block(id: "1") { txs(first: 5) { nodes { hash } } } }`)
	_, err := p.Plan(doc, "", nil)
	require.Error(t, err)
}

func TestPlan_FragmentCycleRejected(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `
		query { block(id: "1") { ...A } }
		fragment A on Block { ...A }
	`)
	_, err := p.Plan(doc, "", nil)
	require.Error(t, err)
}

func TestPlan_Introspection(t *testing.T) {
	p := NewPlanner(mustBuildModel(t))
	doc := mustParseQuery(t, `query { __schema { queryType { name } } }`)
	plan, err := p.Plan(doc, "", nil)
	require.NoError(t, err)
	require.True(t, plan.Introspection)
}
