package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/indexerd/schema"
)

func mustBuildEntity(t *testing.T, sdl, name string) *schema.Entity {
	t.Helper()
	doc, err := schema.Parse("t.graphql", sdl)
	require.NoError(t, err)
	m, err := schema.Build("ns", "id1", doc)
	require.NoError(t, err)
	e, ok := m.Entity(name)
	require.True(t, ok)
	return e
}

const filterTestSDL = `
type Block {
  id: ID!
  height: U64!
  hash: Bytes32! @unique
  confirmed: Boolean!
}
`

func TestParseFilter_SimpleEquality(t *testing.T) {
	e := mustBuildEntity(t, filterTestSDL, "Block")
	f, err := parseFilter(e, map[string]any{"height": map[string]any{"eq": float64(10)}})
	require.NoError(t, err)
	require.Equal(t, OpEq, f.Op)
	require.Equal(t, "height", f.Field)
	require.Equal(t, float64(10), f.Value)
}

func TestParseFilter_AndOr(t *testing.T) {
	e := mustBuildEntity(t, filterTestSDL, "Block")
	f, err := parseFilter(e, map[string]any{
		"and": []any{
			map[string]any{"height": map[string]any{"gt": float64(1)}},
			map[string]any{"confirmed": map[string]any{"eq": true}},
		},
	})
	require.NoError(t, err)
	require.Equal(t, OpAnd, f.Op)
	require.Len(t, f.Children, 2)
}

func TestParseFilter_NotRejectsNonBooleanOrderingComparison(t *testing.T) {
	e := mustBuildEntity(t, filterTestSDL, "Block")
	_, err := parseFilter(e, map[string]any{
		"not": map[string]any{"height": map[string]any{"gt": float64(1)}},
	})
	require.Error(t, err)
}

func TestParseFilter_NotAllowsEqualityOnNonBoolean(t *testing.T) {
	e := mustBuildEntity(t, filterTestSDL, "Block")
	f, err := parseFilter(e, map[string]any{
		"not": map[string]any{"height": map[string]any{"eq": float64(1)}},
	})
	require.NoError(t, err)
	require.Equal(t, OpNot, f.Op)
}

func TestParseFilter_RejectsOrderedOpOnUnorderedType(t *testing.T) {
	e := mustBuildEntity(t, filterTestSDL, "Block")
	_, err := parseFilter(e, map[string]any{"hash": map[string]any{"gt": "0x00"}})
	require.Error(t, err)
}

func TestParseFilter_RejectsUnsupportedOperator(t *testing.T) {
	e := mustBuildEntity(t, filterTestSDL, "Block")
	_, err := parseFilter(e, map[string]any{"height": map[string]any{"like": "1"}})
	require.Error(t, err)
}

func TestResolveValue_UndefinedVariable(t *testing.T) {
	v := &ast.Value{Kind: ast.Variable, Raw: "missing"}
	_, err := resolveValue(v, map[string]any{})
	require.Error(t, err)
}

func TestResolveValue_Variable(t *testing.T) {
	v := &ast.Value{Kind: ast.Variable, Raw: "limit"}
	val, err := resolveValue(v, map[string]any{"limit": 5})
	require.NoError(t, err)
	require.Equal(t, 5, val)
}

func TestResolveValue_Scalars(t *testing.T) {
	cases := []struct {
		v    *ast.Value
		want any
	}{
		{&ast.Value{Kind: ast.IntValue, Raw: "10"}, "10"},
		{&ast.Value{Kind: ast.BooleanValue, Raw: "true"}, true},
		{&ast.Value{Kind: ast.BooleanValue, Raw: "false"}, false},
		{&ast.Value{Kind: ast.NullValue}, nil},
	}
	for _, c := range cases {
		got, err := resolveValue(c.v, nil)
		require.NoError(t, err)
		require.Equal(t, c.want, got)
	}
}
