package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeManifest(t, `
namespace: indexer1
identifier: blocks
graphql_schema: schema.graphql
start_block: 10
module:
  wasm: handler.wasm
`)
	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "indexer1", m.Namespace)
	require.Equal(t, "blocks", m.Identifier)
	require.Equal(t, "schema.graphql", m.GraphQLSchema)
	require.NotNil(t, m.StartBlock)
	require.Equal(t, uint64(10), *m.StartBlock)
	require.Equal(t, "wasm", m.Module.Kind())
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("FUEL_HOST", "node.internal:4000")
	path := writeManifest(t, `
namespace: indexer1
identifier: blocks
graphql_schema: schema.graphql
fuel_client: ${FUEL_HOST}
`)
	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "node.internal:4000", m.FuelClient)
}

func TestLoad_ContractIDAcceptsStringOrList(t *testing.T) {
	path := writeManifest(t, `
namespace: indexer1
identifier: blocks
graphql_schema: schema.graphql
contract_id: "0xabc"
`)
	m, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ContractIDs{"0xabc"}, m.ContractID)

	path2 := writeManifest(t, `
namespace: indexer1
identifier: blocks
graphql_schema: schema.graphql
contract_id: ["0xabc", "0xdef"]
`)
	m2, err := Load(path2)
	require.NoError(t, err)
	require.Equal(t, ContractIDs{"0xabc", "0xdef"}, m2.ContractID)
}

func TestLoad_MissingRequiredField(t *testing.T) {
	path := writeManifest(t, `
identifier: blocks
graphql_schema: schema.graphql
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_AmbiguousModule(t *testing.T) {
	path := writeManifest(t, `
namespace: indexer1
identifier: blocks
graphql_schema: schema.graphql
module:
  wasm: handler.wasm
  native: handler.so
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_StartAfterEndRejected(t *testing.T) {
	path := writeManifest(t, `
namespace: indexer1
identifier: blocks
graphql_schema: schema.graphql
start_block: 100
end_block: 10
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	require.Equal(t, filepath.Join("configs", "schema.graphql"), ResolvePath("configs/manifest.yaml", "schema.graphql"))
	require.Equal(t, "/abs/schema.graphql", ResolvePath("configs/manifest.yaml", "/abs/schema.graphql"))
}
