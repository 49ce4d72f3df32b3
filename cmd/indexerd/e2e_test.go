package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
)

// scenario bundles a manifest, its GraphQL schema, and a module artifact into
// a single txtar archive, mirroring the example pack's own fixture style
// (gqlgen's codegen tests) and SPEC_FULL.md's end-to-end testing section.
const blockIndexerScenario = `
-- manifest.yaml --
namespace: blocks_ns
identifier: block_indexer
graphql_schema: schema.graphql
start_block: 0
module:
  wasm: handler.wasm
-- schema.graphql --
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
-- handler.wasm --
` + "\x00asm\x01\x00\x00\x00"

// writeScenario extracts a txtar archive into a fresh temp directory and
// returns the path to its manifest.yaml.
func writeScenario(t *testing.T, archive string) string {
	t.Helper()
	a := txtar.Parse([]byte(archive))
	dir := t.TempDir()
	var manifestPath string
	for _, f := range a.Files {
		p := filepath.Join(dir, f.Name)
		require.NoError(t, os.WriteFile(p, f.Data, 0o644))
		if f.Name == "manifest.yaml" {
			manifestPath = p
		}
	}
	require.NotEmpty(t, manifestPath)
	return manifestPath
}

func TestLoadManifestBundle_FromScenarioArchive(t *testing.T) {
	path := writeScenario(t, blockIndexerScenario)

	lb, err := loadManifestBundle(path)
	require.NoError(t, err)
	require.Equal(t, "blocks_ns", lb.mf.Namespace)
	require.Equal(t, "block_indexer", lb.mf.Identifier)
	require.True(t, len(lb.moduleBytes) >= 4)
	require.Equal(t, wasmMagic, lb.moduleBytes[:4])

	require.Len(t, lb.model.Entities, 2)
	blockEntity, ok := lb.model.Entity("Block")
	require.True(t, ok)

	catalog := newModelCatalog(lb.model, ddl.Postgres)
	table, ok := catalog.TableForType(blockEntity.TypeID)
	require.True(t, ok)
	require.Equal(t, `"blocks_ns"."blocks"`, table)

	cols, ok := catalog.ColumnsForType(blockEntity.TypeID)
	require.True(t, ok)
	require.Equal(t, "id", cols[0].Name)
	require.Equal(t, schema.ScalarID, cols[0].Type)
}
