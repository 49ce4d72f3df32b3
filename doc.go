// Package indexerd hosts the shared types of the indexer core: the status
// and error taxonomy that every subsystem (schema, ddl, codec, db, runtime,
// fetcher, service, query) reports through.
//
// Subsystems live in their own packages:
//
//   - [github.com/syssam/indexerd/chain]: block/receipt wire types from the node
//   - [github.com/syssam/indexerd/schema]: GraphQL SDL -> entity graph (Schema Model)
//   - [github.com/syssam/indexerd/ddl]: entity graph -> dialect DDL (DDL Builder)
//   - [github.com/syssam/indexerd/codec]: entity row <-> wire bytes (Row Codec)
//   - [github.com/syssam/indexerd/db]: dialect-agnostic database adapter
//   - [github.com/syssam/indexerd/runtime]: sandboxed/native module host
//   - [github.com/syssam/indexerd/fetcher]: node block pagination
//   - [github.com/syssam/indexerd/service]: indexer lifecycle
//   - [github.com/syssam/indexerd/query]: GraphQL query planning and execution
//   - [github.com/syssam/indexerd/manifest]: manifest YAML loading
package indexerd
