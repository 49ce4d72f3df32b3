// Package ddl is the DDL Builder (§4.2): given a validated Schema Model and a
// dialect tag, it emits a deterministic ordered sequence of SQL statements,
// and can persist that sequence as a versioned migration file via
// ariga.io/atlas's migration-directory abstraction.
package ddl
