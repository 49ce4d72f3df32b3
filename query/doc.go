// Package query is the Query Planner and Query Executor (§4.8-4.9): it
// resolves a parsed GraphQL document against a Schema Model, turns
// selections into SQL, and binds/executes the result through the Database
// Adapter. IntrospectionQuery is served from an in-memory dynamic schema
// instead of the relational store.
package query
