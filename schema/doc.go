// Package schema is the Schema Model (§4.1): it parses a user's GraphQL SDL
// once at registration and produces the entity/field graph that the DDL
// Builder, Row Codec, and Query Planner all consume. After registration no
// other component reparses the SDL — the registry's columns table plus this
// package's in-process parsed cache is the single source of truth (§9
// "Schema-as-data").
package schema
