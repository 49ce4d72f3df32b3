// Package db is the Database Adapter (§4.4): a narrow connection-pool
// abstraction over PostgreSQL (github.com/lib/pq) and SQLite
// (modernc.org/sqlite), offering acquire-with-backoff, a whole-batch
// transaction lifecycle, and the four operations the Runtime Host and Query
// Executor need — put_entity, get_entity, put_many_to_many, execute_query.
package db
