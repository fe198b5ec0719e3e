// Package crosscheck compares engine results against SQLite.
//
// The database is loaded into an SQLite instance, in memory unless a path
// is given, and the query is rewritten as an equivalent SELECT DISTINCT
// over the relation tables. The SQL result is the oracle: any missing or
// extra row in an engine result is reported as a mismatch.
//
// # Database Configuration
//
//   - One connection: every connection to ":memory:" is a separate database
//   - journal_mode=MEMORY and synchronous=OFF: nothing here is durable
//   - relations catalog table from schema.sql
//
// SQLite is an oracle only. Nothing the engine computes is persisted.
package crosscheck
