// Package sqlite provides the default LogStore on top of modernc.org/sqlite,
// a pure Go SQLite implementation that needs no CGO.
//
// # Schema
//
// The logs table is managed through versioned migrations recorded in
// schema_migrations. SQL migrations live in migrations/ as NNN_name.up.sql;
// steps SQLite cannot express idempotently (adding a column that may already
// exist) are written in Go.
//
// Databases created by older deployments, whose logs table lacks the
// resolved and resolved_ts columns, are upgraded in place.
//
// # Thread Safety
//
// Writes are serialised by a process-wide mutex. The database runs in WAL
// mode so readers are never blocked by the writer.
package sqlite
