// Package ledger keeps a SQLite history of track outcomes.
//
// One row is written per finished track with its identifiers, terminal
// status, error kind, and delivery statistics. Audio bytes and file paths
// are never stored. The database lives at <log_dir>/ledger.db and uses WAL
// mode with a busy timeout so the CLI and a running server can share it.
package ledger
