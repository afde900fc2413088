// Package store provides SQLite-backed durable storage for one loam
// document: the note tree, the script rows, and the append-only
// operation log.
//
// # Transactional discipline
//
// Tree mutations and their log records are written inside one
// transaction obtained from Begin. The row-level helpers (InsertNote,
// UpdateNote, AppendOperation, ...) are free functions over *sql.Tx so
// the engine controls the unit of work; commit makes the mutation and
// its provenance durable together, rollback discards both.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// The operation log is append-only; rows are immutable once written and
// only PurgeOperations deletes them, in bulk, per retention strategy.
package store
