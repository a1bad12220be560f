// Package stores provides the canonical persistence layer for dbfarm.
// It includes SQLite-based storage with WAL mode, connection pooling,
// embedded migrations, and CRUD operations for users, database instances,
// and the append-only audit trail.
package stores
