package adapters

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// PostgresAdapter provisions databases and roles on a shared PostgreSQL
// server through an administrative connection.
type PostgresAdapter struct {
	cfg Config
}

// NewPostgres creates a PostgreSQL adapter.
func NewPostgres(cfg Config) *PostgresAdapter {
	return &PostgresAdapter{cfg: cfg}
}

// Kind returns the engine kind this adapter serves.
func (a *PostgresAdapter) Kind() provision.EngineKind {
	return provision.EnginePostgreSQL
}

// Endpoint returns the advertised host and port.
func (a *PostgresAdapter) Endpoint() (string, int) {
	return a.cfg.Host, a.cfg.Port
}

// Create creates the database, the role, and the grant in three
// statements on one admin connection. CREATE DATABASE cannot run inside a
// transaction, so each statement executes standalone.
func (a *PostgresAdapter) Create(ctx context.Context, name, dbUser, secret string, _ int) (string, error) {
	db, err := sql.Open("postgres", a.cfg.AdminDSN)
	if err != nil {
		return "", fmt.Errorf("postgres: open admin connection: %w", err)
	}
	defer db.Close()

	statements := []string{
		fmt.Sprintf("CREATE DATABASE %s ENCODING 'UTF8'", pq.QuoteIdentifier(name)),
		fmt.Sprintf("CREATE USER %s WITH PASSWORD %s", pq.QuoteIdentifier(dbUser), pq.QuoteLiteral(secret)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", pq.QuoteIdentifier(name), pq.QuoteIdentifier(dbUser)),
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("postgres: create %s: %w", name, err)
		}
	}

	return a.cfg.Host, nil
}

// Destroy terminates sessions attached to the database, then drops the
// database and role with IF EXISTS semantics. The session sweep only runs
// when the database still exists, so a repeated destroy is a no-op.
func (a *PostgresAdapter) Destroy(ctx context.Context, name, dbUser string) error {
	db, err := sql.Open("postgres", a.cfg.AdminDSN)
	if err != nil {
		return fmt.Errorf("postgres: open admin connection: %w", err)
	}
	defer db.Close()

	var exists bool
	err = db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check database %s: %w", name, err)
	}

	if exists {
		preDrop := []string{
			fmt.Sprintf("REVOKE CONNECT ON DATABASE %s FROM public", pq.QuoteIdentifier(name)),
			fmt.Sprintf("SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = %s", pq.QuoteLiteral(name)),
		}
		for _, stmt := range preDrop {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("postgres: detach sessions from %s: %w", name, err)
			}
		}
	}

	postDrop := []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS %s", pq.QuoteIdentifier(name)),
		fmt.Sprintf("DROP ROLE IF EXISTS %s", pq.QuoteIdentifier(dbUser)),
	}
	for _, stmt := range postDrop {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: drop %s: %w", name, err)
		}
	}

	return nil
}
