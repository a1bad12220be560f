package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// SQL Server driver
	_ "github.com/microsoft/go-mssqldb"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// SQLServerAdapter provisions databases and logins on a shared SQL Server
// through the master database.
type SQLServerAdapter struct {
	cfg Config
}

// NewSQLServer creates a SQL Server adapter.
func NewSQLServer(cfg Config) *SQLServerAdapter {
	return &SQLServerAdapter{cfg: cfg}
}

// Kind returns the engine kind this adapter serves.
func (a *SQLServerAdapter) Kind() provision.EngineKind {
	return provision.EngineSQLServer
}

// Endpoint returns the advertised host and port.
func (a *SQLServerAdapter) Endpoint() (string, int) {
	return a.cfg.Host, a.cfg.Port
}

// Create creates the database and login from master, then creates the
// database user and makes it db_owner inside the new database. CREATE
// DATABASE must be the only statement in its batch.
func (a *SQLServerAdapter) Create(ctx context.Context, name, dbUser, secret string, _ int) (string, error) {
	db, err := sql.Open("sqlserver", a.cfg.AdminDSN)
	if err != nil {
		return "", fmt.Errorf("sqlserver: open admin connection: %w", err)
	}
	defer db.Close()

	batches := []string{
		fmt.Sprintf("CREATE DATABASE [%s]", name),
		fmt.Sprintf("CREATE LOGIN [%s] WITH PASSWORD = '%s'", dbUser, quoteSQLServerString(secret)),
		fmt.Sprintf("USE [%s]; CREATE USER [%s] FOR LOGIN [%s]; ALTER ROLE db_owner ADD MEMBER [%s]",
			name, dbUser, dbUser, dbUser),
	}
	for _, batch := range batches {
		if _, err := db.ExecContext(ctx, batch); err != nil {
			return "", fmt.Errorf("sqlserver: create %s: %w", name, err)
		}
	}

	return a.cfg.Host, nil
}

// Destroy forces the database to single-user mode to kick attached
// sessions, then drops the database and login. Every step is guarded so a
// repeated destroy against an already-removed resource succeeds.
func (a *SQLServerAdapter) Destroy(ctx context.Context, name, dbUser string) error {
	db, err := sql.Open("sqlserver", a.cfg.AdminDSN)
	if err != nil {
		return fmt.Errorf("sqlserver: open admin connection: %w", err)
	}
	defer db.Close()

	batches := []string{
		fmt.Sprintf("IF DB_ID(N'%s') IS NOT NULL ALTER DATABASE [%s] SET SINGLE_USER WITH ROLLBACK IMMEDIATE", name, name),
		fmt.Sprintf("DROP DATABASE IF EXISTS [%s]", name),
		fmt.Sprintf("IF EXISTS (SELECT 1 FROM sys.server_principals WHERE name = N'%s') DROP LOGIN [%s]", dbUser, dbUser),
	}
	for _, batch := range batches {
		if _, err := db.ExecContext(ctx, batch); err != nil {
			return fmt.Errorf("sqlserver: drop %s: %w", name, err)
		}
	}

	return nil
}

// quoteSQLServerString escapes single quotes for use inside a
// single-quoted T-SQL string literal.
func quoteSQLServerString(s string) string {
	return strings.ReplaceAll(s, `'`, `''`)
}
