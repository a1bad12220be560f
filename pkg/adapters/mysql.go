package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// MySQL driver
	_ "github.com/go-sql-driver/mysql"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// MySQLAdapter provisions databases and users on a shared MySQL server.
type MySQLAdapter struct {
	cfg Config
}

// NewMySQL creates a MySQL adapter.
func NewMySQL(cfg Config) *MySQLAdapter {
	return &MySQLAdapter{cfg: cfg}
}

// Kind returns the engine kind this adapter serves.
func (a *MySQLAdapter) Kind() provision.EngineKind {
	return provision.EngineMySQL
}

// Endpoint returns the advertised host and port.
func (a *MySQLAdapter) Endpoint() (string, int) {
	return a.cfg.Host, a.cfg.Port
}

// Create creates the database with utf8mb4, the user, and the grant.
// Identifiers arrive sanitized to [a-z0-9_]; the secret is quoted as a
// string literal.
func (a *MySQLAdapter) Create(ctx context.Context, name, dbUser, secret string, _ int) (string, error) {
	db, err := sql.Open("mysql", a.cfg.AdminDSN)
	if err != nil {
		return "", fmt.Errorf("mysql: open admin connection: %w", err)
	}
	defer db.Close()

	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", name),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", dbUser, quoteMySQLString(secret)),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON `%s`.* TO '%s'@'%%'", name, dbUser),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("mysql: create %s: %w", name, err)
		}
	}

	return a.cfg.Host, nil
}

// Destroy drops the database and user with IF EXISTS semantics.
func (a *MySQLAdapter) Destroy(ctx context.Context, name, dbUser string) error {
	db, err := sql.Open("mysql", a.cfg.AdminDSN)
	if err != nil {
		return fmt.Errorf("mysql: open admin connection: %w", err)
	}
	defer db.Close()

	statements := []string{
		fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", name),
		fmt.Sprintf("DROP USER IF EXISTS '%s'@'%%'", dbUser),
		"FLUSH PRIVILEGES",
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: drop %s: %w", name, err)
		}
	}

	return nil
}

// quoteMySQLString escapes single quotes and backslashes for use inside a
// single-quoted MySQL string literal.
func quoteMySQLString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `''`)
}
