package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocql/gocql"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// CassandraAdapter provisions keyspaces and roles on a shared Cassandra
// cluster.
type CassandraAdapter struct {
	cfg Config
}

// NewCassandra creates a Cassandra adapter.
func NewCassandra(cfg Config) *CassandraAdapter {
	return &CassandraAdapter{cfg: cfg}
}

// Kind returns the engine kind this adapter serves.
func (a *CassandraAdapter) Kind() provision.EngineKind {
	return provision.EngineCassandra
}

// Endpoint returns the advertised host and port.
func (a *CassandraAdapter) Endpoint() (string, int) {
	return a.cfg.Host, a.cfg.Port
}

// Create creates the role, the keyspace, and the grant. All statements
// use IF NOT EXISTS so a partially-applied earlier attempt does not fail
// the call.
func (a *CassandraAdapter) Create(ctx context.Context, name, dbUser, secret string, _ int) (string, error) {
	session, err := a.connect()
	if err != nil {
		return "", err
	}
	defer session.Close()

	statements := []string{
		fmt.Sprintf("CREATE ROLE IF NOT EXISTS %s WITH PASSWORD = '%s' AND LOGIN = true",
			dbUser, quoteCQLString(secret)),
		fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}",
			name),
		fmt.Sprintf("GRANT ALL PERMISSIONS ON KEYSPACE %s TO %s", name, dbUser),
	}
	for _, stmt := range statements {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return "", fmt.Errorf("cassandra: create %s: %w", name, err)
		}
	}

	return a.cfg.Host, nil
}

// Destroy drops the keyspace and role with IF EXISTS semantics.
func (a *CassandraAdapter) Destroy(ctx context.Context, name, dbUser string) error {
	session, err := a.connect()
	if err != nil {
		return err
	}
	defer session.Close()

	statements := []string{
		fmt.Sprintf("DROP KEYSPACE IF EXISTS %s", name),
		fmt.Sprintf("DROP ROLE IF EXISTS %s", dbUser),
	}
	for _, stmt := range statements {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("cassandra: drop %s: %w", name, err)
		}
	}

	return nil
}

func (a *CassandraAdapter) connect() (*gocql.Session, error) {
	cluster := gocql.NewCluster(a.cfg.Hosts...)
	if a.cfg.AdminUser != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: a.cfg.AdminUser,
			Password: a.cfg.AdminPassword,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra: connect admin: %w", err)
	}
	return session, nil
}

// quoteCQLString escapes single quotes for use inside a single-quoted CQL
// string literal.
func quoteCQLString(s string) string {
	return strings.ReplaceAll(s, `'`, `''`)
}
