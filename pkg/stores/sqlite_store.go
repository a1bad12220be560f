package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		cfg: cfg,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys drive the owner cascade on instances.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateUser inserts a new user row and fills in the generated ID.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *provision.User) error {
	query := `INSERT INTO users (email, plan, created_at) VALUES (?, ?, ?)`

	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, query, user.Email, user.Plan, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}

	user.ID = id
	return nil
}

// GetUser retrieves a user by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*provision.User, error) {
	query := `SELECT id, email, plan, created_at FROM users WHERE id = ?`

	user := &provision.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Plan,
		&user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*provision.User, error) {
	query := `SELECT id, email, plan, created_at FROM users WHERE email = ?`

	user := &provision.User{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Plan,
		&user.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// ListUsers lists all users ordered by ID.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*provision.User, error) {
	query := `SELECT id, email, plan, created_at FROM users ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*provision.User{}
	for rows.Next() {
		user := &provision.User{}
		err := rows.Scan(&user.ID, &user.Email, &user.Plan, &user.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// AddInstance inserts a new instance row.
func (s *SQLiteStore) AddInstance(ctx context.Context, inst *provision.Instance) error {
	query := `
		INSERT INTO instances (id, owner_id, engine, name, db_user, secret, port, host, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		inst.ID,
		inst.OwnerID,
		inst.Engine,
		inst.Name,
		inst.DBUser,
		inst.Secret,
		inst.Port,
		inst.Host,
		inst.Status,
		inst.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add instance: %w", err)
	}

	return nil
}

// GetInstance retrieves an instance by ID. Returns (nil, nil) when absent.
func (s *SQLiteStore) GetInstance(ctx context.Context, id string) (*provision.Instance, error) {
	query := `
		SELECT id, owner_id, engine, name, db_user, secret, port, host, status, created_at
		FROM instances
		WHERE id = ?
	`

	inst := &provision.Instance{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&inst.ID,
		&inst.OwnerID,
		&inst.Engine,
		&inst.Name,
		&inst.DBUser,
		&inst.Secret,
		&inst.Port,
		&inst.Host,
		&inst.Status,
		&inst.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return inst, nil
}

// ListInstancesByOwner lists an owner's instances, newest first.
func (s *SQLiteStore) ListInstancesByOwner(ctx context.Context, ownerID int64) ([]*provision.Instance, error) {
	query := `
		SELECT id, owner_id, engine, name, db_user, secret, port, host, status, created_at
		FROM instances
		WHERE owner_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	defer rows.Close()

	instances := []*provision.Instance{}
	for rows.Next() {
		inst := &provision.Instance{}
		err := rows.Scan(
			&inst.ID,
			&inst.OwnerID,
			&inst.Engine,
			&inst.Name,
			&inst.DBUser,
			&inst.Secret,
			&inst.Port,
			&inst.Host,
			&inst.Status,
			&inst.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating instances: %w", err)
	}

	return instances, nil
}

// CountInstancesByOwnerAndEngine counts an owner's instances of one
// engine kind. Rows removed on destroy no longer count; errored rows do.
func (s *SQLiteStore) CountInstancesByOwnerAndEngine(ctx context.Context, ownerID int64, engine provision.EngineKind) (int, error) {
	query := `SELECT COUNT(*) FROM instances WHERE owner_id = ? AND engine = ?`

	var count int
	err := s.db.QueryRowContext(ctx, query, ownerID, engine).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count instances: %w", err)
	}

	return count, nil
}

// UpdateInstanceStatus updates the status of an instance.
func (s *SQLiteStore) UpdateInstanceStatus(ctx context.Context, id string, status provision.InstanceStatus) error {
	query := `UPDATE instances SET status = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update instance status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("instance not found: %s", id)
	}

	return nil
}

// RemoveInstance hard-deletes an instance row.
func (s *SQLiteStore) RemoveInstance(ctx context.Context, id string) error {
	query := `DELETE FROM instances WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to remove instance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("instance not found: %s", id)
	}

	return nil
}

// Log appends a new audit entry. The audit trail is append-only; nothing
// in this store mutates or deletes entries.
func (s *SQLiteStore) Log(ctx context.Context, ownerID int64, action provision.AuditAction, entity, detail string) error {
	query := `INSERT INTO audit (owner_id, action, entity, detail, timestamp) VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, ownerID, action, entity, detail, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// ListAuditByOwner lists audit entries for one owner with pagination,
// newest first.
func (s *SQLiteStore) ListAuditByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*provision.AuditEntry, error) {
	query := `
		SELECT id, owner_id, action, entity, detail, timestamp
		FROM audit
		WHERE owner_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// ListAudit lists all audit entries with pagination, newest first.
func (s *SQLiteStore) ListAudit(ctx context.Context, limit, offset int) ([]*provision.AuditEntry, error) {
	query := `
		SELECT id, owner_id, action, entity, detail, timestamp
		FROM audit
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]*provision.AuditEntry, error) {
	entries := []*provision.AuditEntry{}
	for rows.Next() {
		entry := &provision.AuditEntry{}
		var detail sql.NullString
		err := rows.Scan(
			&entry.ID,
			&entry.OwnerID,
			&entry.Action,
			&entry.Entity,
			&detail,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Detail = detail.String
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
