package stores

import (
	"context"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// Store defines the interface for the persistence layer. Instance and
// user lookups return (nil, nil) when no matching row exists; writes
// persist immediately (there is no deferred unit of work).
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, user *provision.User) error
	GetUser(ctx context.Context, id int64) (*provision.User, error)
	GetUserByEmail(ctx context.Context, email string) (*provision.User, error)
	ListUsers(ctx context.Context) ([]*provision.User, error)

	// Instance operations
	AddInstance(ctx context.Context, inst *provision.Instance) error
	GetInstance(ctx context.Context, id string) (*provision.Instance, error)
	ListInstancesByOwner(ctx context.Context, ownerID int64) ([]*provision.Instance, error)
	CountInstancesByOwnerAndEngine(ctx context.Context, ownerID int64, engine provision.EngineKind) (int, error)
	UpdateInstanceStatus(ctx context.Context, id string, status provision.InstanceStatus) error
	RemoveInstance(ctx context.Context, id string) error

	// Audit operations (append-only)
	Log(ctx context.Context, ownerID int64, action provision.AuditAction, entity, detail string) error
	ListAuditByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]*provision.AuditEntry, error)
	ListAudit(ctx context.Context, limit, offset int) ([]*provision.AuditEntry, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
