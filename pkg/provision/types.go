package provision

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EngineKind identifies a supported database engine family.
// Kinds are matched case-insensitively; the canonical form is lower-case.
type EngineKind string

const (
	EnginePostgreSQL EngineKind = "postgresql"
	EngineMySQL      EngineKind = "mysql"
	EngineSQLServer  EngineKind = "sqlserver"
	EngineMongoDB    EngineKind = "mongodb"
	EngineRedis      EngineKind = "redis"
	EngineCassandra  EngineKind = "cassandra"
)

// Engines lists every engine kind the orchestrator knows about.
var Engines = []EngineKind{
	EnginePostgreSQL,
	EngineMySQL,
	EngineSQLServer,
	EngineMongoDB,
	EngineRedis,
	EngineCassandra,
}

// ParseEngine normalizes a user-supplied engine name to its canonical kind.
// The second return value reports whether the kind is known.
func ParseEngine(s string) (EngineKind, bool) {
	kind := EngineKind(strings.ToLower(strings.TrimSpace(s)))
	for _, e := range Engines {
		if kind == e {
			return e, true
		}
	}
	return kind, false
}

// String returns the canonical lower-case engine name.
func (e EngineKind) String() string {
	return string(e)
}

// Validate checks if the engine kind is one of the known families.
func (e EngineKind) Validate() error {
	if _, ok := ParseEngine(string(e)); !ok {
		return fmt.Errorf("unknown engine kind: %s", e)
	}
	return nil
}

// InstanceStatus represents the lifecycle state of a provisioned instance.
// Deleted instances have no status: the row is removed on successful destroy.
type InstanceStatus string

const (
	// StatusRunning indicates the external resource exists and is usable.
	StatusRunning InstanceStatus = "running"

	// StatusError indicates the instance is in a faulted state requiring
	// operator attention.
	StatusError InstanceStatus = "error"
)

// Instance is the canonical record of one provisioned database instance.
// The secret is stored retrievable because it is handed back to the tenant.
type Instance struct {
	ID        string         `json:"id"`
	OwnerID   int64          `json:"owner_id"`
	Engine    EngineKind     `json:"engine"`
	Name      string         `json:"name"`
	DBUser    string         `json:"db_user"`
	Secret    string         `json:"secret"`
	Port      int            `json:"port"`
	Host      string         `json:"host"`
	Status    InstanceStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// User is an instance owner as seen by the orchestrator. Account
// registration and authentication live outside this core.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditAction identifies an orchestrator action recorded in the audit trail.
type AuditAction string

const (
	AuditCreate       AuditAction = "Create"
	AuditCreateFailed AuditAction = "CreateFailed"
	AuditDelete       AuditAction = "Delete"
	AuditDeleteFailed AuditAction = "DeleteFailed"
)

// EntityInstance is the entity type recorded for instance audit entries.
const EntityInstance = "DatabaseInstance"

// AuditEntry is one append-only record of an action or failure.
// OwnerID is 0 for system actions.
type AuditEntry struct {
	ID        int64       `json:"id"`
	OwnerID   int64       `json:"owner_id"`
	Action    AuditAction `json:"action"`
	Entity    string      `json:"entity"`
	Detail    string      `json:"detail,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Repository is the narrow persistence contract the orchestrator consumes.
// Lookups return (nil, nil) when no matching row exists.
type Repository interface {
	ListInstancesByOwner(ctx context.Context, ownerID int64) ([]*Instance, error)
	GetInstance(ctx context.Context, id string) (*Instance, error)
	CountInstancesByOwnerAndEngine(ctx context.Context, ownerID int64, engine EngineKind) (int, error)
	AddInstance(ctx context.Context, inst *Instance) error
	RemoveInstance(ctx context.Context, id string) error
}

// UserDirectory resolves instance owners. GetUser returns (nil, nil) when
// the user does not exist.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*User, error)
}

// AuditRecorder appends entries to the audit trail. Recording failures
// must never abort an otherwise-successful operation; the orchestrator
// logs them and moves on.
type AuditRecorder interface {
	Log(ctx context.Context, ownerID int64, action AuditAction, entity, detail string) error
}

// Adapter is the per-engine Create/Destroy capability. Each call is a
// single blocking administrative exchange with the target engine; adapters
// do not retry internally.
type Adapter interface {
	// Kind returns the engine kind this adapter serves.
	Kind() EngineKind

	// Endpoint returns the advertised host and port for instances of this
	// engine. Both come from static configuration, not per-instance state.
	Endpoint() (host string, port int)

	// Create provisions the database (or keyspace/ACL scope), the role,
	// and the grant for the new instance, returning the advertised host.
	Create(ctx context.Context, name, dbUser, secret string, port int) (host string, err error)

	// Destroy tears the resource and role down with drop-if-exists
	// semantics; repeated calls against an already-removed resource must
	// not fail. Engines that block deletion while sessions are attached
	// terminate those sessions first.
	Destroy(ctx context.Context, name, dbUser string) error
}

// AdapterRegistry resolves the adapter for an engine kind.
type AdapterRegistry interface {
	Get(kind EngineKind) (Adapter, bool)
}

// Notifier delivers best-effort post-commit notifications. Errors are
// logged by the orchestrator and never change the operation's outcome.
type Notifier interface {
	InstanceCreated(ctx context.Context, owner *User, inst *Instance) error
	InstanceDestroyed(ctx context.Context, owner *User, inst *Instance) error
}
