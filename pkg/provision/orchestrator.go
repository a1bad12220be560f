package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dbfarm/dbfarm/pkg/credentials"
	"github.com/dbfarm/dbfarm/pkg/plans"
	"github.com/dbfarm/dbfarm/pkg/telemetry"
)

// pipelineState names the phases of a create or delete pipeline. Each
// call walks the phases sequentially; every adapter and repository
// exchange completes before the pipeline advances.
type pipelineState string

const (
	stateRequested    pipelineState = "requested"
	stateValidating   pipelineState = "validating"
	stateProvisioning pipelineState = "provisioning"
	stateDestroying   pipelineState = "destroying"
	stateCommitting   pipelineState = "committing"
	stateCompleted    pipelineState = "completed"
	stateFailed       pipelineState = "failed"
)

// CredentialSource produces the (name, dbUser, secret) triple for a new
// instance.
type CredentialSource interface {
	Generate(ownerID int64, engine string) (credentials.Credentials, error)
}

// OrchestratorConfig carries the collaborators an Orchestrator composes.
type OrchestratorConfig struct {
	Repository  Repository
	Users       UserDirectory
	Audit       AuditRecorder
	Adapters    AdapterRegistry
	Catalog     *plans.Catalog
	Credentials CredentialSource

	// Notifier is optional; when set it is invoked post-commit only and
	// its failures never change the call's outcome.
	Notifier Notifier

	// Telemetry components are optional; absent ones default to no-ops.
	Logger  *telemetry.Logger
	Metrics *telemetry.Metrics
	Tracer  *telemetry.Tracer
}

// Orchestrator runs the create and delete pipelines for database
// instances. Each call is one sequential pipeline; distinct calls share
// no locks and proceed independently. Nothing here retries: a failed
// adapter call is terminal for its pipeline and retry is a caller
// decision.
type Orchestrator struct {
	repo     Repository
	users    UserDirectory
	audit    AuditRecorder
	adapters AdapterRegistry
	quota    *QuotaValidator
	creds    CredentialSource
	notifier Notifier

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
}

// NewOrchestrator validates the configuration and builds an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	switch {
	case cfg.Repository == nil:
		return nil, fmt.Errorf("repository is required")
	case cfg.Users == nil:
		return nil, fmt.Errorf("user directory is required")
	case cfg.Audit == nil:
		return nil, fmt.Errorf("audit recorder is required")
	case cfg.Adapters == nil:
		return nil, fmt.Errorf("adapter registry is required")
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("plan catalog is required")
	case cfg.Credentials == nil:
		return nil, fmt.Errorf("credential source is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = telemetry.NopTracer()
	}

	return &Orchestrator{
		repo:     cfg.Repository,
		users:    cfg.Users,
		audit:    cfg.Audit,
		adapters: cfg.Adapters,
		quota:    NewQuotaValidator(cfg.Repository, cfg.Catalog),
		creds:    cfg.Credentials,
		notifier: cfg.Notifier,
		logger:   logger.WithComponent("orchestrator"),
		metrics:  metrics,
		tracer:   tracer,
	}, nil
}

// CreateInstance runs the create pipeline for one instance:
// validate owner and quota, generate credentials, provision the external
// resource, then commit the canonical record. No instance row is written
// unless the external resource was actually created. If the commit itself
// fails after provisioning succeeded, the external resource is orphaned;
// that inconsistency window is logged and audited, not repaired here.
func (o *Orchestrator) CreateInstance(ctx context.Context, ownerID int64, engine string) (*Instance, error) {
	logger := o.logger.WithOwnerID(ownerID).WithEngine(engine)
	logger.WithField("state", string(stateRequested)).Debug("create requested")

	ctx, span := o.tracer.StartPipelineSpan(ctx, "instance.create", ownerID, engine)
	defer span.End()
	timer := telemetry.NewTimer()

	inst, err := o.create(ctx, ownerID, engine, logger)
	if err != nil {
		telemetry.RecordError(span, err)
		o.metrics.RecordPipeline("create", engine, string(CodeOf(err)), timer.Duration())
		return nil, err
	}

	telemetry.RecordSuccess(span)
	o.metrics.RecordPipeline("create", engine, "completed", timer.Duration())
	return inst, nil
}

func (o *Orchestrator) create(ctx context.Context, ownerID int64, engine string, logger *telemetry.Logger) (*Instance, error) {
	// Validating: owner existence, then engine/quota. Failures here have
	// no side effects; nothing is generated, provisioned, or persisted.
	logger.WithField("state", string(stateValidating)).Debug("validating request")

	owner, err := o.users.GetUser(ctx, ownerID)
	if err != nil {
		return nil, NewInternalError("look up owner", err)
	}
	if owner == nil {
		return nil, NewUserNotFound(ownerID)
	}

	kind, err := o.quota.Validate(ctx, owner, engine)
	if err != nil {
		return nil, err
	}

	adapter, ok := o.adapters.Get(kind)
	if !ok {
		return nil, NewUnsupportedEngine(engine)
	}

	// Provisioning: generate credentials and drive the engine adapter.
	logger.WithField("state", string(stateProvisioning)).Debug("provisioning external resource")

	creds, err := o.creds.Generate(ownerID, string(kind))
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidIdentifier) {
			return nil, NewInvalidIdentifier(err.Error())
		}
		return nil, NewInternalError("generate credentials", err)
	}

	_, port := adapter.Endpoint()
	host, err := o.adapterCreate(ctx, adapter, kind, creds, port)
	if err != nil {
		perr := NewProvisioningError(kind, err)
		logger.WithError(err).Error("provisioning failed")
		o.recordAudit(ctx, ownerID, AuditCreateFailed,
			fmt.Sprintf("create %s failed: %v", kind, err))
		return nil, perr
	}

	// Committing: write the canonical record. A failure here leaves the
	// freshly created external resource without a local record - a known
	// unresolved window, surfaced loudly for operator reconciliation.
	logger.WithField("state", string(stateCommitting)).Debug("committing instance record")

	inst := &Instance{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Engine:    kind,
		Name:      creds.Name,
		DBUser:    creds.DBUser,
		Secret:    creds.Secret,
		Port:      port,
		Host:      host,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := o.repo.AddInstance(ctx, inst); err != nil {
		logger.WithError(err).WithInstanceName(inst.Name).
			Error("record commit failed after provisioning; external resource is orphaned")
		o.recordAudit(ctx, ownerID, AuditCreateFailed,
			fmt.Sprintf("commit of %s %s failed after provisioning: %v", kind, inst.Name, err))
		return nil, NewInternalError("commit instance record", err)
	}

	o.recordAudit(ctx, ownerID, AuditCreate,
		fmt.Sprintf("created %s: %s", kind, inst.Name))
	o.notifyCreated(ctx, owner, inst, logger)

	logger.WithInstanceID(inst.ID).WithField("state", string(stateCompleted)).Info("instance created")
	return inst, nil
}

// DeleteInstance runs the delete pipeline: confirm the instance exists and
// the caller owns it, destroy the external resource, then remove the
// canonical record. When destruction fails the row is kept untouched so
// local metadata never stops reflecting possible external existence.
func (o *Orchestrator) DeleteInstance(ctx context.Context, ownerID int64, instanceID string) error {
	logger := o.logger.WithOwnerID(ownerID).WithInstanceID(instanceID)
	logger.WithField("state", string(stateRequested)).Debug("delete requested")

	ctx, span := o.tracer.StartPipelineSpan(ctx, "instance.delete", ownerID, "")
	defer span.End()
	timer := telemetry.NewTimer()

	engine, err := o.delete(ctx, ownerID, instanceID, logger)
	if err != nil {
		telemetry.RecordError(span, err)
		o.metrics.RecordPipeline("delete", engine, string(CodeOf(err)), timer.Duration())
		return err
	}

	telemetry.RecordSuccess(span)
	o.metrics.RecordPipeline("delete", engine, "completed", timer.Duration())
	return nil
}

func (o *Orchestrator) delete(ctx context.Context, ownerID int64, instanceID string, logger *telemetry.Logger) (string, error) {
	logger.WithField("state", string(stateValidating)).Debug("validating request")

	inst, err := o.repo.GetInstance(ctx, instanceID)
	if err != nil {
		return "", NewInternalError("look up instance", err)
	}
	if inst == nil {
		return "", NewNotFound(instanceID)
	}
	if inst.OwnerID != ownerID {
		return string(inst.Engine), NewForbidden(instanceID)
	}

	adapter, ok := o.adapters.Get(inst.Engine)
	if !ok {
		return string(inst.Engine), NewUnsupportedEngine(string(inst.Engine))
	}

	logger = logger.WithEngine(string(inst.Engine)).WithInstanceName(inst.Name)
	logger.WithField("state", string(stateDestroying)).Debug("destroying external resource")

	if err := o.adapterDestroy(ctx, adapter, inst); err != nil {
		derr := NewDestructionError(inst.Engine, err)
		logger.WithError(err).Error("destruction failed; instance record preserved")
		o.recordAudit(ctx, ownerID, AuditDeleteFailed,
			fmt.Sprintf("destroy %s %s failed: %v", inst.Engine, inst.Name, err))
		return string(inst.Engine), derr
	}

	logger.WithField("state", string(stateCommitting)).Debug("removing instance record")

	if err := o.repo.RemoveInstance(ctx, instanceID); err != nil {
		o.recordAudit(ctx, ownerID, AuditDeleteFailed,
			fmt.Sprintf("remove record for %s %s failed after destruction: %v", inst.Engine, inst.Name, err))
		return string(inst.Engine), NewInternalError("remove instance record", err)
	}

	o.recordAudit(ctx, ownerID, AuditDelete,
		fmt.Sprintf("deleted %s: %s", inst.Engine, inst.Name))
	o.notifyDestroyed(ctx, ownerID, inst, logger)

	logger.WithField("state", string(stateCompleted)).Info("instance deleted")
	return string(inst.Engine), nil
}

// ListInstances returns the owner's instances.
func (o *Orchestrator) ListInstances(ctx context.Context, ownerID int64) ([]*Instance, error) {
	instances, err := o.repo.ListInstancesByOwner(ctx, ownerID)
	if err != nil {
		return nil, NewInternalError("list instances", err)
	}
	return instances, nil
}

// adapterCreate drives the adapter's Create with a span and call metrics.
func (o *Orchestrator) adapterCreate(ctx context.Context, adapter Adapter, kind EngineKind, creds credentials.Credentials, port int) (string, error) {
	ctx, span := o.tracer.StartAdapterSpan(ctx, string(kind), "create")
	defer span.End()

	timer := telemetry.NewTimer()
	host, err := adapter.Create(ctx, creds.Name, creds.DBUser, creds.Secret, port)
	o.metrics.RecordAdapterCall(string(kind), "create", timer.Duration())

	if err != nil {
		o.metrics.RecordAdapterError(string(kind), "create")
		telemetry.RecordError(span, err)
		return "", err
	}

	telemetry.RecordSuccess(span)
	return host, nil
}

// adapterDestroy drives the adapter's Destroy with a span and call metrics.
func (o *Orchestrator) adapterDestroy(ctx context.Context, adapter Adapter, inst *Instance) error {
	ctx, span := o.tracer.StartAdapterSpan(ctx, string(inst.Engine), "destroy")
	defer span.End()

	timer := telemetry.NewTimer()
	err := adapter.Destroy(ctx, inst.Name, inst.DBUser)
	o.metrics.RecordAdapterCall(string(inst.Engine), "destroy", timer.Duration())

	if err != nil {
		o.metrics.RecordAdapterError(string(inst.Engine), "destroy")
		telemetry.RecordError(span, err)
		return err
	}

	telemetry.RecordSuccess(span)
	return nil
}

// recordAudit appends an audit entry. Recording failures are logged and
// swallowed so they never abort an otherwise-successful operation.
func (o *Orchestrator) recordAudit(ctx context.Context, ownerID int64, action AuditAction, detail string) {
	if err := o.audit.Log(ctx, ownerID, action, EntityInstance, detail); err != nil {
		o.logger.WithError(err).WithOwnerID(ownerID).
			WithField("action", string(action)).
			Warn("audit record failed")
	}
}

// notifyCreated delivers the post-commit creation notification.
// Best-effort: failures are logged, never propagated.
func (o *Orchestrator) notifyCreated(ctx context.Context, owner *User, inst *Instance, logger *telemetry.Logger) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.InstanceCreated(ctx, owner, inst); err != nil {
		logger.WithError(err).Warn("creation notification failed")
	}
}

// notifyDestroyed delivers the post-commit destruction notification.
func (o *Orchestrator) notifyDestroyed(ctx context.Context, ownerID int64, inst *Instance, logger *telemetry.Logger) {
	if o.notifier == nil {
		return
	}

	owner, err := o.users.GetUser(ctx, ownerID)
	if err != nil || owner == nil {
		logger.Warn("destruction notification skipped: owner lookup failed")
		return
	}
	if err := o.notifier.InstanceDestroyed(ctx, owner, inst); err != nil {
		logger.WithError(err).Warn("destruction notification failed")
	}
}
