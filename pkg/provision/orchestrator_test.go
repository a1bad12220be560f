package provision

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dbfarm/dbfarm/pkg/credentials"
	"github.com/dbfarm/dbfarm/pkg/plans"
)

// testHarness bundles an orchestrator with its fakes.
type testHarness struct {
	orch     *Orchestrator
	repo     *fakeRepo
	audit    *fakeAudit
	adapter  *fakeAdapter
	notifier *fakeNotifier
}

func newTestHarness(t *testing.T, users ...*User) *testHarness {
	t.Helper()

	if len(users) == 0 {
		users = []*User{{ID: 42, Email: "alice@example.com", Plan: plans.PlanFree}}
	}

	repo := newFakeRepo()
	audit := &fakeAudit{}
	adapter := &fakeAdapter{kind: EnginePostgreSQL, host: "pg.internal", port: 5432}
	notifier := &fakeNotifier{}

	catalog := plans.NewCatalog([]string{"postgresql", "mysql", "redis"})

	orch, err := NewOrchestrator(OrchestratorConfig{
		Repository:  repo,
		Users:       newFakeUsers(users...),
		Audit:       audit,
		Adapters:    newFakeRegistry(adapter),
		Catalog:     catalog,
		Credentials: credentials.New(),
		Notifier:    notifier,
	})
	if err != nil {
		t.Fatalf("failed to create orchestrator: %v", err)
	}

	return &testHarness{
		orch:     orch,
		repo:     repo,
		audit:    audit,
		adapter:  adapter,
		notifier: notifier,
	}
}

// TestCreateInstance tests the happy path of the create pipeline
func TestCreateInstance(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inst.ID == "" {
		t.Error("expected a generated instance ID")
	}
	if inst.OwnerID != 42 {
		t.Errorf("owner = %d, want 42", inst.OwnerID)
	}
	if inst.Engine != EnginePostgreSQL {
		t.Errorf("engine = %s, want postgresql", inst.Engine)
	}
	if inst.Host != "pg.internal" || inst.Port != 5432 {
		t.Errorf("endpoint = %s:%d, want pg.internal:5432", inst.Host, inst.Port)
	}
	if inst.Status != StatusRunning {
		t.Errorf("status = %s, want running", inst.Status)
	}
	if inst.Secret == "" {
		t.Error("expected a retrievable secret on the record")
	}

	if h.adapter.createCalls != 1 {
		t.Errorf("adapter create calls = %d, want 1", h.adapter.createCalls)
	}
	if h.adapter.lastName != inst.Name || h.adapter.lastDBUser != inst.DBUser {
		t.Error("adapter received different credentials than committed")
	}
	if _, ok := h.repo.instances[inst.ID]; !ok {
		t.Error("instance record was not committed")
	}

	if got, want := h.audit.actions(), []AuditAction{AuditCreate}; !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
	if h.notifier.created != 1 {
		t.Errorf("creation notifications = %d, want 1", h.notifier.created)
	}
}

// TestCreateInstanceEngineCaseInsensitive tests engine normalization
func TestCreateInstanceEngineCaseInsensitive(t *testing.T) {
	h := newTestHarness(t)

	inst, err := h.orch.CreateInstance(context.Background(), 42, "  PostgreSQL ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.Engine != EnginePostgreSQL {
		t.Errorf("engine = %s, want postgresql", inst.Engine)
	}
}

// TestCreateInstanceUserNotFound tests rejection of unknown owners
func TestCreateInstanceUserNotFound(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.orch.CreateInstance(context.Background(), 999, "postgresql")
	if CodeOf(err) != CodeUserNotFound {
		t.Fatalf("code = %s, want USER_NOT_FOUND (err: %v)", CodeOf(err), err)
	}
	if h.adapter.createCalls != 0 {
		t.Error("validation failure must not reach the adapter")
	}
	if len(h.audit.entries) != 0 {
		t.Error("validation failure must not be audited")
	}
}

// TestCreateInstanceUnsupportedEngine tests engine rejection paths
func TestCreateInstanceUnsupportedEngine(t *testing.T) {
	h := newTestHarness(t)

	for _, engine := range []string{"oracle", "", "postgres"} {
		_, err := h.orch.CreateInstance(context.Background(), 42, engine)
		if CodeOf(err) != CodeUnsupportedEngine {
			t.Errorf("engine %q: code = %s, want UNSUPPORTED_ENGINE", engine, CodeOf(err))
		}
	}
	if h.adapter.createCalls != 0 {
		t.Error("unsupported engine must not reach the adapter")
	}
}

// TestCreateInstanceQuotaExceeded tests the plan limit
func TestCreateInstanceQuotaExceeded(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	// Free plan allows two instances per engine.
	for i := 0; i < 2; i++ {
		if _, err := h.orch.CreateInstance(ctx, 42, "postgresql"); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	_, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if CodeOf(err) != CodeQuotaExceeded {
		t.Fatalf("code = %s, want QUOTA_EXCEEDED (err: %v)", CodeOf(err), err)
	}
	if h.adapter.createCalls != 2 {
		t.Errorf("adapter create calls = %d, want 2", h.adapter.createCalls)
	}
	if len(h.repo.instances) != 2 {
		t.Errorf("committed instances = %d, want 2", len(h.repo.instances))
	}
}

// TestCreateInstanceQuotaPerEngine tests that quotas count per engine kind
func TestCreateInstanceQuotaPerEngine(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	mysql := &fakeAdapter{kind: EngineMySQL, host: "mysql.internal", port: 3306}
	h.orch.adapters = newFakeRegistry(h.adapter, mysql)

	for i := 0; i < 2; i++ {
		if _, err := h.orch.CreateInstance(ctx, 42, "postgresql"); err != nil {
			t.Fatalf("postgresql create %d failed: %v", i, err)
		}
	}

	// The postgresql quota being full must not block mysql.
	if _, err := h.orch.CreateInstance(ctx, 42, "mysql"); err != nil {
		t.Fatalf("mysql create failed: %v", err)
	}
}

// TestCreateInstanceProvisioningFailure tests adapter create failure
func TestCreateInstanceProvisioningFailure(t *testing.T) {
	h := newTestHarness(t)
	h.adapter.createErr = errFake

	_, err := h.orch.CreateInstance(context.Background(), 42, "postgresql")
	if CodeOf(err) != CodeProvisioningFailed {
		t.Fatalf("code = %s, want PROVISIONING_FAILED (err: %v)", CodeOf(err), err)
	}
	if !errors.Is(err, errFake) {
		t.Error("expected the adapter cause in the error chain")
	}

	// No external resource means no record.
	if len(h.repo.instances) != 0 {
		t.Error("no record may be committed when provisioning fails")
	}
	if got, want := h.audit.actions(), []AuditAction{AuditCreateFailed}; !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
	if h.notifier.created != 0 {
		t.Error("failed create must not notify")
	}
}

// TestCreateInstanceCommitFailure tests the orphaned-resource window
func TestCreateInstanceCommitFailure(t *testing.T) {
	h := newTestHarness(t)
	h.repo.addErr = errFake

	_, err := h.orch.CreateInstance(context.Background(), 42, "postgresql")
	if CodeOf(err) != CodeInternal {
		t.Fatalf("code = %s, want INTERNAL_ERROR (err: %v)", CodeOf(err), err)
	}

	// The external resource was created; the failure is audited loudly.
	if h.adapter.createCalls != 1 {
		t.Errorf("adapter create calls = %d, want 1", h.adapter.createCalls)
	}
	if got, want := h.audit.actions(), []AuditAction{AuditCreateFailed}; !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
}

// TestDeleteInstance tests the happy path of the delete pipeline
func TestDeleteInstance(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := h.orch.DeleteInstance(ctx, 42, inst.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if h.adapter.destroyCalls != 1 {
		t.Errorf("adapter destroy calls = %d, want 1", h.adapter.destroyCalls)
	}
	if h.adapter.lastName != inst.Name || h.adapter.lastDBUser != inst.DBUser {
		t.Error("adapter destroy received wrong identifiers")
	}
	if _, ok := h.repo.instances[inst.ID]; ok {
		t.Error("instance record must be removed after successful destroy")
	}

	want := []AuditAction{AuditCreate, AuditDelete}
	if got := h.audit.actions(); !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
	if h.notifier.destroyed != 1 {
		t.Errorf("destruction notifications = %d, want 1", h.notifier.destroyed)
	}
}

// TestDeleteInstanceNotFound tests deletion of a missing instance
func TestDeleteInstanceNotFound(t *testing.T) {
	h := newTestHarness(t)

	err := h.orch.DeleteInstance(context.Background(), 42, "no-such-id")
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("code = %s, want NOT_FOUND (err: %v)", CodeOf(err), err)
	}
	if h.adapter.destroyCalls != 0 {
		t.Error("missing instance must not reach the adapter")
	}
}

// TestDeleteInstanceForbidden tests the ownership check
func TestDeleteInstanceForbidden(t *testing.T) {
	h := newTestHarness(t,
		&User{ID: 42, Email: "alice@example.com", Plan: plans.PlanFree},
		&User{ID: 7, Email: "mallory@example.com", Plan: plans.PlanFree},
	)
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = h.orch.DeleteInstance(ctx, 7, inst.ID)
	if CodeOf(err) != CodeForbidden {
		t.Fatalf("code = %s, want FORBIDDEN (err: %v)", CodeOf(err), err)
	}
	if h.adapter.destroyCalls != 0 {
		t.Error("forbidden delete must not reach the adapter")
	}
	if _, ok := h.repo.instances[inst.ID]; !ok {
		t.Error("forbidden delete must not remove the record")
	}
}

// TestDeleteInstanceDestructionFailure tests record preservation
func TestDeleteInstanceDestructionFailure(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	before := *h.repo.instances[inst.ID]

	h.adapter.destroyErr = errFake
	err = h.orch.DeleteInstance(ctx, 42, inst.ID)
	if CodeOf(err) != CodeDestructionFailed {
		t.Fatalf("code = %s, want DESTRUCTION_FAILED (err: %v)", CodeOf(err), err)
	}

	// The row survives untouched so metadata keeps reflecting possible
	// external existence.
	after, ok := h.repo.instances[inst.ID]
	if !ok {
		t.Fatal("record must be preserved when destruction fails")
	}
	if !reflect.DeepEqual(before, *after) {
		t.Error("record must not be mutated by a failed destroy")
	}

	want := []AuditAction{AuditCreate, AuditDeleteFailed}
	if got := h.audit.actions(); !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}

	// The delete stays retryable once the adapter recovers.
	h.adapter.destroyErr = nil
	if err := h.orch.DeleteInstance(ctx, 42, inst.ID); err != nil {
		t.Fatalf("retry after recovery failed: %v", err)
	}
	if _, ok := h.repo.instances[inst.ID]; ok {
		t.Error("record must be removed on successful retry")
	}
}

// TestDeleteInstanceRemoveFailure tests a store failure after destruction
func TestDeleteInstanceRemoveFailure(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	h.repo.removeErr = errFake
	err = h.orch.DeleteInstance(ctx, 42, inst.ID)
	if CodeOf(err) != CodeInternal {
		t.Fatalf("code = %s, want INTERNAL_ERROR (err: %v)", CodeOf(err), err)
	}

	want := []AuditAction{AuditCreate, AuditDeleteFailed}
	if got := h.audit.actions(); !reflect.DeepEqual(got, want) {
		t.Errorf("audit actions = %v, want %v", got, want)
	}
}

// TestNotifierFailureDoesNotChangeOutcome tests best-effort delivery
func TestNotifierFailureDoesNotChangeOutcome(t *testing.T) {
	h := newTestHarness(t)
	h.notifier.err = errFake
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("create must succeed despite notifier failure: %v", err)
	}
	if err := h.orch.DeleteInstance(ctx, 42, inst.ID); err != nil {
		t.Fatalf("delete must succeed despite notifier failure: %v", err)
	}
}

// TestAuditFailureDoesNotChangeOutcome tests audit write resilience
func TestAuditFailureDoesNotChangeOutcome(t *testing.T) {
	h := newTestHarness(t)
	h.audit.err = errFake
	ctx := context.Background()

	inst, err := h.orch.CreateInstance(ctx, 42, "postgresql")
	if err != nil {
		t.Fatalf("create must succeed despite audit failure: %v", err)
	}
	if err := h.orch.DeleteInstance(ctx, 42, inst.ID); err != nil {
		t.Fatalf("delete must succeed despite audit failure: %v", err)
	}
}

// TestListInstances tests the owner-scoped listing
func TestListInstances(t *testing.T) {
	h := newTestHarness(t,
		&User{ID: 42, Email: "alice@example.com", Plan: plans.PlanFree},
		&User{ID: 7, Email: "bob@example.com", Plan: plans.PlanFree},
	)
	ctx := context.Background()

	if _, err := h.orch.CreateInstance(ctx, 42, "postgresql"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := h.orch.CreateInstance(ctx, 7, "postgresql"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	instances, err := h.orch.ListInstances(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instances) != 1 {
		t.Fatalf("got %d instances, want 1", len(instances))
	}
	if instances[0].OwnerID != 42 {
		t.Errorf("listing leaked another owner's instance")
	}
}

// TestNewOrchestratorValidation tests required collaborator checks
func TestNewOrchestratorValidation(t *testing.T) {
	_, err := NewOrchestrator(OrchestratorConfig{})
	if err == nil {
		t.Fatal("expected error for missing collaborators")
	}
}
