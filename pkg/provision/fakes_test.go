package provision

import (
	"context"
	"fmt"
)

// fakeRepo is an in-memory Repository with injectable failures.
type fakeRepo struct {
	instances map[string]*Instance
	addErr    error
	removeErr error
	getErr    error
	countErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{instances: make(map[string]*Instance)}
}

func (r *fakeRepo) ListInstancesByOwner(_ context.Context, ownerID int64) ([]*Instance, error) {
	var out []*Instance
	for _, inst := range r.instances {
		if inst.OwnerID == ownerID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetInstance(_ context.Context, id string) (*Instance, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return r.instances[id], nil
}

func (r *fakeRepo) CountInstancesByOwnerAndEngine(_ context.Context, ownerID int64, engine EngineKind) (int, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	count := 0
	for _, inst := range r.instances {
		if inst.OwnerID == ownerID && inst.Engine == engine {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) AddInstance(_ context.Context, inst *Instance) error {
	if r.addErr != nil {
		return r.addErr
	}
	r.instances[inst.ID] = inst
	return nil
}

func (r *fakeRepo) RemoveInstance(_ context.Context, id string) error {
	if r.removeErr != nil {
		return r.removeErr
	}
	delete(r.instances, id)
	return nil
}

// fakeUsers is an in-memory UserDirectory.
type fakeUsers struct {
	users map[int64]*User
}

func newFakeUsers(users ...*User) *fakeUsers {
	m := make(map[int64]*User)
	for _, u := range users {
		m[u.ID] = u
	}
	return &fakeUsers{users: m}
}

func (u *fakeUsers) GetUser(_ context.Context, id int64) (*User, error) {
	return u.users[id], nil
}

// auditRecord is one captured audit call.
type auditRecord struct {
	ownerID int64
	action  AuditAction
	entity  string
	detail  string
}

// fakeAudit captures audit entries in call order.
type fakeAudit struct {
	entries []auditRecord
	err     error
}

func (a *fakeAudit) Log(_ context.Context, ownerID int64, action AuditAction, entity, detail string) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, auditRecord{ownerID, action, entity, detail})
	return nil
}

func (a *fakeAudit) actions() []AuditAction {
	out := make([]AuditAction, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.action
	}
	return out
}

// fakeAdapter implements Adapter with canned results and call counters.
type fakeAdapter struct {
	kind       EngineKind
	host       string
	port       int
	createErr  error
	destroyErr error

	createCalls  int
	destroyCalls int
	lastName     string
	lastDBUser   string
	lastSecret   string
}

func (a *fakeAdapter) Kind() EngineKind { return a.kind }

func (a *fakeAdapter) Endpoint() (string, int) { return a.host, a.port }

func (a *fakeAdapter) Create(_ context.Context, name, dbUser, secret string, _ int) (string, error) {
	a.createCalls++
	a.lastName = name
	a.lastDBUser = dbUser
	a.lastSecret = secret
	if a.createErr != nil {
		return "", a.createErr
	}
	return a.host, nil
}

func (a *fakeAdapter) Destroy(_ context.Context, name, dbUser string) error {
	a.destroyCalls++
	a.lastName = name
	a.lastDBUser = dbUser
	return a.destroyErr
}

// fakeRegistry maps engine kinds to adapters.
type fakeRegistry struct {
	adapters map[EngineKind]Adapter
}

func newFakeRegistry(adapters ...Adapter) *fakeRegistry {
	m := make(map[EngineKind]Adapter)
	for _, a := range adapters {
		m[a.Kind()] = a
	}
	return &fakeRegistry{adapters: m}
}

func (r *fakeRegistry) Get(kind EngineKind) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}

// fakeNotifier counts deliveries and can fail on demand.
type fakeNotifier struct {
	created   int
	destroyed int
	err       error
}

func (n *fakeNotifier) InstanceCreated(_ context.Context, _ *User, _ *Instance) error {
	n.created++
	return n.err
}

func (n *fakeNotifier) InstanceDestroyed(_ context.Context, _ *User, _ *Instance) error {
	n.destroyed++
	return n.err
}

// errFake is a sentinel for injected failures.
var errFake = fmt.Errorf("injected failure")
