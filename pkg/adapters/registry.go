package adapters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// Config holds the static administrative endpoint for one engine family.
// AdminDSN is the driver-specific privileged connection string; Host and
// Port are what gets advertised to tenants (fixed per engine, never
// computed per instance).
type Config struct {
	// AdminDSN is the privileged connection string (unused by Cassandra,
	// which takes contact points).
	AdminDSN string

	// Hosts are Cassandra contact points.
	Hosts []string

	// AdminUser and AdminPassword authenticate the Cassandra admin session.
	AdminUser     string
	AdminPassword string

	// Host is the advertised instance host.
	Host string

	// Port is the advertised instance port.
	Port int
}

// Registry holds one adapter per engine kind.
type Registry struct {
	// mu protects the adapter map.
	mu sync.RWMutex

	adapters map[provision.EngineKind]provision.Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[provision.EngineKind]provision.Adapter),
	}
}

// Register adds an adapter for its engine kind. Registering the same kind
// twice is an error.
func (r *Registry) Register(a provision.Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	kind, ok := provision.ParseEngine(string(a.Kind()))
	if !ok {
		return fmt.Errorf("adapter reports unknown engine kind %q", a.Kind())
	}
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("adapter for %s already registered", kind)
	}

	r.adapters[kind] = a
	return nil
}

// Get returns the adapter for the given engine kind. Matching is
// case-insensitive via kind normalization.
func (r *Registry) Get(kind provision.EngineKind) (provision.Adapter, bool) {
	normalized, ok := provision.ParseEngine(string(kind))
	if !ok {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[normalized]
	return a, ok
}

// Kinds returns the registered engine kinds in sorted order.
func (r *Registry) Kinds() []provision.EngineKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]provision.EngineKind, 0, len(r.adapters))
	for k := range r.adapters {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
