// Package adapters contains the per-engine Create/Destroy implementations
// and the registry that dispatches on normalized engine kind. Each adapter
// opens a privileged administrative connection to its engine family and
// issues the engine's native create/drop statements; adapters never retry,
// and every failure is wrapped with the engine identity before it
// propagates.
package adapters
