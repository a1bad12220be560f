// Package provision implements the core provisioning orchestrator for dbfarm.
// It drives the create and delete pipelines for tenant database instances:
// Requested -> Validating -> Provisioning/Destroying -> Committing -> Completed | Failed.
package provision
