// Package notify delivers best-effort post-commit notifications.
//
// Notifiers implement provision.Notifier and run after the canonical
// record is committed. A notifier error never changes the outcome of the
// provisioning operation; the orchestrator logs it and moves on.
package notify
