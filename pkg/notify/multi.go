package notify

import (
	"context"
	"errors"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

// Multi fans an event out to several notifiers and joins their errors.
type Multi struct {
	notifiers []provision.Notifier
}

// NewMulti creates a fan-out notifier. Nil entries are skipped.
func NewMulti(notifiers ...provision.Notifier) *Multi {
	kept := make([]provision.Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			kept = append(kept, n)
		}
	}
	return &Multi{notifiers: kept}
}

// InstanceCreated delivers the event to every notifier.
func (m *Multi) InstanceCreated(ctx context.Context, owner *provision.User, inst *provision.Instance) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.InstanceCreated(ctx, owner, inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InstanceDestroyed delivers the event to every notifier.
func (m *Multi) InstanceDestroyed(ctx context.Context, owner *provision.User, inst *provision.Instance) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.InstanceDestroyed(ctx, owner, inst); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
