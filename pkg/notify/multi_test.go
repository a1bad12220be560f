package notify

import (
	"context"
	"fmt"
	"testing"

	"github.com/dbfarm/dbfarm/pkg/provision"
)

type countingNotifier struct {
	created   int
	destroyed int
	err       error
}

func (n *countingNotifier) InstanceCreated(context.Context, *provision.User, *provision.Instance) error {
	n.created++
	return n.err
}

func (n *countingNotifier) InstanceDestroyed(context.Context, *provision.User, *provision.Instance) error {
	n.destroyed++
	return n.err
}

// TestMultiFanOut tests fan-out delivery and error joining
func TestMultiFanOut(t *testing.T) {
	a := &countingNotifier{}
	b := &countingNotifier{err: fmt.Errorf("webhook down")}
	m := NewMulti(a, nil, b)

	owner, inst := testOwnerAndInstance()

	err := m.InstanceCreated(context.Background(), owner, inst)
	if err == nil {
		t.Fatal("expected joined error from failing notifier")
	}
	// Every notifier is still attempted.
	if a.created != 1 || b.created != 1 {
		t.Errorf("created counts = %d/%d, want 1/1", a.created, b.created)
	}

	b.err = nil
	if err := m.InstanceDestroyed(context.Background(), owner, inst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.destroyed != 1 || b.destroyed != 1 {
		t.Errorf("destroyed counts = %d/%d, want 1/1", a.destroyed, b.destroyed)
	}
}
