package provision

import (
	"context"

	"github.com/dbfarm/dbfarm/pkg/plans"
)

// QuotaValidator checks a creation request against the permitted engine
// set and the owner's plan limit.
//
// The validation is a plain read with no lock: two concurrent creates for
// the same owner and engine can both pass before either commits and
// briefly exceed the plan limit. That check-then-act race is a property
// of the observed design and is deliberately not fixed here; a stronger
// scheme would need a per-(owner, engine) serialization point or a
// commit-time counting constraint.
type QuotaValidator struct {
	repo    Repository
	catalog *plans.Catalog
}

// NewQuotaValidator creates a quota validator over the given repository
// and plan catalog.
func NewQuotaValidator(repo Repository, catalog *plans.Catalog) *QuotaValidator {
	return &QuotaValidator{
		repo:    repo,
		catalog: catalog,
	}
}

// Validate returns the normalized engine kind when the owner may create
// another instance of it, or an UnsupportedEngine/QuotaExceeded error.
// Unknown plans fall back to the most restrictive tier.
func (v *QuotaValidator) Validate(ctx context.Context, owner *User, engine string) (EngineKind, error) {
	kind, ok := ParseEngine(engine)
	if !ok || !v.catalog.Permitted(string(kind)) {
		return "", NewUnsupportedEngine(engine)
	}

	limit := v.catalog.LimitFor(owner.Plan)

	count, err := v.repo.CountInstancesByOwnerAndEngine(ctx, owner.ID, kind)
	if err != nil {
		return "", NewInternalError("count active instances", err)
	}
	if count >= limit {
		return "", NewQuotaExceeded(kind, owner.Plan, limit)
	}

	return kind, nil
}
