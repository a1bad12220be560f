// Package plans holds the plan catalog: per-plan instance limits applied
// uniformly per engine kind, and the set of engine kinds tenants may
// provision. Plan administration (pricing, billing) lives outside this
// service.
package plans

import (
	"sort"
	"strings"
)

// Plan names known to the catalog.
const (
	PlanFree     = "free"
	PlanStandard = "standard"
	PlanPremium  = "premium"
)

// defaultLimits maps plan name to the maximum number of active instances
// per engine kind.
var defaultLimits = map[string]int{
	PlanFree:     2,
	PlanStandard: 5,
	PlanPremium:  10,
}

// Catalog answers plan-limit and engine-permission queries.
type Catalog struct {
	limits    map[string]int
	permitted map[string]bool
}

// NewCatalog builds a catalog with the default plan table and the given
// permitted engine kinds. Engine names are matched case-insensitively.
func NewCatalog(permittedEngines []string) *Catalog {
	permitted := make(map[string]bool, len(permittedEngines))
	for _, e := range permittedEngines {
		permitted[strings.ToLower(e)] = true
	}

	limits := make(map[string]int, len(defaultLimits))
	for plan, n := range defaultLimits {
		limits[plan] = n
	}

	return &Catalog{
		limits:    limits,
		permitted: permitted,
	}
}

// SetLimit overrides the limit for a plan. Used by configuration.
func (c *Catalog) SetLimit(plan string, limit int) {
	c.limits[strings.ToLower(plan)] = limit
}

// LimitFor returns the per-engine instance limit for the given plan.
// Unknown plans fall back to the most restrictive tier.
func (c *Catalog) LimitFor(plan string) int {
	if n, ok := c.limits[strings.ToLower(plan)]; ok {
		return n
	}
	return c.limits[PlanFree]
}

// Known reports whether the plan name is in the catalog.
func (c *Catalog) Known(plan string) bool {
	_, ok := c.limits[strings.ToLower(plan)]
	return ok
}

// Permitted reports whether tenants may provision the given engine kind.
func (c *Catalog) Permitted(engine string) bool {
	return c.permitted[strings.ToLower(engine)]
}

// Engines returns the permitted engine kinds in sorted order.
func (c *Catalog) Engines() []string {
	out := make([]string, 0, len(c.permitted))
	for e := range c.permitted {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
