package plans

import (
	"reflect"
	"testing"
)

// TestLimitFor tests the plan limit table
func TestLimitFor(t *testing.T) {
	c := NewCatalog([]string{"postgresql", "mysql"})

	tests := []struct {
		plan string
		want int
	}{
		{PlanFree, 2},
		{PlanStandard, 5},
		{PlanPremium, 10},
		{"FREE", 2},
		{"Premium", 10},
		{"enterprise", 2}, // unknown plans fall back to free
		{"", 2},
	}

	for _, tt := range tests {
		if got := c.LimitFor(tt.plan); got != tt.want {
			t.Errorf("LimitFor(%q) = %d, want %d", tt.plan, got, tt.want)
		}
	}
}

// TestSetLimit tests configuration overrides
func TestSetLimit(t *testing.T) {
	c := NewCatalog(nil)

	c.SetLimit("standard", 7)
	if got := c.LimitFor("standard"); got != 7 {
		t.Errorf("LimitFor(standard) = %d after override, want 7", got)
	}

	c.SetLimit("Trial", 1)
	if !c.Known("trial") {
		t.Error("expected trial plan to be known after SetLimit")
	}
	if got := c.LimitFor("TRIAL"); got != 1 {
		t.Errorf("LimitFor(TRIAL) = %d, want 1", got)
	}
}

// TestKnown tests plan membership
func TestKnown(t *testing.T) {
	c := NewCatalog(nil)

	for _, plan := range []string{PlanFree, PlanStandard, PlanPremium} {
		if !c.Known(plan) {
			t.Errorf("expected %s to be known", plan)
		}
	}
	if c.Known("enterprise") {
		t.Error("expected enterprise to be unknown")
	}
}

// TestPermitted tests the permitted engine set
func TestPermitted(t *testing.T) {
	c := NewCatalog([]string{"PostgreSQL", "redis"})

	if !c.Permitted("postgresql") {
		t.Error("expected postgresql to be permitted")
	}
	if !c.Permitted("REDIS") {
		t.Error("expected case-insensitive engine match")
	}
	if c.Permitted("mysql") {
		t.Error("expected mysql to be rejected when not configured")
	}

	want := []string{"postgresql", "redis"}
	if got := c.Engines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Engines() = %v, want %v", got, want)
	}
}
