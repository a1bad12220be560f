package provision

import "testing"

// TestParseEngine tests engine name normalization
func TestParseEngine(t *testing.T) {
	tests := []struct {
		input string
		want  EngineKind
		ok    bool
	}{
		{"postgresql", EnginePostgreSQL, true},
		{"PostgreSQL", EnginePostgreSQL, true},
		{"  MYSQL  ", EngineMySQL, true},
		{"sqlserver", EngineSQLServer, true},
		{"mongodb", EngineMongoDB, true},
		{"redis", EngineRedis, true},
		{"cassandra", EngineCassandra, true},
		{"postgres", "", false},
		{"oracle", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseEngine(tt.input)
		if ok != tt.ok {
			t.Errorf("ParseEngine(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseEngine(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

// TestEngineKindValidate tests kind self-validation
func TestEngineKindValidate(t *testing.T) {
	for _, kind := range Engines {
		if err := kind.Validate(); err != nil {
			t.Errorf("kind %s should validate: %v", kind, err)
		}
	}
	if err := EngineKind("oracle").Validate(); err == nil {
		t.Error("unknown kind should not validate")
	}
}
