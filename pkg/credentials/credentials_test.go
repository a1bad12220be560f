package credentials

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

// TestSanitize tests identifier sanitization rules
func TestSanitize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "clean identifier passes through lowered",
			input: "db_42_postgresql_abc123",
			want:  "db_42_postgresql_abc123",
		},
		{
			name:  "uppercase is lowered",
			input: "DB_42_MySQL_ABC",
			want:  "db_42_mysql_abc",
		},
		{
			name:  "illegal characters are stripped",
			input: "db-42;DROP TABLE users--",
			want:  "db42droptableusers",
		},
		{
			name:  "unicode is stripped",
			input: "db_ñ42_ü",
			want:  "db_42_",
		},
		{
			name:  "long identifier is truncated to 50",
			input: strings.Repeat("a", 80),
			want:  strings.Repeat("a", 50),
		},
		{
			name:    "empty input is rejected",
			input:   "",
			wantErr: true,
		},
		{
			name:    "whitespace only is rejected",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "only illegal characters is rejected",
			input:   ";;--!!",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sanitize(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if !errors.Is(err, ErrInvalidIdentifier) {
					t.Errorf("expected ErrInvalidIdentifier, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestGenerate tests credential generation shape
func TestGenerate(t *testing.T) {
	g := New()

	creds, err := g.Generate(42, "postgresql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	namePattern := regexp.MustCompile(`^db_42_postgresql_[a-z0-9]{6}$`)
	if !namePattern.MatchString(creds.Name) {
		t.Errorf("name %q does not match expected pattern", creds.Name)
	}

	userPattern := regexp.MustCompile(`^usr_42_postgresql_[a-z0-9]{6}$`)
	if !userPattern.MatchString(creds.DBUser) {
		t.Errorf("db user %q does not match expected pattern", creds.DBUser)
	}

	if len(creds.Name) > 50 {
		t.Errorf("name exceeds identifier bound: %d chars", len(creds.Name))
	}
	if len(creds.DBUser) > 50 {
		t.Errorf("db user exceeds identifier bound: %d chars", len(creds.DBUser))
	}
}

// TestGenerateSecret tests secret strength requirements
func TestGenerateSecret(t *testing.T) {
	g := New()

	creds, err := g.Generate(1, "redis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(creds.Secret) < 12 {
		t.Errorf("secret too short: %d chars", len(creds.Secret))
	}
	// 16 bytes hex-encoded
	if len(creds.Secret) != 32 {
		t.Errorf("secret length = %d, want 32", len(creds.Secret))
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(creds.Secret) {
		t.Errorf("secret %q is not hex", creds.Secret)
	}
	if strings.Contains(creds.Secret, creds.Name) || strings.Contains(creds.Name, creds.Secret) {
		t.Error("secret must not be derived from the name")
	}
}

// TestGenerateUniqueness tests that consecutive credentials differ
func TestGenerateUniqueness(t *testing.T) {
	g := New()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		creds, err := g.Generate(7, "mysql")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[creds.Name] {
			t.Fatalf("duplicate name generated: %s", creds.Name)
		}
		seen[creds.Name] = true
	}
}
