package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dbfarm/dbfarm/pkg/provision"
	"github.com/dbfarm/dbfarm/pkg/telemetry"
)

// Config is the root configuration for the dbfarm service.
type Config struct {
	// Store configures the canonical instance store.
	Store StoreConfig `yaml:"store" validate:"required"`

	// Engines maps engine kind names to their administrative endpoints.
	// Only configured engines are registered; requests for anything else
	// are rejected as unsupported.
	Engines map[string]EngineConfig `yaml:"engines" validate:"required,min=1"`

	// Plans overrides the per-engine instance limit for named plans.
	Plans map[string]int `yaml:"plans"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`

	// Notify configures best-effort post-commit notifications.
	Notify NotifyConfig `yaml:"notify"`
}

// StoreConfig configures the SQLite instance store.
type StoreConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" validate:"required"`

	// MaxOpenConns limits the connection pool size.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// EngineConfig describes the administrative endpoint for one engine family.
type EngineConfig struct {
	// AdminDSN is the driver-specific privileged connection string.
	// Required for every engine except cassandra.
	AdminDSN string `yaml:"admin_dsn"`

	// Hosts are Cassandra contact points.
	Hosts []string `yaml:"hosts"`

	// AdminUser and AdminPassword authenticate the Cassandra admin session.
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password"`

	// Host is the hostname advertised to tenants.
	Host string `yaml:"host" validate:"required"`

	// Port is the port advertised to tenants. Zero selects the engine's
	// conventional default.
	Port int `yaml:"port" validate:"min=0,max=65535"`
}

// NotifyConfig configures post-commit notifiers.
type NotifyConfig struct {
	Discord DiscordConfig `yaml:"discord"`
	Email   EmailConfig   `yaml:"email"`
}

// DiscordConfig configures the Discord webhook notifier.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
}

// EmailConfig configures the SMTP notifier.
type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=0,max=65535"`
	From     string `yaml:"from" validate:"omitempty,email"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// defaultPorts are the conventional client ports advertised when a port is
// not configured.
var defaultPorts = map[provision.EngineKind]int{
	provision.EnginePostgreSQL: 5432,
	provision.EngineMySQL:      3306,
	provision.EngineSQLServer:  1433,
	provision.EngineMongoDB:    27017,
	provision.EngineRedis:      6379,
	provision.EngineCassandra:  9042,
}

// Default returns a configuration with sane defaults and no engines
// configured.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         "dbfarm.db",
			MaxOpenConns: 10,
		},
		Engines:   make(map[string]EngineConfig),
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads, parses and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a raw YAML configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills in engine ports and store defaults left unset.
func (c *Config) applyDefaults() {
	if c.Store.MaxOpenConns <= 0 {
		c.Store.MaxOpenConns = 10
	}
	for name, eng := range c.Engines {
		if eng.Port != 0 {
			continue
		}
		kind, ok := provision.ParseEngine(name)
		if !ok {
			continue
		}
		eng.Port = defaultPorts[kind]
		c.Engines[name] = eng
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for name, eng := range c.Engines {
		kind, ok := provision.ParseEngine(name)
		if !ok {
			return fmt.Errorf("engine %q is not a supported engine kind", name)
		}
		if kind == provision.EngineCassandra {
			if len(eng.Hosts) == 0 {
				return fmt.Errorf("engine %q: contact points are required", name)
			}
		} else if eng.AdminDSN == "" {
			return fmt.Errorf("engine %q: admin DSN is required", name)
		}
	}

	for plan, limit := range c.Plans {
		if plan == "" {
			return fmt.Errorf("plan name must not be empty")
		}
		if limit < 0 {
			return fmt.Errorf("plan %q: limit must not be negative", plan)
		}
	}

	if c.Notify.Discord.Enabled && c.Notify.Discord.WebhookURL == "" {
		return fmt.Errorf("discord notifier is enabled but no webhook URL is set")
	}
	if c.Notify.Email.Enabled {
		if c.Notify.Email.Host == "" {
			return fmt.Errorf("email notifier is enabled but no SMTP host is set")
		}
		if c.Notify.Email.From == "" {
			return fmt.Errorf("email notifier is enabled but no sender address is set")
		}
	}

	return c.Telemetry.Validate()
}

// EngineKinds returns the configured engine kinds in sorted order.
func (c *Config) EngineKinds() []string {
	kinds := make([]string, 0, len(c.Engines))
	for name := range c.Engines {
		kinds = append(kinds, name)
	}
	sort.Strings(kinds)
	return kinds
}
