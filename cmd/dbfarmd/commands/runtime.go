package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dbfarm/dbfarm/pkg/adapters"
	"github.com/dbfarm/dbfarm/pkg/config"
	"github.com/dbfarm/dbfarm/pkg/credentials"
	"github.com/dbfarm/dbfarm/pkg/notify"
	"github.com/dbfarm/dbfarm/pkg/plans"
	"github.com/dbfarm/dbfarm/pkg/provision"
	"github.com/dbfarm/dbfarm/pkg/stores"
	"github.com/dbfarm/dbfarm/pkg/telemetry"
)

// runtime bundles the wired service components for one command invocation.
type runtime struct {
	cfg          *config.Config
	store        stores.Store
	orchestrator *provision.Orchestrator
	logger       *telemetry.Logger
	tracer       *telemetry.Tracer
}

// newRuntime loads the configuration and wires the store, adapter
// registry and orchestrator. Callers must Close the runtime.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics, err := telemetry.NewMetrics(cfg.Telemetry.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	if err := metrics.StartMetricsServer(); err != nil {
		return nil, fmt.Errorf("failed to start metrics server: %w", err)
	}

	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing,
		cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	catalog := plans.NewCatalog(cfg.EngineKinds())
	for plan, limit := range cfg.Plans {
		catalog.SetLimit(plan, limit)
	}

	orchestrator, err := provision.NewOrchestrator(provision.OrchestratorConfig{
		Repository:  store,
		Users:       store,
		Audit:       store,
		Adapters:    registry,
		Catalog:     catalog,
		Credentials: credentials.New(),
		Notifier:    buildNotifier(cfg),
		Logger:      logger,
		Metrics:     metrics,
		Tracer:      tracer,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &runtime{
		cfg:          cfg,
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
		tracer:       tracer,
	}, nil
}

// Close releases the runtime's resources.
func (r *runtime) Close(ctx context.Context) error {
	if err := r.tracer.Shutdown(ctx); err != nil {
		r.logger.WithError(err).Warn("failed to shut down tracer")
	}
	return r.store.Close()
}

// openStore opens and initializes the configured SQLite store.
func openStore(ctx context.Context, cfg *config.Config) (stores.Store, error) {
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:         cfg.Store.Path,
		MaxOpenConns: cfg.Store.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return store, nil
}

// buildRegistry registers one adapter per configured engine.
func buildRegistry(cfg *config.Config) (*adapters.Registry, error) {
	registry := adapters.NewRegistry()

	for name, eng := range cfg.Engines {
		kind, ok := provision.ParseEngine(name)
		if !ok {
			return nil, fmt.Errorf("engine %q is not a supported engine kind", name)
		}
		acfg := adapters.Config{
			AdminDSN:      eng.AdminDSN,
			Hosts:         eng.Hosts,
			AdminUser:     eng.AdminUser,
			AdminPassword: eng.AdminPassword,
			Host:          eng.Host,
			Port:          eng.Port,
		}

		var adapter provision.Adapter
		switch kind {
		case provision.EnginePostgreSQL:
			adapter = adapters.NewPostgres(acfg)
		case provision.EngineMySQL:
			adapter = adapters.NewMySQL(acfg)
		case provision.EngineSQLServer:
			adapter = adapters.NewSQLServer(acfg)
		case provision.EngineMongoDB:
			adapter = adapters.NewMongo(acfg)
		case provision.EngineRedis:
			adapter = adapters.NewRedis(acfg)
		case provision.EngineCassandra:
			adapter = adapters.NewCassandra(acfg)
		}
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// buildNotifier assembles the configured post-commit notifiers, or nil
// when none are enabled.
func buildNotifier(cfg *config.Config) provision.Notifier {
	var notifiers []provision.Notifier
	if cfg.Notify.Discord.Enabled {
		notifiers = append(notifiers, notify.NewDiscordNotifier(cfg.Notify.Discord.WebhookURL))
	}
	if cfg.Notify.Email.Enabled {
		notifiers = append(notifiers, notify.NewEmailNotifier(
			cfg.Notify.Email.Host, cfg.Notify.Email.Port,
			cfg.Notify.Email.From, cfg.Notify.Email.Username, cfg.Notify.Email.Password))
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notify.NewMulti(notifiers...)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
