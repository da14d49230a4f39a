package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/goliatone/go-order-verify/adapters/gocommand"
	"github.com/goliatone/go-order-verify/adapters/gologger"
	"github.com/goliatone/go-order-verify/command"
	"github.com/goliatone/go-order-verify/core"
	"github.com/goliatone/go-order-verify/metricsprom"
	"github.com/goliatone/go-order-verify/migrations"
	"github.com/goliatone/go-order-verify/notifier"
	"github.com/goliatone/go-order-verify/server"
	sqlstore "github.com/goliatone/go-order-verify/store/sql"
	"github.com/goliatone/go-order-verify/transport"
	"github.com/goliatone/go-order-verify/webhooks"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, logger := gologger.Resolve("orderverify", nil, nil)

	defaults := core.DefaultConfig()
	loaded, err := core.NewCfgxConfigProvider(core.EnvRawConfigLoader{}).Load(ctx, defaults)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := core.GoOptionsResolver{}.Resolve(defaults, loaded, core.Config{})
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	client, err := openPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		return fmt.Errorf("build stores: %w", err)
	}
	store := factory.VerificationStore()

	metrics := metricsprom.NewRecorder(prometheus.DefaultRegisterer)

	sender := notifier.NewClient(transport.NewRESTAdapter(nil), cfg.Notifier.URL)
	sender.Timeout = cfg.NotifierTimeout()
	sender.Logger = logger

	var verifier webhooks.Verifier
	if !cfg.Webhook.SkipVerification {
		verifier = webhooks.NewShopifyVerifier(cfg.Webhook.Secret)
	} else {
		logger.Warn("webhook signature verification is disabled")
	}

	pipeline := webhooks.NewPipeline(verifier, store, sender, cfg.Phone.DefaultCountryCode)
	pipeline.Logger = logger
	pipeline.Metrics = metrics

	if err := registerCommands(pipeline, store); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	if window := cfg.RetentionWindow(); window > 0 {
		go runRetentionSweeps(ctx, store, window, logger)
	}

	logger.Info("starting webhook server",
		"addr", cfg.ListenAddr,
		"environment", cfg.Environment,
		"driver", cfg.Storage.Driver,
	)
	if err := server.New(cfg, pipeline, store, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openPersistence(ctx context.Context, cfg core.Config) (*persistence.Client, error) {
	var dialect schema.Dialect
	var migrationDialect string
	switch cfg.Storage.Driver {
	case core.DriverPostgres:
		dialect = pgdialect.New()
		migrationDialect = migrations.DialectPostgres
	default:
		dialect = sqlitedialect.New()
		migrationDialect = migrations.DialectSQLite
	}

	sqlDB, err := sql.Open(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	client, err := persistence.New(persistenceConfig{cfg: cfg}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("new persistence client: %w", err)
	}

	err = migrations.RegisterDialect(ctx, migrationDialect, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return client, nil
}

// registerCommands exposes the dispatcher entry points used by programmatic
// callers and queue consumers.
func registerCommands(pipeline command.IngestService, store core.VerificationStore) error {
	registry := gocommand.NewRegistryAdapter(nil)
	if _, err := gocommand.RegisterAndSubscribe(registry, command.NewIngestOrderCommand(pipeline)); err != nil {
		return err
	}
	if _, err := gocommand.RegisterAndSubscribe(registry, command.NewUpdateStatusCommand(store)); err != nil {
		return err
	}
	if _, err := gocommand.RegisterAndSubscribe(registry, command.NewPruneVerificationsCommand(store)); err != nil {
		return err
	}
	return registry.Initialize()
}

// runRetentionSweeps prunes terminal records on a daily cadence. Queue-based
// deployments use maintenance.Worker instead and leave retention.days at
// zero here.
func runRetentionSweeps(ctx context.Context, store core.VerificationStore, window time.Duration, logger core.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-window)
			pruned, err := store.PruneTerminal(ctx, cutoff)
			if err != nil {
				logger.Error("retention sweep failed", "error", err.Error())
				continue
			}
			logger.Info("retention sweep completed", "pruned", pruned, "cutoff", cutoff.Format(time.RFC3339))
		}
	}
}

type persistenceConfig struct {
	cfg core.Config
}

func (p persistenceConfig) GetDebug() bool {
	return !p.cfg.IsProduction()
}

func (p persistenceConfig) GetDriver() string {
	return p.cfg.Storage.Driver
}

func (p persistenceConfig) GetServer() string {
	return p.cfg.Storage.DSN
}

func (p persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (p persistenceConfig) GetOtelIdentifier() string {
	return p.cfg.ServiceName
}
