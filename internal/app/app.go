package app

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	redisclient "github.com/yungbote/okrbridge-backend/internal/clients/redis"
	"github.com/yungbote/okrbridge-backend/internal/data/aggregates"
	"github.com/yungbote/okrbridge-backend/internal/data/db"
	"github.com/yungbote/okrbridge-backend/internal/data/repos"
	"github.com/yungbote/okrbridge-backend/internal/observability"
	"github.com/yungbote/okrbridge-backend/internal/pkg/logger"
)

type App struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Cfg        Config
	Repos      repos.Set
	Metrics    *observability.Metrics
	Aggregates Aggregates

	pg            *db.PostgresService
	closeRedis    func() error
	otelShutdown  func(context.Context) error
	cancelMetrics context.CancelFunc
}

// New loads configuration, connects postgres (and redis when configured) and
// wires the OKR aggregates. It does not migrate; see Migrate.
func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	pg, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        repos.NewSet(theDB, log),
		Metrics:      observability.NewMetrics(),
		pg:           pg,
		otelShutdown: otelShutdown,
	}

	locker, err := a.wireLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Aggregates = wireAggregates(theDB, log, cfg, a.Repos, locker, aggregates.NewObservabilityHooks(a.Metrics))
	return a, nil
}

func (a *App) wireLocker(ctx context.Context) (aggregates.Locker, error) {
	if a.Cfg.RedisAddr == "" {
		a.Log.Info("using in-process lock coordination")
		return aggregates.NewKeyLocker(), nil
	}
	rdb, err := redisclient.NewClient(ctx, a.Log, a.Cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	a.closeRedis = rdb.Close
	a.Log.Info("using redis lock coordination", "addr", a.Cfg.RedisAddr, "ttl", a.Cfg.LockTTL.String())
	return redisclient.NewLocker(rdb, a.Log, redisclient.WithTTL(a.Cfg.LockTTL)), nil
}

// Migrate creates or updates every OKR table.
func (a *App) Migrate() error {
	if a == nil || a.DB == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("running automigrate", "tables", len(db.Models()))
	return db.AutoMigrateAll(a.DB)
}

// ServeMetrics exposes /metrics on addr (or METRICS_ADDR when addr is empty) until Close.
func (a *App) ServeMetrics(addr string) {
	if a == nil || a.cancelMetrics != nil {
		return
	}
	if addr == "" {
		addr = a.Cfg.MetricsAddr
	}
	if addr == "" {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelMetrics = cancel
	a.Metrics.StartServer(ctx, a.Log, addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancelMetrics != nil {
		a.cancelMetrics()
		a.cancelMetrics = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.closeRedis != nil {
		if err := a.closeRedis(); err != nil {
			a.Log.Warn("redis close failed", "error", err)
		}
	}
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("postgres close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
