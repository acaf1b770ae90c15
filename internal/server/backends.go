package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"phone-pos/internal/config"
	"phone-pos/internal/database"
	"phone-pos/internal/domain"
	"phone-pos/internal/repository"
	"phone-pos/internal/repository/memory"
	"phone-pos/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backends is the storage the server runs against.
type Backends struct {
	Repos    service.Repositories
	Counters repository.CounterStore
	DB       database.Service // nil for the memory backend
	Redis    *redis.Client    // nil unless enabled
}

// Close releases the connections held by the backends.
func (b *Backends) Close() error {
	var errs []error
	if b.Redis != nil {
		errs = append(errs, b.Redis.Close())
	}
	if b.DB != nil {
		errs = append(errs, b.DB.Close())
	}
	return errors.Join(errs...)
}

// receiptSeries is every series a fresh deployment needs.
var receiptSeries = []domain.Counter{
	{Series: domain.SeriesSale, Prefix: "V-"},
	{Series: domain.SeriesReserve, Prefix: "R-"},
	{Series: domain.SeriesRepair, Prefix: "S-"},
	{Series: domain.SeriesDelivery, Prefix: "E-"},
}

// OpenBackends connects the configured record store and counter store. The
// postgres backend is migrated; the memory backend is seeded with a demo
// catalog in the first configured store.
func OpenBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}
	var mem *memory.Store

	switch cfg.Store.Backend {
	case "memory":
		mem = memory.New()
		b.Repos = memoryRepos(mem)
		if len(cfg.Store.Names) > 0 {
			if err := mem.SeedDemo(ctx, cfg.Store.Names[0], cfg.Sales.DefaultExchangeRate); err != nil {
				return nil, fmt.Errorf("failed to seed memory store: %w", err)
			}
		}
		logger.Warn("Using in-memory store, data is lost on restart")
	case "postgres", "":
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		b.DB = db
		logger.Info("Database health check", zap.Any("health", db.Health()))

		if err := database.RunMigrations(db.DB(), cfg.Store.MigrationsDir, logger); err != nil {
			b.Close()
			return nil, err
		}
		b.Repos = postgresRepos(db)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Redis.Enabled || cfg.Store.CounterBackend == "redis" {
		b.Redis = redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := b.Redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	counters, err := openCounters(ctx, cfg.Store.CounterBackend, b, mem)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Counters = counters

	logger.Info("Backends ready",
		zap.String("store_backend", cfg.Store.Backend),
		zap.String("counter_backend", cfg.Store.CounterBackend),
	)
	return b, nil
}

func openCounters(ctx context.Context, backend string, b *Backends, mem *memory.Store) (repository.CounterStore, error) {
	switch backend {
	case "redis":
		store := repository.NewRedisCounterStore(b.Redis, "")
		for _, c := range receiptSeries {
			if err := store.Seed(ctx, c); err != nil {
				return nil, err
			}
		}
		return store, nil
	case "memory":
		if mem == nil {
			mem = memory.New()
		}
		return mem.Counters(), nil
	case "postgres", "":
		if b.DB == nil {
			return nil, errors.New("postgres counters need the postgres store backend")
		}
		return repository.NewCounterRepository(b.DB.DB()), nil
	default:
		return nil, fmt.Errorf("unknown counter backend %q", backend)
	}
}

func memoryRepos(s *memory.Store) service.Repositories {
	return service.Repositories{
		Products:    s.Products(),
		Categories:  s.Categories(),
		Customers:   s.Customers(),
		BundleRules: s.BundleRules(),
		Reserves:    s.Reserves(),
		Sales:       s.Sales(),
		Settings:    s.Settings(),
	}
}

func postgresRepos(db database.Service) service.Repositories {
	conn := db.DB()
	return service.Repositories{
		Products:    repository.NewProductRepository(conn),
		Categories:  repository.NewCategoryRepository(conn),
		Customers:   repository.NewCustomerRepository(conn),
		BundleRules: repository.NewBundleRuleRepository(conn),
		Reserves:    repository.NewReserveRepository(conn),
		Sales:       repository.NewSaleRepository(conn),
		Settings:    repository.NewSettingsRepository(conn),
	}
}
