package app

import (
	"context"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/cartcraft/internal/domain/order"
	"github.com/xenking/cartcraft/internal/storage"
	"github.com/xenking/cartcraft/internal/storage/file"
	"github.com/xenking/cartcraft/internal/storage/memory"
	"github.com/xenking/cartcraft/internal/storage/postgres"
	"github.com/xenking/cartcraft/internal/storage/redis"
	"github.com/xenking/cartcraft/internal/storage/sqlite"
)

// backend is an opened storage backend. Index is set only for backends that
// keep a queryable order index.
type backend struct {
	Store storage.Store
	Index order.Index
	Close func() error
}

func noopClose() error { return nil }

// openStorage connects the configured backend. The returned Close is never
// nil.
func openStorage(ctx context.Context, cfg StorageConfig, lg *zap.Logger) (*backend, error) {
	lg = lg.With(zap.String("backend", cfg.Backend))

	switch cfg.Backend {
	case BackendMemory:
		lg.Warn("Using in-memory storage, state is lost on exit")
		return &backend{Store: memory.New(), Close: noopClose}, nil
	case BackendFile:
		s, err := file.New(cfg.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open file storage")
		}
		lg.Info("Storage ready", zap.String("dir", cfg.Dir))
		return &backend{Store: s, Close: noopClose}, nil
	case BackendSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite storage")
		}
		lg.Info("Storage ready", zap.String("path", cfg.SQLitePath))
		return &backend{Store: s, Close: s.Close}, nil
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}
		lg.Info("Storage ready")
		return &backend{
			Store: storage.Namespaced(postgres.NewStore(pool), cfg.Namespace),
			Index: orderIndex{idx: postgres.NewOrderIndex(pool)},
			Close: func() error {
				pool.Close()
				return nil
			},
		}, nil
	case BackendRedis:
		opts, err := redisOptions(cfg)
		if err != nil {
			return nil, err
		}
		client := goredis.NewClient(opts)
		lg.Info("Storage ready", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
		return &backend{
			Store: storage.Namespaced(redis.New(client), cfg.Namespace),
			Close: client.Close,
		}, nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// orderIndex projects ledger orders onto the postgres order index.
type orderIndex struct {
	idx *postgres.OrderIndex
}

func (i orderIndex) IndexOrder(ctx context.Context, o order.Order) error {
	return i.idx.Put(ctx, summarize(o))
}

func summarize(o order.Order) postgres.OrderSummary {
	return postgres.OrderSummary{
		Number:   o.Number,
		Status:   string(o.Status),
		Total:    o.Totals.Total,
		PlacedAt: o.PlacedAt,
	}
}

func redisOptions(cfg StorageConfig) (*goredis.Options, error) {
	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, errors.Wrap(err, "parse redis url")
		}
		return opts, nil
	}
	return &goredis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, nil
}
