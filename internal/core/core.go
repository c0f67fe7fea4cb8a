package core

import (
	"context"
	"fmt"

	"github.com/agubarev/rolegate/internal/config"
	"github.com/agubarev/rolegate/pkg/kv"
	"github.com/agubarev/rolegate/pkg/role"
	"github.com/agubarev/rolegate/pkg/util"
	"github.com/allegro/bigcache"
	"github.com/go-redis/redis"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Core ties together configuration, the storage backend
// and the role registry
type Core struct {
	config   config.Config
	store    kv.Store
	registry *role.Registry
	logger   *zap.Logger
}

// NewCore initializing a new core, nothing is opened until Init
func NewCore(cfg config.Config) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &Core{config: cfg}, nil
}

// Init opens the storage backend and initializes the role registry
func (c *Core) Init(ctx context.Context) (err error) {
	if c.store != nil {
		return ErrAlreadyInitiated
	}

	l := c.Logger()
	l.Info("initializing the core", zap.String("backend", c.config.Backend))

	//---------------------------------------------------------------------------
	// initializing storage
	//---------------------------------------------------------------------------
	s, err := OpenStore(ctx, c.config)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s store", c.config.Backend)
	}

	if c.config.Cache.Enabled {
		l.Info(
			"enabling read cache",
			zap.Int("shards", c.config.Cache.Shards),
			zap.Duration("life_window", c.config.Cache.LifeWindow),
		)

		if s, err = WithCache(s, c.config); err != nil {
			return err
		}
	}

	//---------------------------------------------------------------------------
	// initializing role registry
	//---------------------------------------------------------------------------
	r, err := role.NewRegistry(s, c.config.Namespace, c.config.IndexNamespace)
	if err != nil {
		s.Close()
		return errors.Wrap(err, "failed to initialize role registry")
	}

	if err = r.SetLogger(c.Logger()); err != nil {
		s.Close()
		return err
	}

	c.store = s
	c.registry = r

	return nil
}

// Close releases the storage backend
func (c *Core) Close() error {
	if c.store == nil {
		return nil
	}

	c.Logger().Info("closing the core")

	err := c.store.Close()
	c.store = nil
	c.registry = nil

	return err
}

// Config returns current configuration
func (c *Core) Config() config.Config {
	return c.config
}

// Registry returns role registry
// NOTE: will panic if the core isn't initialized
func (c *Core) Registry() *role.Registry {
	if c.registry == nil {
		panic(ErrNilRegistry)
	}

	return c.registry
}

// Validate checks whether the core is ready to serve
func (c *Core) Validate() error {
	if c == nil {
		return ErrNilCore
	}

	if c.store == nil {
		return ErrNilStore
	}

	if c.registry == nil {
		return ErrNilRegistry
	}

	return nil
}

// SetLogger setting a primary logger for the core
func (c *Core) SetLogger(logger *zap.Logger) error {
	// if logger is set, then giving it a name
	// to know the log context
	if logger != nil {
		logger = logger.Named("[rolegate]")
	}

	c.logger = logger

	if c.registry != nil {
		return c.registry.SetLogger(logger)
	}

	return nil
}

// Logger returns primary logger if is set, otherwise initializing and returning
// a new default emergency logger
// NOTE: will panic if it finally fails to obtain a logger
func (c *Core) Logger() *zap.Logger {
	if c.logger == nil {
		l, err := util.DefaultLogger(c.config.Log.Debug, c.config.Log.Dir)
		if err != nil {
			// having a working logger is crucial, thus must panic() if initialization fails
			panic(fmt.Errorf("failed to initialize core logger: %s", err))
		}

		c.logger = l.Named("[rolegate]")
	}

	return c.logger
}

//---------------------------------------------------------------------------
// storage backends
//---------------------------------------------------------------------------

// OpenStore opens a storage backend selected by configuration
func OpenStore(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	case config.BackendBolt:
		return kv.OpenBoltStore(cfg.Bolt.Path)
	case config.BackendBadger:
		if err := util.CreateDirectoryIfNotExists(cfg.Badger.Dir, 0700); err != nil {
			return nil, err
		}

		return kv.OpenBadgerStore(cfg.Badger.Dir)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := client.WithContext(ctx).Ping().Err(); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "failed to ping redis")
		}

		return kv.NewRedisStore(client, cfg.Redis.Prefix)
	case config.BackendMongoDB:
		return kv.ConnectMongoStore(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database)
	case config.BackendMySQL:
		return kv.OpenMySQLStore(cfg.MySQL.DSN)
	}

	return nil, errors.Wrapf(config.ErrUnknownBackend, "%q", cfg.Backend)
}

// WithCache wraps a store with a bigcache-backed read cache
func WithCache(s kv.Store, cfg config.Config) (kv.Store, error) {
	bc := bigcache.DefaultConfig(cfg.Cache.LifeWindow)
	if cfg.Cache.Shards > 0 {
		bc.Shards = cfg.Cache.Shards
	}

	cache, err := bigcache.NewBigCache(bc)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to initialize read cache")
	}

	cs, err := kv.NewCachedStore(s, cache)
	if err != nil {
		s.Close()
		return nil, err
	}

	return cs, nil
}
