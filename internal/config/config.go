package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable, i.e. ROLEGATE_BACKEND
const EnvPrefix = "ROLEGATE"

// supported storage backends
const (
	BackendMemory  = "memory"
	BackendBolt    = "bolt"
	BackendBadger  = "badger"
	BackendRedis   = "redis"
	BackendMongoDB = "mongodb"
	BackendMySQL   = "mysql"
)

// errors
var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrMissingSetting = errors.New("missing required setting")
)

// Config represents the whole runtime configuration
type Config struct {
	Backend        string `mapstructure:"backend"`
	Namespace      string `mapstructure:"namespace"`
	IndexNamespace string `mapstructure:"index_namespace"`

	Bolt struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"bolt"`

	Badger struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"badger"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		Prefix   string `mapstructure:"prefix"`
	} `mapstructure:"redis"`

	MongoDB struct {
		URI      string `mapstructure:"uri"`
		Database string `mapstructure:"database"`
	} `mapstructure:"mongodb"`

	MySQL struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`

	Cache struct {
		Enabled    bool          `mapstructure:"enabled"`
		Shards     int           `mapstructure:"shards"`
		LifeWindow time.Duration `mapstructure:"life_window"`
	} `mapstructure:"cache"`

	Log struct {
		Dir   string `mapstructure:"dir"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"log"`

	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
}

// SetDefaults registers default values within a given viper instance;
// every key must be registered here, even with an empty value, otherwise
// Unmarshal never looks it up within the environment
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendBolt)
	v.SetDefault("namespace", "roles")
	v.SetDefault("index_namespace", "roles__by_account")
	v.SetDefault("bolt.path", "rolegate.db")
	v.SetDefault("badger.dir", "rolegate.badger")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "rolegate:")
	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "rolegate")
	v.SetDefault("mysql.dsn", "")
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.shards", 64)
	v.SetDefault("cache.life_window", 10*time.Minute)
	v.SetDefault("log.dir", "")
	v.SetDefault("log.debug", false)
	v.SetDefault("server.addr", "127.0.0.1:8080")
}

// New initializing a viper instance aware of defaults and environment
func New() *viper.Viper {
	v := viper.New()

	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load unmarshals and validates configuration out of a viper instance
func Load(v *viper.Viper) (c Config, err error) {
	if err = v.Unmarshal(&c); err != nil {
		return c, errors.Wrap(err, "failed to unmarshal configuration")
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))

	return c, c.Validate()
}

// Validate checks whether the selected backend has everything it needs
func (c Config) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return errors.Wrap(ErrMissingSetting, "namespace")
	}

	if strings.TrimSpace(c.IndexNamespace) == "" {
		return errors.Wrap(ErrMissingSetting, "index_namespace")
	}

	switch c.Backend {
	case BackendMemory:
	case BackendBolt:
		if c.Bolt.Path == "" {
			return errors.Wrap(ErrMissingSetting, "bolt.path")
		}
	case BackendBadger:
		if c.Badger.Dir == "" {
			return errors.Wrap(ErrMissingSetting, "badger.dir")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return errors.Wrap(ErrMissingSetting, "redis.addr")
		}
	case BackendMongoDB:
		if c.MongoDB.URI == "" {
			return errors.Wrap(ErrMissingSetting, "mongodb.uri")
		}

		if c.MongoDB.Database == "" {
			return errors.Wrap(ErrMissingSetting, "mongodb.database")
		}
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return errors.Wrap(ErrMissingSetting, "mysql.dsn")
		}
	default:
		return errors.Wrapf(ErrUnknownBackend, "%q", c.Backend)
	}

	return nil
}
