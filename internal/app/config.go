package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "127.0.0.1:8080"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

var backends = []string{BackendMemory, BackendFile, BackendSQLite, BackendPostgres, BackendRedis}

// Config holds the complete application configuration, loadable from
// environment variables (CART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"127.0.0.1:8080" usage:"API server listen address"`
	CatalogPath string `default:"" usage:"Product catalog JSON file, the bundled sample when empty" flag:"catalog"`
	Storage     StorageConfig
	Checkout    CheckoutConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend     string `default:"file" usage:"Storage backend: memory, file, sqlite, postgres or redis"`
	Namespace   string `default:"cartcraft" usage:"Key prefix on shared postgres and redis backends"`
	Dir         string `default:"data" usage:"Directory of the file backend"`
	SQLitePath  string `default:"cartcraft.db" usage:"Database file of the sqlite backend" flag:"sqlite-path"`
	DatabaseURL string `usage:"PostgreSQL connection URL (CART_STORAGE_DATABASEURL or DATABASE_URL)" flag:"database-url"`
	RedisURL    string `usage:"Redis URL, overrides RedisAddr and RedisDB (REDIS_URL)" flag:"redis-url"`
	RedisAddr   string `default:"127.0.0.1:6379" usage:"Redis address" flag:"redis-addr"`
	RedisDB     int    `default:"0" usage:"Redis database number" flag:"redis-db"`
}

// CheckoutConfig controls checkout session behaviour.
type CheckoutConfig struct {
	MaskCardNumbers bool `default:"false" usage:"Store only the last four card digits in the session" flag:"mask-card-numbers"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string      `default:"*" usage:"Allowed CORS origins"`
	MaxAge  time.Duration `default:"10m" usage:"Preflight cache duration" flag:"cors-max-age"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CART",
		Files:     []string{"config.yaml", "/etc/cartcraft/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (PORT,
// DATABASE_URL, REDIS_URL) onto settings left at their defaults.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = getenv("DATABASE_URL")
	}
	if c.Storage.RedisURL == "" {
		c.Storage.RedisURL = getenv("REDIS_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	s := c.Storage
	switch {
	case !slices.Contains(backends, s.Backend):
		return errors.Errorf("unknown storage backend %q", s.Backend)
	case s.Backend == BackendPostgres && s.DatabaseURL == "":
		return errors.New("database URL is required: set CART_STORAGE_DATABASEURL or DATABASE_URL")
	case s.Backend == BackendFile && s.Dir == "":
		return errors.New("storage dir is required for the file backend")
	case s.Backend == BackendSQLite && s.SQLitePath == "":
		return errors.New("sqlite path is required for the sqlite backend")
	case s.Backend == BackendRedis && s.RedisURL == "" && s.RedisAddr == "":
		return errors.New("redis address is required: set CART_STORAGE_REDISADDR or REDIS_URL")
	}
	return nil
}
