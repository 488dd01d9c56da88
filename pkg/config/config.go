package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "crave"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageBackendFile  = "file"
	StorageBackendRedis = "redis"
)

type Config struct {
	App     AppConfig
	Backend BackendConfig
	Storage StorageConfig
	Redis   RedisConfig
	Poller  PollerConfig
	Metrics MetricsConfig
	Tracker TrackerConfig
	Vendor  VendorConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CRAVE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"CRAVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// BackendConfig locates the CampusCrave REST backend.
type BackendConfig struct {
	BaseURL     string        `envconfig:"CRAVE_BACKEND_URL" default:"http://localhost:9999"`
	HTTPTimeout time.Duration `envconfig:"CRAVE_BACKEND_HTTP_TIMEOUT" default:"10s"`
}

// StorageConfig selects where cart/favorites snapshots persist.
type StorageConfig struct {
	Backend string `envconfig:"CRAVE_STORAGE_BACKEND" default:"file"`
	DataDir string `envconfig:"CRAVE_STORAGE_DATA_DIR" default:".campuscrave"`
}

func (s StorageConfig) validate() error {
	switch s.Backend {
	case StorageBackendFile, StorageBackendRedis:
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAVE_REDIS_URL"`
	Address      string        `envconfig:"CRAVE_REDIS_ADDR"`
	Password     string        `envconfig:"CRAVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// PollerConfig controls the status reconciliation loops. The student tracker
// refreshes a single order; the vendor dashboard refreshes the live queue.
type PollerConfig struct {
	OrderInterval time.Duration `envconfig:"CRAVE_POLL_ORDER_INTERVAL" default:"3s"`
	QueueInterval time.Duration `envconfig:"CRAVE_POLL_QUEUE_INTERVAL" default:"2s"`
	MaxBackoff    time.Duration `envconfig:"CRAVE_POLL_MAX_BACKOFF" default:"30s"`
}

type MetricsConfig struct {
	ListenAddr string `envconfig:"CRAVE_METRICS_ADDR" default:":9464"`
}

// TrackerConfig drives the student order tracker. When PlaceOrder is set the
// persisted cart is checked out first and the resulting order is tracked;
// otherwise OrderID names an existing order.
type TrackerConfig struct {
	OrderID    int64  `envconfig:"CRAVE_ORDER_ID"`
	StudentID  string `envconfig:"CRAVE_STUDENT_ID"`
	PlaceOrder bool   `envconfig:"CRAVE_PLACE_ORDER" default:"false"`
}

// VendorConfig identifies the stall the dashboard watches.
type VendorConfig struct {
	StallName string `envconfig:"CRAVE_STALL_NAME"`
}
