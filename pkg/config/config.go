package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "smartkart"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced by tests and error messages.
const (
	EnvAppEnv   = "SMARTKART_APP_ENV"
	EnvAppPort  = "SMARTKART_APP_PORT"
	EnvDBDSN    = "SMARTKART_DB_DSN"
	EnvRedisURL = "SMARTKART_REDIS_URL"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Engine       EngineConfig
	RecentScans  RecentScansConfig
	Eventing     EventingConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SMARTKART_APP_ENV" required:"true"`
	Port         string `envconfig:"SMARTKART_APP_PORT" default:"5001"`
	LogLevel     string `envconfig:"SMARTKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SMARTKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SMARTKART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SMARTKART_DB_DSN"`
	Driver string `envconfig:"SMARTKART_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"SMARTKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SMARTKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SMARTKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SMARTKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SMARTKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SMARTKART_REDIS_ADDR"`
	Password     string        `envconfig:"SMARTKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"SMARTKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SMARTKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SMARTKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SMARTKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SMARTKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SMARTKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SMARTKART_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SMARTKART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SMARTKART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	TagScanSubscription string `envconfig:"SMARTKART_PUBSUB_TAG_SCAN_SUBSCRIPTION" default:"tag-scans-engine"`
	WeightSubscription  string `envconfig:"SMARTKART_PUBSUB_WEIGHT_SUBSCRIPTION" default:"weight-updates-engine"`
	CartEventsTopic     string `envconfig:"SMARTKART_PUBSUB_CART_EVENTS_TOPIC" default:"cart-events"`
}

// EngineConfig carries the reconciliation tunables. The discrepancy tolerance
// stays looser than the action tolerance: the former only raises an advisory
// flag, the latter gates mutations.
type EngineConfig struct {
	CooldownWindow       time.Duration `envconfig:"SMARTKART_ENGINE_COOLDOWN_WINDOW" default:"3s"`
	CooldownCapacity     int           `envconfig:"SMARTKART_ENGINE_COOLDOWN_CAPACITY" default:"1024"`
	CooldownPurgeEvery   int           `envconfig:"SMARTKART_ENGINE_COOLDOWN_PURGE_EVERY" default:"64"`
	ActionTolerance      float64       `envconfig:"SMARTKART_ENGINE_ACTION_TOLERANCE" default:"0.3"`
	DiscrepancyTolerance float64       `envconfig:"SMARTKART_ENGINE_DISCREPANCY_TOLERANCE" default:"0.5"`
}

// Validate rejects tunings that would invert the gate/advisory relationship.
func (e EngineConfig) Validate() error {
	if e.CooldownWindow <= 0 {
		return fmt.Errorf("engine cooldown window must be positive")
	}
	if e.ActionTolerance < 0 || e.DiscrepancyTolerance < 0 {
		return fmt.Errorf("engine tolerances must be non-negative")
	}
	if e.DiscrepancyTolerance < e.ActionTolerance {
		return fmt.Errorf("discrepancy tolerance (%v) must not be tighter than action tolerance (%v)",
			e.DiscrepancyTolerance, e.ActionTolerance)
	}
	return nil
}

type RecentScansConfig struct {
	Max int           `envconfig:"SMARTKART_RECENT_SCANS_MAX" default:"50"`
	TTL time.Duration `envconfig:"SMARTKART_RECENT_SCANS_TTL" default:"24h"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SMARTKART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SMARTKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SMARTKART_AUTO_MIGRATE" default:"false"`
}
