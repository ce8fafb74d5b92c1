package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	PubSub       PubSubConfig
	Eventing     EventingConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWIFTPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SWIFTPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWIFTPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWIFTPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SWIFTPAY_DB_DSN"`
	Driver string `envconfig:"SWIFTPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWIFTPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"SWIFTPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWIFTPAY_DB_USER"`
	LegacyPassword string `envconfig:"SWIFTPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWIFTPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWIFTPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWIFTPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWIFTPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWIFTPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWIFTPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SWIFTPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWIFTPAY_REDIS_ADDR"`
	Password     string        `envconfig:"SWIFTPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWIFTPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWIFTPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWIFTPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWIFTPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWIFTPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWIFTPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PubSubConfig struct {
	ProjectID              string `envconfig:"SWIFTPAY_GCP_PROJECT_ID"`
	ChainEventsTopic       string `envconfig:"SWIFTPAY_PUBSUB_CHAIN_EVENTS_TOPIC" default:"sp-chain-events"`
	ChainEventsSubscription string `envconfig:"SWIFTPAY_PUBSUB_CHAIN_EVENTS_SUBSCRIPTION"`
}

// EventingConfig tunes the ingestion engine.
type EventingConfig struct {
	IdempotencyTTL    time.Duration `envconfig:"SWIFTPAY_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	CASMaxRetries     int           `envconfig:"SWIFTPAY_EVENTING_CAS_MAX_RETRIES" default:"3"`
	CASRetryBackoff   time.Duration `envconfig:"SWIFTPAY_EVENTING_CAS_RETRY_BACKOFF" default:"25ms"`
	OrphanMaxAttempts int           `envconfig:"SWIFTPAY_EVENTING_ORPHAN_MAX_ATTEMPTS" default:"5"`
	OrphanQueueCap    int           `envconfig:"SWIFTPAY_EVENTING_ORPHAN_QUEUE_CAP" default:"32"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"SWIFTPAY_CRON_INTERVAL" default:"1h"`
	LockTTL         time.Duration `envconfig:"SWIFTPAY_CRON_LOCK_TTL" default:"55m"`
	RedeliveryAge   time.Duration `envconfig:"SWIFTPAY_CRON_REDELIVERY_AGE" default:"5m"`
	RedeliveryLimit int           `envconfig:"SWIFTPAY_CRON_REDELIVERY_LIMIT" default:"200"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWIFTPAY_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
