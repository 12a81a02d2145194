package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "CREDFACIL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "CREDFACIL_DB_DSN"
	EnvDBHost = "CREDFACIL_DB_HOST"
	EnvDBUser = "CREDFACIL_DB_USER"
	EnvDBName = "CREDFACIL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Matching     MatchingConfig
	Recovery     RecoveryConfig
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
	Env          string `envconfig:"CREDFACIL_APP_ENV" required:"true"`
	Port         string `envconfig:"CREDFACIL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CREDFACIL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CREDFACIL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CREDFACIL_DB_DSN"`
	Driver string `envconfig:"CREDFACIL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CREDFACIL_DB_HOST"`
	LegacyPort     int    `envconfig:"CREDFACIL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CREDFACIL_DB_USER"`
	LegacyPassword string `envconfig:"CREDFACIL_DB_PASSWORD"`
	LegacyName     string `envconfig:"CREDFACIL_DB_NAME"`
	LegacySSLMode  string `envconfig:"CREDFACIL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CREDFACIL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CREDFACIL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CREDFACIL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CREDFACIL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CREDFACIL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CREDFACIL_REDIS_ADDR"`
	Password     string        `envconfig:"CREDFACIL_REDIS_PASSWORD"`
	DB           int           `envconfig:"CREDFACIL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CREDFACIL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CREDFACIL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CREDFACIL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CREDFACIL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CREDFACIL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"CREDFACIL_STRIPE_API_KEY"`
	Env    string `envconfig:"CREDFACIL_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MatchingConfig struct {
	// AmountToleranceCents bounds the approximate document+amount strategy.
	AmountToleranceCents int64         `envconfig:"CREDFACIL_MATCHING_AMOUNT_TOLERANCE_CENTS" default:"100"`
	ReviewQueueTTL       time.Duration `envconfig:"CREDFACIL_MATCHING_REVIEW_QUEUE_TTL" default:"720h"`
}

type RecoveryConfig struct {
	ChargeTimeout time.Duration `envconfig:"CREDFACIL_RECOVERY_CHARGE_TIMEOUT" default:"15s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CREDFACIL_FEATURE_AUTO_MIGRATE" default:"false"`
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
