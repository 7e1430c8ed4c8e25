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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Ledger       LedgerConfig
	Upstream     UpstreamConfig
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
	Env          string `envconfig:"VOCALIZE_APP_ENV" required:"true"`
	Port         string `envconfig:"VOCALIZE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VOCALIZE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VOCALIZE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VOCALIZE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VOCALIZE_DB_DSN"`
	Driver string `envconfig:"VOCALIZE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VOCALIZE_DB_HOST"`
	LegacyPort     int    `envconfig:"VOCALIZE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VOCALIZE_DB_USER"`
	LegacyPassword string `envconfig:"VOCALIZE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VOCALIZE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VOCALIZE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VOCALIZE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VOCALIZE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VOCALIZE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VOCALIZE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"VOCALIZE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VOCALIZE_REDIS_ADDR"`
	Password     string        `envconfig:"VOCALIZE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VOCALIZE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VOCALIZE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VOCALIZE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VOCALIZE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VOCALIZE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VOCALIZE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VOCALIZE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VOCALIZE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VOCALIZE_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"VOCALIZE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"VOCALIZE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"VOCALIZE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"VOCALIZE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"VOCALIZE_ARGON_KEY_LEN" default:"32"`
}

// LedgerConfig tunes the demo token ledger and its expiry sweep.
type LedgerConfig struct {
	SweepInterval time.Duration `envconfig:"VOCALIZE_LEDGER_SWEEP_INTERVAL" default:"60s"`
	StorageKey    string        `envconfig:"VOCALIZE_LEDGER_STORAGE_KEY" default:"ledger:subscriptions"`
}

// UpstreamConfig points at the voice engine and dashboard collaborators.
type UpstreamConfig struct {
	BaseURL        string        `envconfig:"VOCALIZE_UPSTREAM_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"VOCALIZE_UPSTREAM_TIMEOUT" default:"60s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VOCALIZE_AUTO_MIGRATE" default:"false"`
	SeedLedger  bool `envconfig:"VOCALIZE_SEED_LEDGER" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when the sqlite driver is selected", EnvDBDSN)
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
