package config

// EnvPrefix is applied to every envconfig lookup.
const EnvPrefix = "VOCALIZE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv          = "VOCALIZE_APP_ENV"
	EnvPort            = "VOCALIZE_APP_PORT"
	EnvDBDSN           = "VOCALIZE_DB_DSN"
	EnvDBDriver        = "VOCALIZE_DB_DRIVER"
	EnvDBHost          = "VOCALIZE_DB_HOST"
	EnvDBUser          = "VOCALIZE_DB_USER"
	EnvDBName          = "VOCALIZE_DB_NAME"
	EnvRedisURL        = "VOCALIZE_REDIS_URL"
	EnvJWTSecret       = "VOCALIZE_JWT_SECRET"
	EnvJWTIssuer       = "VOCALIZE_JWT_ISSUER"
	EnvUpstreamBaseURL = "VOCALIZE_UPSTREAM_BASE_URL"
	EnvSweepInterval   = "VOCALIZE_LEDGER_SWEEP_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
