package config

// EnvPrefix is passed to envconfig; individual fields pin their full
// variable names so the prefix mostly matters for error messages.
const EnvPrefix = "SWIFTPAY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "SWIFTPAY_APP_ENV"
	EnvAppPort  = "SWIFTPAY_APP_PORT"
	EnvLogLevel = "SWIFTPAY_LOG_LEVEL"

	EnvDBDSN      = "SWIFTPAY_DB_DSN"
	EnvDBHost     = "SWIFTPAY_DB_HOST"
	EnvDBPort     = "SWIFTPAY_DB_PORT"
	EnvDBUser     = "SWIFTPAY_DB_USER"
	EnvDBPassword = "SWIFTPAY_DB_PASSWORD"
	EnvDBName     = "SWIFTPAY_DB_NAME"
	EnvDBSSLMode  = "SWIFTPAY_DB_SSLMODE"

	EnvRedisURL = "SWIFTPAY_REDIS_URL"
)

// legacyDBEnvVars are the discrete connection variables accepted when
// SWIFTPAY_DB_DSN is unset. Password and sslmode stay optional.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
