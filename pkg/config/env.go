package config

// EnvPrefix is passed to envconfig; every field carries an explicit envconfig tag.
const EnvPrefix = "CAFE"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const AppEnvDev = "dev"

const (
	EnvAppEnv      = "CAFE_APP_ENV"
	EnvPort        = "CAFE_APP_PORT"
	EnvDBDSN       = "CAFE_DB_DSN"
	EnvDBHost      = "CAFE_DB_HOST"
	EnvDBUser      = "CAFE_DB_USER"
	EnvDBName      = "CAFE_DB_NAME"
	EnvDBPassword  = "CAFE_DB_PASSWORD"
	EnvRedisURL    = "CAFE_REDIS_URL"
	EnvJWTSecret   = "CAFE_JWT_SECRET"
	EnvJWTIssuer   = "CAFE_JWT_ISSUER"
	EnvUseSQLite   = "CAFE_USE_SQLITE"
	EnvVNPayTmn    = "CAFE_VNPAY_TMN_CODE"
	EnvVNPaySecret = "CAFE_VNPAY_HASH_SECRET"
	EnvCartLockTTL = "CAFE_CART_LOCK_TTL"
	EnvDBDriver    = "CAFE_DB_DRIVER"
	EnvOutboxPoll  = "CAFE_OUTBOX_POLL_INTERVAL"
	EnvOutboxMax   = "CAFE_OUTBOX_MAX_BACKOFF"
)
