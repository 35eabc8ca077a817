package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	VNPay        VNPayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

// Load reads the process environment. Every invalid setting is reported at
// once rather than failing on the first.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := multierr.Combine(cfg.DB.ensureDSN(), cfg.validate()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var err error
	check := func(ok bool, msg string) {
		if !ok {
			err = multierr.Append(err, errors.New(msg))
		}
	}
	check(c.DB.Driver == DriverPostgres || c.DB.Driver == DriverSQLite, "CAFE_DB_DRIVER must be postgres or sqlite")
	check(c.Cart.LockTTL > 0, "CAFE_CART_LOCK_TTL must be positive")
	check(c.Cart.MaxAttempts > 0, "CAFE_CART_MAX_ATTEMPTS must be at least 1")
	check(c.Outbox.BatchSize > 0, "CAFE_OUTBOX_PUBLISH_BATCH_SIZE must be at least 1")
	check(c.Outbox.MaxAttempts > 0, "CAFE_OUTBOX_MAX_ATTEMPTS must be at least 1")
	check(c.Outbox.MaxBackoff >= c.Outbox.PollInterval, "CAFE_OUTBOX_MAX_BACKOFF must not be shorter than the poll interval")
	tmn, secret := strings.TrimSpace(c.VNPay.TmnCode) != "", strings.TrimSpace(c.VNPay.HashSecret) != ""
	check(tmn == secret, "CAFE_VNPAY_TMN_CODE and CAFE_VNPAY_HASH_SECRET must be set together")
	return err
}

type AppConfig struct {
	Env          string `envconfig:"CAFE_APP_ENV" required:"true"`
	Port         string `envconfig:"CAFE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CAFE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CAFE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CAFE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"CAFE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

type DBConfig struct {
	DSN    string `envconfig:"CAFE_DB_DSN"`
	Driver string `envconfig:"CAFE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CAFE_DB_HOST"`
	LegacyPort     int    `envconfig:"CAFE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CAFE_DB_USER"`
	LegacyPassword string `envconfig:"CAFE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CAFE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CAFE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CAFE_SQLITE_PATH" default:"cafe.db"`

	MaxOpenConns    int           `envconfig:"CAFE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CAFE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CAFE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CAFE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CAFE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CAFE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CAFE_REDIS_ADDR"`
	Password     string        `envconfig:"CAFE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CAFE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CAFE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CAFE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CAFE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CAFE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CAFE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret used to verify identity provider tokens.
type JWTConfig struct {
	Secret            string `envconfig:"CAFE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CAFE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CAFE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CAFE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CAFE_AUTO_MIGRATE" default:"false"`
}

type CartConfig struct {
	LockTTL     time.Duration `envconfig:"CAFE_CART_LOCK_TTL" default:"5s"`
	MaxAttempts int           `envconfig:"CAFE_CART_MAX_ATTEMPTS" default:"3"`
}

type VNPayConfig struct {
	TmnCode    string `envconfig:"CAFE_VNPAY_TMN_CODE"`
	HashSecret string `envconfig:"CAFE_VNPAY_HASH_SECRET"`
	PayURL     string `envconfig:"CAFE_VNPAY_PAY_URL" default:"https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"`
	ReturnURL  string `envconfig:"CAFE_VNPAY_RETURN_URL" default:"http://localhost:8080/order/vnpay_return"`
	Locale     string `envconfig:"CAFE_VNPAY_LOCALE" default:"vn"`
	Version    string `envconfig:"CAFE_VNPAY_VERSION" default:"2.1.0"`
	// SuccessURL and FailureURL are the browser redirect targets after a callback.
	SuccessURL     string        `envconfig:"CAFE_PAYMENT_SUCCESS_URL" default:"/payment/success"`
	FailureURL     string        `envconfig:"CAFE_PAYMENT_FAILURE_URL" default:"/payment/failed"`
	ExpireAfter    time.Duration `envconfig:"CAFE_VNPAY_EXPIRE_AFTER" default:"15m"`
	CallbackTTL    time.Duration `envconfig:"CAFE_VNPAY_CALLBACK_TTL" default:"720h"`
	DefaultIPAddr  string        `envconfig:"CAFE_VNPAY_DEFAULT_IP" default:"127.0.0.1"`
	OrderInfoLabel string        `envconfig:"CAFE_VNPAY_ORDER_INFO" default:"Thanh toan don hang"`
}

// Enabled reports whether enough VNPay credentials are configured to sign requests.
func (v VNPayConfig) Enabled() bool {
	return strings.TrimSpace(v.TmnCode) != "" && strings.TrimSpace(v.HashSecret) != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"CAFE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"CAFE_PUBSUB_ORDERS_TOPIC" default:"cafe-order-events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CAFE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"CAFE_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxBackoff     time.Duration `envconfig:"CAFE_OUTBOX_MAX_BACKOFF" default:"10s"`
	PublishTimeout time.Duration `envconfig:"CAFE_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"CAFE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// ensureDSN assembles a postgres URL from the discrete CAFE_DB_* settings
// when no CAFE_DB_DSN is given.
func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.Driver == DriverSQLite {
		return nil
	}
	var missing []string
	for env, value := range map[string]string{EnvDBHost: db.LegacyHost, EnvDBUser: db.LegacyUser, EnvDBName: db.LegacyName} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := url.URL{
		Scheme: DriverPostgres,
		User:   url.User(db.LegacyUser),
		Host:   net.JoinHostPort(db.LegacyHost, strconv.Itoa(db.LegacyPort)),
		Path:   db.LegacyName,
	}
	if db.LegacyPassword != "" {
		u.User = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}
	if db.LegacySSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.LegacySSLMode}}.Encode()
	}
	db.DSN = u.String()
	return nil
}
