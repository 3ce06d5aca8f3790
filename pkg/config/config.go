package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "thanhhuy"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
	Stripe   StripeConfig
	Momo     MomoConfig
	Webhook  WebhookConfig
	Discord  DiscordConfig
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
	Env          string `envconfig:"THANHHUY_APP_ENV" required:"true"`
	Port         string `envconfig:"THANHHUY_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"THANHHUY_APP_BASE_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"THANHHUY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"THANHHUY_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"THANHHUY_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"THANHHUY_DB_DSN"`
	Driver string `envconfig:"THANHHUY_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"THANHHUY_DB_HOST"`
	Port     int    `envconfig:"THANHHUY_DB_PORT" default:"5432"`
	User     string `envconfig:"THANHHUY_DB_USER"`
	Password string `envconfig:"THANHHUY_DB_PASSWORD"`
	Name     string `envconfig:"THANHHUY_DB_NAME"`
	SSLMode  string `envconfig:"THANHHUY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"THANHHUY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"THANHHUY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"THANHHUY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"THANHHUY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"THANHHUY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"THANHHUY_REDIS_ADDR"`
	Password     string        `envconfig:"THANHHUY_REDIS_PASSWORD"`
	DB           int           `envconfig:"THANHHUY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"THANHHUY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"THANHHUY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"THANHHUY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"THANHHUY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"THANHHUY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"THANHHUY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"THANHHUY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"THANHHUY_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig carries the order-level guardrails applied during validation.
type CheckoutConfig struct {
	MaxQtyPerProduct int   `envconfig:"THANHHUY_CHECKOUT_MAX_QTY_PER_PRODUCT" default:"10"`
	MinOrderAmount   int64 `envconfig:"THANHHUY_CHECKOUT_MIN_ORDER_AMOUNT" default:"10000"`
	MaxOrderAmount   int64 `envconfig:"THANHHUY_CHECKOUT_MAX_ORDER_AMOUNT" default:"500000000"`
	// Orders a single user may place in the trailing hour.
	HourlyOrderLimit int `envconfig:"THANHHUY_CHECKOUT_HOURLY_ORDER_LIMIT" default:"5"`
	// Tolerated difference between client-supplied and authoritative amounts, in VND.
	AmountEpsilon int64 `envconfig:"THANHHUY_CHECKOUT_AMOUNT_EPSILON" default:"0"`
	// How long an in-flight order holds its idempotency slot in redis.
	GuardTTL time.Duration `envconfig:"THANHHUY_CHECKOUT_GUARD_TTL" default:"15m"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"THANHHUY_STRIPE_API_KEY"`
	SigningSecret string `envconfig:"THANHHUY_STRIPE_SIGNING_SECRET"`
	Env           string `envconfig:"THANHHUY_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MomoConfig struct {
	PartnerCode string        `envconfig:"THANHHUY_MOMO_PARTNER_CODE"`
	AccessKey   string        `envconfig:"THANHHUY_MOMO_ACCESS_KEY"`
	SecretKey   string        `envconfig:"THANHHUY_MOMO_SECRET_KEY"`
	Endpoint    string        `envconfig:"THANHHUY_MOMO_ENDPOINT" default:"https://test-payment.momo.vn/v2/gateway/api/create"`
	RedirectURL string        `envconfig:"THANHHUY_MOMO_REDIRECT_URL"`
	IPNURL      string        `envconfig:"THANHHUY_MOMO_IPN_URL"`
	Timeout     time.Duration `envconfig:"THANHHUY_MOMO_TIMEOUT" default:"15s"`
}

type WebhookConfig struct {
	ReplayTTL time.Duration `envconfig:"THANHHUY_WEBHOOK_REPLAY_TTL" default:"72h"`
}

type DiscordConfig struct {
	WebhookURL string        `envconfig:"THANHHUY_DISCORD_WEBHOOK_URL"`
	Timeout    time.Duration `envconfig:"THANHHUY_DISCORD_TIMEOUT" default:"10s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, val := range map[string]string{
		"THANHHUY_DB_HOST": db.Host,
		"THANHHUY_DB_USER": db.User,
		"THANHHUY_DB_NAME": db.Name,
	} {
		if val == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either THANHHUY_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
