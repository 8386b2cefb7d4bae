package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Payment      PaymentConfig
	Courier      CourierConfig
	Sendgrid     SendgridConfig
	Fulfillment  FulfillmentConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = "sqlite"
		if cfg.DB.DSN == "" {
			cfg.DB.DSN = "file:pawbazaar.db?cache=shared"
		}
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Courier.validate(); err != nil {
		return nil, err
	}
	if cfg.Fulfillment.ExternalIDLength < 6 {
		return nil, fmt.Errorf("external id length must be at least 6, got %d", cfg.Fulfillment.ExternalIDLength)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string   `envconfig:"PAWBAZAAR_APP_ENV" required:"true"`
	Port            string   `envconfig:"PAWBAZAAR_APP_PORT" required:"true"`
	LogLevel        string   `envconfig:"PAWBAZAAR_LOG_LEVEL" default:"info"`
	LogWarnStack    bool     `envconfig:"PAWBAZAAR_LOG_WARN_STACK" default:"false"`
	FrontendBaseURL string   `envconfig:"PAWBAZAAR_FRONTEND_BASE_URL" required:"true"`
	PublicBaseURL   string   `envconfig:"PAWBAZAAR_PUBLIC_BASE_URL" required:"true"`
	CORSOrigins     []string `envconfig:"PAWBAZAAR_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAWBAZAAR_DB_DSN"`
	Driver string `envconfig:"PAWBAZAAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAWBAZAAR_DB_HOST"`
	LegacyPort     int    `envconfig:"PAWBAZAAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAWBAZAAR_DB_USER"`
	LegacyPassword string `envconfig:"PAWBAZAAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAWBAZAAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAWBAZAAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAWBAZAAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAWBAZAAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAWBAZAAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAWBAZAAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAWBAZAAR_REDIS_URL"`
	Address      string        `envconfig:"PAWBAZAAR_REDIS_ADDR"`
	Password     string        `envconfig:"PAWBAZAAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAWBAZAAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAWBAZAAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAWBAZAAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAWBAZAAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAWBAZAAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAWBAZAAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAWBAZAAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAWBAZAAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAWBAZAAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAWBAZAAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAWBAZAAR_AUTO_MIGRATE" default:"false"`
}

// PaymentConfig holds the hosted-redirect gateway (SSLCommerz) credentials.
type PaymentConfig struct {
	StoreID       string `envconfig:"PAWBAZAAR_SSLCOMMERZ_STORE_ID" required:"true"`
	StorePassword string `envconfig:"PAWBAZAAR_SSLCOMMERZ_STORE_PASSWORD" required:"true"`
	Sandbox       bool   `envconfig:"PAWBAZAAR_SSLCOMMERZ_SANDBOX" default:"true"`
	BaseURL       string `envconfig:"PAWBAZAAR_SSLCOMMERZ_BASE_URL"`
	Currency      string `envconfig:"PAWBAZAAR_SSLCOMMERZ_CURRENCY" default:"BDT"`
}

// CourierConfig holds the Steadfast courier credentials.
type CourierConfig struct {
	Enabled   bool   `envconfig:"PAWBAZAAR_COURIER_ENABLED" default:"true"`
	APIKey    string `envconfig:"PAWBAZAAR_STEADFAST_API_KEY"`
	SecretKey string `envconfig:"PAWBAZAAR_STEADFAST_SECRET_KEY"`
	BaseURL   string `envconfig:"PAWBAZAAR_STEADFAST_BASE_URL"`
}

func (c CourierConfig) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.APIKey == "" || c.SecretKey == "" {
		return fmt.Errorf("%s and %s are required when %s is true", EnvCourierAPIKey, EnvCourierSecretKey, EnvCourierEnabled)
	}
	return nil
}

type SendgridConfig struct {
	APIKey      string `envconfig:"PAWBAZAAR_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"PAWBAZAAR_SENDGRID_FROM_EMAIL" default:"no-reply@pawbazaar.local"`
	AdminEmail  string `envconfig:"PAWBAZAAR_ADMIN_EMAIL" default:"admin@pawbazaar.local"`
	BaseURL     string `envconfig:"PAWBAZAAR_SENDGRID_BASE_URL"`
}

type FulfillmentConfig struct {
	ExternalIDLength int             `envconfig:"PAWBAZAAR_EXTERNAL_ID_LENGTH" default:"10"`
	ShippingFee      decimal.Decimal `envconfig:"PAWBAZAAR_SHIPPING_FEE" default:"60"`
	CallbackGuardTTL time.Duration   `envconfig:"PAWBAZAAR_CALLBACK_GUARD_TTL" default:"24h"`
	CallbackRateMax  int             `envconfig:"PAWBAZAAR_CALLBACK_RATE_LIMIT" default:"30"`
	CallbackWindow   time.Duration   `envconfig:"PAWBAZAAR_CALLBACK_RATE_WINDOW" default:"1m"`
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
