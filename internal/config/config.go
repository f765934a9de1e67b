package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	AppURL      string

	OTLPEndpoint   string
	MetricsEnabled bool

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EncryptionKey seeds the key used for client secrets at rest.
	EncryptionKey string

	Shopify ShopifyConfig
	Vendor  VendorConfig
}

type ShopifyConfig struct {
	APIKey    string
	APISecret string
}

// VendorConfig carries per-mode endpoint defaults for the bank-transfer
// processor. Credentials are never defaulted here; merchants configure them.
type VendorConfig struct {
	SandboxGatewayURL string
	LiveGatewayURL    string
	SandboxScriptURL  string
	LiveScriptURL     string
	WebhookSecret     string
	Timeout           time.Duration
}

const (
	DefaultSandboxGatewayURL = "https://sandbox.cabbagepay.com/api/custom"
	DefaultLiveGatewayURL    = "https://production.cabbagepay.com/api/custom"
	DefaultSandboxScriptURL  = "https://cabbagepay.com/js/sandbox/cabbage.js"
	DefaultLiveScriptURL     = "https://cabbagepay.com/js/production/cabbage.js"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "bankpay"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		AppURL:       strings.TrimRight(strings.TrimSpace(getenv("SHOPIFY_APP_URL", "")), "/"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", ""),

		MetricsEnabled: getenvBool("METRICS_ENABLED", true),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "bankpay"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       int(getenvInt64("REDIS_DB", 0)),

		EncryptionKey: strings.TrimSpace(getenv("ENCRYPTION_KEY", "")),

		Shopify: ShopifyConfig{
			APIKey:    strings.TrimSpace(getenv("SHOPIFY_API_KEY", "")),
			APISecret: strings.TrimSpace(getenv("SHOPIFY_API_SECRET", "")),
		},
		Vendor: VendorConfig{
			SandboxGatewayURL: getenv("FINGRID_SANDBOX_GATEWAY_URL", DefaultSandboxGatewayURL),
			LiveGatewayURL:    getenv("FINGRID_LIVE_GATEWAY_URL", DefaultLiveGatewayURL),
			SandboxScriptURL:  getenv("FINGRID_SANDBOX_SCRIPT_URL", DefaultSandboxScriptURL),
			LiveScriptURL:     getenv("FINGRID_LIVE_SCRIPT_URL", DefaultLiveScriptURL),
			WebhookSecret:     strings.TrimSpace(getenv("FINGRID_WEBHOOK_SECRET", "")),
			Timeout:           getenvDuration("FINGRID_TIMEOUT", 15*time.Second),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// DefaultRedirectURL is where the vendor sends the customer after linking a
// bank when neither the request nor the settings name one.
func (c Config) DefaultRedirectURL() string {
	if c.AppURL == "" {
		return ""
	}
	return c.AppURL + "/api/fingrid/callback"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
