package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RateLimit is a token bucket definition: Limit requests per Window.
type RateLimit struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// GatewayConfig is the runtime-tunable request policy. It is read from
// gateway.yml and reloaded when the file changes.
type GatewayConfig struct {
	WebhookLogCapacity int                  `mapstructure:"webhookLogCapacity"`
	RateLimits         map[string]RateLimit `mapstructure:"rateLimits"`
}

const (
	BucketPayment       = "payment"
	BucketAPI           = "api"
	BucketWebhook       = "webhook"
	BucketLinkToken     = "link_token"
	BucketTokenExchange = "token_exchange"
)

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		WebhookLogCapacity: 1000,
		RateLimits: map[string]RateLimit{
			BucketPayment:       {Limit: 5, Window: time.Minute},
			BucketAPI:           {Limit: 100, Window: time.Minute},
			BucketWebhook:       {Limit: 1000, Window: time.Minute},
			BucketLinkToken:     {Limit: 10, Window: time.Minute},
			BucketTokenExchange: {Limit: 20, Window: time.Minute},
		},
	}
}

// Limit returns the bucket definition, falling back to the api bucket.
func (c GatewayConfig) Limit(bucket string) RateLimit {
	if rl, ok := c.RateLimits[bucket]; ok {
		return rl
	}
	return c.RateLimits[BucketAPI]
}

type GatewayConfigHolder struct {
	current atomic.Value // holds GatewayConfig
}

// NewStaticGatewayConfigHolder wraps a fixed config; used by tests and when
// no config file is mounted.
func NewStaticGatewayConfigHolder(cfg GatewayConfig) *GatewayConfigHolder {
	holder := &GatewayConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewGatewayConfigHolder(log *zap.Logger) (*GatewayConfigHolder, error) {
	log = log.Named("config.gateway")
	v := viper.New()

	v.SetConfigName("gateway")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/bankpay/config")
	v.AddConfigPath("/etc/bankpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BANKPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultGatewayConfig()
	v.SetDefault("gateway.webhookLogCapacity", defaults.WebhookLogCapacity)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	cfg, err := decodeGatewayConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticGatewayConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeGatewayConfig(v)
		if err != nil {
			log.Warn("gateway config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("gateway config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *GatewayConfigHolder) Get() GatewayConfig {
	return h.current.Load().(GatewayConfig)
}

func decodeGatewayConfig(v *viper.Viper) (GatewayConfig, error) {
	var cfg GatewayConfig
	if err := v.UnmarshalKey("gateway", &cfg); err != nil {
		return GatewayConfig{}, err
	}
	defaults := DefaultGatewayConfig()
	if cfg.RateLimits == nil {
		cfg.RateLimits = map[string]RateLimit{}
	}
	for name, rl := range defaults.RateLimits {
		if _, ok := cfg.RateLimits[name]; !ok {
			cfg.RateLimits[name] = rl
		}
	}
	if err := validateGatewayConfig(cfg); err != nil {
		return GatewayConfig{}, err
	}
	return cfg, nil
}

func validateGatewayConfig(cfg GatewayConfig) error {
	if cfg.WebhookLogCapacity <= 0 {
		return errors.New("gateway.webhookLogCapacity must be positive")
	}
	for name, rl := range cfg.RateLimits {
		if rl.Limit <= 0 || rl.Window <= 0 {
			return errors.New("gateway.rateLimits." + name + " must have positive limit and window")
		}
	}
	return nil
}
