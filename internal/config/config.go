package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xtrntr/kaspay/internal/models"

	"github.com/spf13/viper"
)

// Config is the full service configuration
type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	JWT      JWTConfig              `mapstructure:"jwt"`
	Merchant MerchantConfig         `mapstructure:"merchant"`
	Quote    QuoteConfig            `mapstructure:"quote"`
	Orders   OrdersConfig           `mapstructure:"orders"`
	Assets   map[string]AssetConfig `mapstructure:"assets"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "debug" or "release"
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type MerchantConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type QuoteConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type OrdersConfig struct {
	TTLMinutes   int `mapstructure:"ttl_minutes"`
	SweepSeconds int `mapstructure:"sweep_seconds"`
}

// AssetConfig overrides per-asset settings from the built-in table
type AssetConfig struct {
	Address string `mapstructure:"address"`
}

// Load reads config.yaml (from ./ or ./configs) and environment
// variables prefixed with KASPAY_, falling back to defaults for
// everything except the merchant password and JWT secret.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("merchant.username", "merchant")
	v.SetDefault("quote.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("quote.timeout_seconds", 10)
	v.SetDefault("orders.ttl_minutes", 30)
	v.SetDefault("orders.sweep_seconds", 20)

	v.SetEnvPrefix("KASPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only surfaces keys that viper already knows about.
	// The secrets have no default on purpose, so they must be bound
	// explicitly or an env-only deployment could never set them.
	for _, key := range []string{"jwt.secret", "merchant.password"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// no config file is fine, env vars and defaults still apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no safe default
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("jwt.secret should be at least 32 characters")
	}
	if c.Merchant.Password == "" {
		return errors.New("merchant.password is required")
	}
	if c.Orders.TTLMinutes <= 0 {
		return errors.New("orders.ttl_minutes must be positive")
	}
	return nil
}

// OrderTTL returns the configured order time-to-live
func (c *Config) OrderTTL() time.Duration {
	return time.Duration(c.Orders.TTLMinutes) * time.Minute
}

// SweepInterval returns how often the background sweeper runs
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Orders.SweepSeconds) * time.Second
}

// QuoteTimeout returns the deadline for a single quote fetch
func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.Quote.TimeoutSeconds) * time.Second
}

// TokenExpiry returns how long issued merchant tokens stay valid
func (c *Config) TokenExpiry() time.Duration {
	return time.Duration(c.JWT.ExpireHours) * time.Hour
}

// AssetTable returns the built-in asset table with per-asset
// configuration overrides applied
func (c *Config) AssetTable() []models.Asset {
	assets := models.DefaultAssets()
	for i, a := range assets {
		if override, ok := c.Assets[a.Symbol]; ok && override.Address != "" {
			assets[i].Address = override.Address
		}
	}
	return assets
}
