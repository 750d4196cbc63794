package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gmocoin-adapter-go/infrastructure/logger"
	"gmocoin-adapter-go/market"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env        string          `yaml:"env"`
	Gateway    GatewayConfig   `yaml:"gateway"`
	Resolver   ResolverConfig  `yaml:"resolver"`
	Log        logger.Config   `yaml:"log"`
	Metrics    MetricsConfig   `yaml:"metrics"`
	Symbols    []string        `yaml:"symbols"`
	Currencies []string        `yaml:"currencies"`
	Anchor     string          `yaml:"anchor"`
	Bars       []BarSubConfig  `yaml:"bars"`
}

type GatewayConfig struct {
	APIKey          string  `yaml:"apiKey"`
	APISecret       string  `yaml:"apiSecret"`
	PublicBaseURL   string  `yaml:"publicBaseURL"`
	PrivateBaseURL  string  `yaml:"privateBaseURL"`
	PrivateWSURL    string  `yaml:"privateWSURL"`
	TimeoutMs       int     `yaml:"timeoutMs"`
	RateLimitPerSec float64 `yaml:"rateLimitPerSec"`
	RateBurst       int     `yaml:"rateBurst"`
}

// ResolverConfig 身份解析的重试预算。
type ResolverConfig struct {
	Attempts int `yaml:"attempts"`
	DelayMs  int `yaml:"delayMs"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// BarSubConfig 一条 K 线订阅。Spec 形如 "1-MINUTE"。
type BarSubConfig struct {
	Symbol string `yaml:"symbol"`
	Spec   string `yaml:"spec"`
}

func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutMs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(g.TimeoutMs) * time.Millisecond
}

func (r ResolverConfig) Delay() time.Duration {
	if r.DelayMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(r.DelayMs) * time.Millisecond
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("GMO_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}
	if v := os.Getenv("GMO_API_SECRET"); v != "" {
		cfg.Gateway.APISecret = v
	}
	return cfg, Validate(cfg)
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
		return errors.New("gateway.apiKey/apiSecret is required (or env overrides)")
	}
	if cfg.Gateway.RateLimitPerSec < 0 {
		return errors.New("gateway.rateLimitPerSec must be >= 0")
	}
	if cfg.Resolver.Attempts < 0 {
		return errors.New("resolver.attempts must be >= 0")
	}
	if cfg.Resolver.DelayMs < 0 {
		return errors.New("resolver.delayMs must be >= 0")
	}
	if len(cfg.Symbols) == 0 {
		return errors.New("symbols config is required")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics.enabled")
	}
	for _, bar := range cfg.Bars {
		if bar.Symbol == "" {
			return errors.New("bars entry missing symbol")
		}
		if _, err := market.ParseBarSpec(bar.Spec); err != nil {
			return fmt.Errorf("bars entry for %s: %w", bar.Symbol, err)
		}
	}
	return nil
}
