// Package config loads server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Database    DatabaseConfig    `yaml:"database"`
	Game        GameConfig        `yaml:"game"`
	Marketplace MarketplaceConfig `yaml:"marketplace"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host              string   `yaml:"host" env:"GACHAPON_HOST"`
	Port              int      `yaml:"port" env:"GACHAPON_PORT"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	RequestsPerSecond int      `yaml:"requests_per_second" env:"GACHAPON_RPS"`
	RateBurst         int      `yaml:"rate_burst" env:"GACHAPON_RATE_BURST"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"GACHAPON_LOG_LEVEL"`
	Format string `yaml:"format" env:"GACHAPON_LOG_FORMAT"`
}

// DatabaseConfig configures the postgres store. When the URL is empty the
// server runs on the in-memory stores.
type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"GACHAPON_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"GACHAPON_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"GACHAPON_DB_CONN_MAX_LIFETIME"`
}

// GameConfig configures the game service.
type GameConfig struct {
	Authority       string        `yaml:"authority" env:"GACHAPON_AUTHORITY"`
	ResolverSecret  string        `yaml:"resolver_secret" env:"GACHAPON_RESOLVER_SECRET"`
	ResolverIssuer  string        `yaml:"resolver_issuer" env:"GACHAPON_RESOLVER_ISSUER"`
	SweepSchedule   string        `yaml:"sweep_schedule" env:"GACHAPON_SWEEP_SCHEDULE"`
	SweepMaxPending time.Duration `yaml:"sweep_max_pending" env:"GACHAPON_SWEEP_MAX_PENDING"`
}

// MarketplaceConfig configures the marketplace service.
type MarketplaceConfig struct {
	Authority        string `yaml:"authority" env:"GACHAPON_MARKET_AUTHORITY"`
	PlatformTreasury string `yaml:"platform_treasury" env:"GACHAPON_PLATFORM_TREASURY"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			AllowedOrigins:    []string{"*"},
			RequestsPerSecond: 20,
			RateBurst:         40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Game: GameConfig{
			Authority:       "gachapon-admin",
			ResolverIssuer:  "gachapon",
			SweepSchedule:   "*/10 * * * *",
			SweepMaxPending: time.Hour,
		},
		Marketplace: MarketplaceConfig{
			Authority:        "gachapon-admin",
			PlatformTreasury: "platform-treasury",
		},
	}
}

// Load reads the configuration file at path and applies environment
// overrides. A .env file in the working directory is loaded first when
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Server.Port)
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration, falling back to defaults on any
// error.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		return Default()
	}
	return cfg
}
