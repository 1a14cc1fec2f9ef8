package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Port                string        `yaml:"port"                 env:"PORT"                 env-default:"8080"`
	AllowedOrigin       string        `yaml:"allowed_origin"       env:"ALLOWED_ORIGIN"       env-default:"http://127.0.0.1:3000"`
	DatabaseURL         string        `yaml:"database_url"         env:"DATABASE_URL"`
	RedisAddr           string        `yaml:"redis_addr"           env:"REDIS_ADDR"`
	RedisPassword       string        `yaml:"redis_password"       env:"REDIS_PASSWORD"`
	RedisDB             int           `yaml:"redis_db"             env:"REDIS_DB"             env-default:"0"`
	CompanyID           string        `yaml:"default_company_id"   env:"DEFAULT_COMPANY_ID"   env-default:"main-company"`
	IdempotencyTTL      time.Duration `yaml:"idempotency_ttl"      env:"IDEMPOTENCY_TTL"      env-default:"24h"`
	AuthSecret          string        `yaml:"auth_secret"          env:"AUTH_SECRET"`
	AccessTokenTTL      time.Duration `yaml:"access_token_ttl"     env:"ACCESS_TOKEN_TTL"     env-default:"8h"`
	OwnerUsername       string        `yaml:"owner_username"       env:"BOOTSTRAP_OWNER_USERNAME" env-default:"owner"`
	OwnerPassword       string        `yaml:"owner_password"       env:"BOOTSTRAP_OWNER_PASSWORD"`
	LogLevel            string        `yaml:"log_level"            env:"LOG_LEVEL"            env-default:"info"`
	LogFormat           string        `yaml:"log_format"           env:"LOG_FORMAT"           env-default:"json"`
	Timezone            string        `yaml:"timezone"             env:"TIMEZONE"             env-default:"UTC"`
	DistributionRetries int           `yaml:"distribution_retries" env:"DISTRIBUTION_RETRIES" env-default:"5"`
}

// Load reads the optional YAML file at CONFIG_PATH, then environment
// variables, then defaults.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}

	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 8 * time.Hour
	}
	if cfg.DistributionRetries < 1 {
		cfg.DistributionRetries = 5
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves Timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
