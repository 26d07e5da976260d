// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

const (
	OTPModeSuffix = "suffix"
	OTPModeHMAC   = "hmac"
)

// MailConfig holds the outbound mail provider settings (AWS SES).
type MailConfig struct {
	Region          string `env:"WS_REGION" env-description:"mail provider region"`
	AccessKeyID     string `env:"WS_ACCESS_Id" env-description:"mail provider access key id"`
	SecretAccessKey string `env:"WS_SECRET" env-description:"mail provider secret access key"`
	Source          string `env:"SOURCE" env-description:"sender address of outgoing mail"`
	Endpoint        string `env:"MAIL_ENDPOINT" env-description:"optional mail provider endpoint override"`
}

// RedisConfig configures the attempt limiter store. An empty Addr disables
// rate limiting.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-description:"redis address, empty disables rate limiting"`
	Password string `env:"REDIS_PASSWORD" env-description:"redis password"`
	DB       int    `env:"REDIS_DB" env-description:"redis database number"`
}

// RateLimitConfig bounds attempts per client and route inside a fixed window.
type RateLimitConfig struct {
	Limit  int           `env:"RATE_LIMIT_LIMIT" env-description:"attempts allowed per window"`
	Window time.Duration `env:"RATE_LIMIT_WINDOW" env-description:"rate limit window"`
}

// Config holds runtime settings for the gatekeeper server. It is built once
// at start-up and treated as read-only afterwards.
type Config struct {
	Env        string `env:"ENV" env-description:"environment: local, dev or prod"`
	HTTPAddr   string `env:"HTTP_ADDR" env-description:"HTTP listen address"`
	LogBackend string `env:"LOG_BACKEND" env-description:"slog or zerolog"`

	DatabaseDSN string `env:"DATABASE_STRING" env-description:"postgres://, mongodb:// or memory:// connection string"`
	SecretKey   string `env:"TOKEN_SECRET" env-description:"HMAC secret for signing tokens"`

	ClientURL    string `env:"CLIENT_URL" env-description:"front-end base URL used in redirects"`
	PublicAPIURL string `env:"PUBLIC_API_URL" env-description:"API base URL used in emailed links"`

	OTPMode           string        `env:"OTP_MODE" env-description:"suffix or hmac"`
	BcryptCost        int           `env:"BCRYPT_COST" env-description:"bcrypt cost, minimum 10"`
	RegisterTokenTTL  time.Duration `env:"REGISTER_TOKEN_TTL" env-description:"registration OTP token lifetime"`
	LoginTokenTTL     time.Duration `env:"LOGIN_TOKEN_TTL" env-description:"login link token lifetime"`
	ResetTokenTTL     time.Duration `env:"RESET_TOKEN_TTL" env-description:"reset link token lifetime"`
	SessionTokenTTL   time.Duration `env:"SESSION_TOKEN_TTL" env-description:"session token lifetime, 0 means no expiry"`
	ResetRequireToken bool          `env:"RESET_REQUIRE_TOKEN" env-description:"require a reset token on password reset"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-description:"graceful shutdown timeout"`

	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding
	// headers are believed. Empty means the client address is the peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES" env-separator:"," env-description:"comma-separated proxy IPs or CIDRs trusted for X-Forwarded-For"`

	Mail      MailConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// LoadDefaults populates Config with development defaults. The signing
// secret, database string and mail credentials have no defaults and must be
// supplied.
func (c *Config) LoadDefaults() {
	c.Env = EnvLocal
	c.HTTPAddr = ":8000"
	c.LogBackend = "zerolog"
	c.ClientURL = "http://localhost:3000"
	c.PublicAPIURL = "http://localhost:3000/api"
	c.OTPMode = OTPModeSuffix
	c.BcryptCost = 10
	c.RegisterTokenTTL = 30 * time.Second
	c.LoginTokenTTL = time.Minute
	c.ResetTokenTTL = time.Minute
	c.SessionTokenTTL = 24 * time.Hour
	c.ShutdownTimeout = 10 * time.Second
	c.RateLimit.Limit = 10
	c.RateLimit.Window = time.Minute
}

// Load builds a Config from args (without the program name): defaults, then
// the optional JSON file named by -c/-config, then environment variables,
// then flags. The result is validated.
func Load(args []string) (*Config, error) {
	cfg, err := load(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStorage is Load for tools that only touch the database: the signing
// secret and mail settings are not required.
func LoadStorage(args []string) (*Config, error) {
	cfg, err := load(args)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateStorage(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path := flagx.ConfigPath(args); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}

// LoadConfig is Load over the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Validate fails closed when a required setting is missing or a value is out
// of range.
func (c *Config) Validate() error {
	var errs []error
	require := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	require("TOKEN_SECRET", c.SecretKey)
	require("DATABASE_STRING", c.DatabaseDSN)
	if !c.usesMemoryStore() {
		require("WS_REGION", c.Mail.Region)
		require("WS_ACCESS_Id", c.Mail.AccessKeyID)
		require("WS_SECRET", c.Mail.SecretAccessKey)
		require("SOURCE", c.Mail.Source)
	}

	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of local, dev, prod: %q", c.Env))
	}
	switch c.OTPMode {
	case OTPModeSuffix, OTPModeHMAC:
	default:
		errs = append(errs, fmt.Errorf("OTP_MODE must be suffix or hmac: %q", c.OTPMode))
	}
	if c.RegisterTokenTTL <= 0 || c.LoginTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("verification token TTLs must be positive"))
	}
	if c.SessionTokenTTL < 0 {
		errs = append(errs, errors.New("SESSION_TOKEN_TTL must not be negative"))
	}
	proxies := c.TrustedProxies[:0]
	for _, p := range c.TrustedProxies {
		if p = strings.TrimSpace(p); p != "" {
			proxies = append(proxies, p)
		}
	}
	c.TrustedProxies = proxies
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: invalid address %q", p))
			}
		}
	}
	if c.Redis.Addr != "" && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate limit and window must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateStorage checks only what a database-only tool needs.
func (c *Config) ValidateStorage() error {
	var errs []error
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		errs = append(errs, errors.New("DATABASE_STRING is required"))
	}
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of local, dev, prod: %q", c.Env))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProd
}

// memory:// stores are for local runs and tests; mail credentials may be
// absent there.
func (c *Config) usesMemoryStore() bool {
	return strings.HasPrefix(c.DatabaseDSN, "memory://")
}
