package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JsonConfig is the on-disk shape of the optional configuration file.
// Durations are Go duration strings such as "30s" or "24h". Only fields
// present in the file override the defaults.
type JsonConfig struct {
	Env               string   `json:"env"`
	HTTPAddr          string   `json:"http_addr"`
	LogBackend        string   `json:"log_backend"`
	DatabaseDSN       string   `json:"database_dsn"`
	SecretKey         string   `json:"secret_key"`
	ClientURL         string   `json:"client_url"`
	PublicAPIURL      string   `json:"public_api_url"`
	OTPMode           string   `json:"otp_mode"`
	BcryptCost        int      `json:"bcrypt_cost"`
	RegisterTokenTTL  string   `json:"register_token_ttl"`
	LoginTokenTTL     string   `json:"login_token_ttl"`
	ResetTokenTTL     string   `json:"reset_token_ttl"`
	SessionTokenTTL   string   `json:"session_token_ttl"`
	ResetRequireToken *bool    `json:"reset_require_token"`
	ShutdownTimeout   string   `json:"shutdown_timeout"`
	TrustedProxies    []string `json:"trusted_proxies"`
	Mail              struct {
		Region          string `json:"region"`
		AccessKeyID     string `json:"access_key_id"`
		SecretAccessKey string `json:"secret_access_key"`
		Source          string `json:"source"`
		Endpoint        string `json:"endpoint"`
	} `json:"mail"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	RateLimit struct {
		Limit  int    `json:"limit"`
		Window string `json:"window"`
	} `json:"rate_limit"`
}

// parseJson reads the file at path and overlays its non-empty values onto
// config.
func parseJson(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.Env, c.Env)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.LogBackend, c.LogBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.ClientURL, c.ClientURL)
	setString(&config.PublicAPIURL, c.PublicAPIURL)
	setString(&config.OTPMode, c.OTPMode)
	setString(&config.Mail.Region, c.Mail.Region)
	setString(&config.Mail.AccessKeyID, c.Mail.AccessKeyID)
	setString(&config.Mail.SecretAccessKey, c.Mail.SecretAccessKey)
	setString(&config.Mail.Source, c.Mail.Source)
	setString(&config.Mail.Endpoint, c.Mail.Endpoint)
	setString(&config.Redis.Addr, c.Redis.Addr)
	setString(&config.Redis.Password, c.Redis.Password)

	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.Redis.DB != 0 {
		config.Redis.DB = c.Redis.DB
	}
	if c.RateLimit.Limit != 0 {
		config.RateLimit.Limit = c.RateLimit.Limit
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
	if c.ResetRequireToken != nil {
		config.ResetRequireToken = *c.ResetRequireToken
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"register_token_ttl", c.RegisterTokenTTL, &config.RegisterTokenTTL},
		{"login_token_ttl", c.LoginTokenTTL, &config.LoginTokenTTL},
		{"reset_token_ttl", c.ResetTokenTTL, &config.ResetTokenTTL},
		{"session_token_ttl", c.SessionTokenTTL, &config.SessionTokenTTL},
		{"shutdown_timeout", c.ShutdownTimeout, &config.ShutdownTimeout},
		{"rate_limit.window", c.RateLimit.Window, &config.RateLimit.Window},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
