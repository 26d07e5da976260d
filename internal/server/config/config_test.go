package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN_SECRET", "env-secret")
	t.Setenv("DATABASE_STRING", "postgres://u:p@db:5432/app")
	t.Setenv("WS_REGION", "eu-west-1")
	t.Setenv("WS_ACCESS_Id", "AKIA")
	t.Setenv("WS_SECRET", "shh")
	t.Setenv("SOURCE", "no-reply@example.com")
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, EnvLocal, c.Env)
	assert.Equal(t, ":8000", c.HTTPAddr)
	assert.Equal(t, "zerolog", c.LogBackend)
	assert.Equal(t, OTPModeSuffix, c.OTPMode)
	assert.Equal(t, 10, c.BcryptCost)
	assert.Equal(t, 30*time.Second, c.RegisterTokenTTL)
	assert.Equal(t, time.Minute, c.LoginTokenTTL)
	assert.Equal(t, time.Minute, c.ResetTokenTTL)
	assert.Equal(t, 24*time.Hour, c.SessionTokenTTL)
	assert.Empty(t, c.SecretKey)
	assert.Empty(t, c.DatabaseDSN)
}

func TestLoad_FailsClosedWithoutSecrets(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("DATABASE_STRING", "")

	_, err := Load(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TOKEN_SECRET is required")
	assert.Contains(t, err.Error(), "DATABASE_STRING is required")
}

func TestLoad_FromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOGIN_TOKEN_TTL", "2m")
	t.Setenv("RESET_REQUIRE_TOKEN", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("ENV", "prod")

	c, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", c.SecretKey)
	assert.Equal(t, "eu-west-1", c.Mail.Region)
	assert.Equal(t, "AKIA", c.Mail.AccessKeyID)
	assert.Equal(t, "no-reply@example.com", c.Mail.Source)
	assert.Equal(t, 2*time.Minute, c.LoginTokenTTL)
	assert.Equal(t, 30*time.Second, c.RegisterTokenTTL)
	assert.True(t, c.ResetRequireToken)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.True(t, c.IsProduction())
}

func TestLoad_LayerOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"http_addr": ":9001",
		"secret_key": "file-secret",
		"database_dsn": "memory://",
		"otp_mode": "hmac",
		"session_token_ttl": "1h",
		"rate_limit": {"limit": 3, "window": "30s"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	// env beats file, flag beats env
	t.Setenv("TOKEN_SECRET", "env-secret")
	t.Setenv("HTTP_ADDR", ":9002")

	c, err := Load([]string{"-c", path, "-a", ":9003", "-unknown", "x"})
	require.NoError(t, err)

	assert.Equal(t, ":9003", c.HTTPAddr)
	assert.Equal(t, "env-secret", c.SecretKey)
	assert.Equal(t, "memory://", c.DatabaseDSN)
	assert.Equal(t, OTPModeHMAC, c.OTPMode)
	assert.Equal(t, time.Hour, c.SessionTokenTTL)
	assert.Equal(t, 3, c.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, c.RateLimit.Window)
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "s")
	t.Setenv("DATABASE_STRING", "memory://")
	t.Setenv("TRUSTED_PROXIES", "")

	c, err := Load(nil)
	require.NoError(t, err)
	assert.Empty(t, c.TrustedProxies)

	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 192.168.0.0/16,")
	c, err = Load(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, c.TrustedProxies)
}

func TestLoad_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := Load([]string{"-config", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestLoad_BadDurationInJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"login_token_ttl":"soon"}`), 0o600))

	_, err := Load([]string{"-c", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login_token_ttl")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		c.SecretKey = "k"
		c.DatabaseDSN = "memory://"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "mail required outside memory", mutate: func(c *Config) { c.DatabaseDSN = "postgres://x" }, wantErr: "WS_REGION is required"},
		{name: "bad env", mutate: func(c *Config) { c.Env = "staging" }, wantErr: "ENV must be"},
		{name: "bad otp mode", mutate: func(c *Config) { c.OTPMode = "random" }, wantErr: "OTP_MODE"},
		{name: "zero ttl", mutate: func(c *Config) { c.LoginTokenTTL = 0 }, wantErr: "TTLs must be positive"},
		{name: "negative session ttl", mutate: func(c *Config) { c.SessionTokenTTL = -time.Second }, wantErr: "SESSION_TOKEN_TTL"},
		{name: "no expiry session", mutate: func(c *Config) { c.SessionTokenTTL = 0 }},
		{name: "trusted proxies", mutate: func(c *Config) { c.TrustedProxies = []string{"10.0.0.1", "172.16.0.0/12"} }},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.TrustedProxies = []string{"lb.internal"} }, wantErr: "TRUSTED_PROXIES"},
		{name: "limiter without window", mutate: func(c *Config) { c.Redis.Addr = "r:6379"; c.RateLimit.Window = 0 }, wantErr: "rate limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadStorage_NeedsOnlyDatabase(t *testing.T) {
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("WS_REGION", "")
	t.Setenv("DATABASE_STRING", "postgres://u:p@db:5432/app")

	c, err := LoadStorage([]string{"-e", "prod"})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db:5432/app", c.DatabaseDSN)
	assert.Equal(t, EnvProd, c.Env)

	t.Setenv("DATABASE_STRING", "")
	_, err = LoadStorage(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_STRING is required")
}
