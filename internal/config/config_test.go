package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envAPIBaseURL, "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, defaultServerPort, cfg.Server.Port)
	assert.Equal(t, 5, cfg.RateLimit.LoginMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.LoginWindow)
	assert.Equal(t, 3, cfg.RateLimit.OTPMaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.OTPWindow)
	assert.True(t, cfg.Gate.SecureCookies)
	assert.False(t, cfg.Gate.VerifiesSignatures())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Database.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envAPIBaseURL, "http://localhost:8000")
	t.Setenv(envLoginWindow, "30")
	t.Setenv(envOTPWindow, "90s")
	t.Setenv(envGateSecureCookies, "false")
	t.Setenv(envRedisAddr, "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.RateLimit.LoginWindow)
	assert.Equal(t, 90*time.Second, cfg.RateLimit.OTPWindow)
	assert.False(t, cfg.Gate.SecureCookies)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadWithoutAPIBaseURL(t *testing.T) {
	t.Setenv(envAPIBaseURL, "")
	cfg, err := Load()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required environment variable API_BASE_URL is not set")
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv(envAPIBaseURL, "https://api.example.com")
	t.Setenv(envLoginMaxAttempts, "five")
	t.Setenv(envOTPWindow, "soon")
	t.Setenv(envGateSecureCookies, "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultLoginMaxAttempts, cfg.RateLimit.LoginMaxAttempts)
	assert.Equal(t, defaultOTPWindow, cfg.RateLimit.OTPWindow)
	assert.True(t, cfg.Gate.SecureCookies)
	assert.Len(t, cfg.Warnings, 3)
	assert.Contains(t, cfg.Warnings[0], envGateSecureCookies)
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "3000"},
		API:    APIConfig{BaseURL: "https://api.example.com", Timeout: time.Second},
		RateLimit: RateLimitConfig{
			LoginMaxAttempts: 5, LoginWindow: time.Minute,
			OTPMaxAttempts: 3, OTPWindow: time.Minute,
			GlobalRPS: 1, GlobalBurst: 1,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing port", func(c *Config) { c.Server.Port = "" }, "PORT"},
		{"relative api url", func(c *Config) { c.API.BaseURL = "/api" }, "API_BASE_URL"},
		{"ftp api url", func(c *Config) { c.API.BaseURL = "ftp://api.example.com" }, "API_BASE_URL"},
		{"zero attempts", func(c *Config) { c.RateLimit.LoginMaxAttempts = 0 }, envLoginMaxAttempts},
		{"zero otp window", func(c *Config) { c.RateLimit.OTPWindow = 0 }, envOTPWindow},
		{"db without password", func(c *Config) { c.Database.Host = "db" }, "DB_PASSWORD"},
		{"short secret", func(c *Config) { c.Gate.JWTSecret = "short" }, "at least"},
		{"low entropy secret", func(c *Config) { c.Gate.JWTSecret = strings.Repeat("ab", 20) }, "entropy"},
		{"good secret", func(c *Config) { c.Gate.JWTSecret = "q8Zr2LmX5vT0pNc7YwK3sDf9GhJ4aB1e" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
