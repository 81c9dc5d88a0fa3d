package app

import (
	"context"
	"testing"
	"time"

	"admin-dashboard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "0", ShutdownTimeout: time.Second},
		API:    config.APIConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		Gate:   config.GateConfig{SecureCookies: true},
		RateLimit: config.RateLimitConfig{
			LoginMaxAttempts: 5,
			LoginWindow:      15 * time.Minute,
			OTPMaxAttempts:   3,
			OTPWindow:        5 * time.Minute,
			Capacity:         100,
			SweepInterval:    time.Minute,
			GlobalRPS:        10,
			GlobalBurst:      20,
		},
	}
}

func TestInitializeService_InMemory(t *testing.T) {
	s, err := InitializeService(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)

	assert.Nil(t, s.redis)
	assert.Nil(t, s.db)
	assert.Len(t, s.sweepers, 2)
	require.NotNil(t, s.server)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
	assert.Error(t, s.background.Err())
}

func TestInitializeService_BadAPIURL(t *testing.T) {
	cfg := testConfig()
	cfg.API.BaseURL = "::not a url"
	_, err := InitializeService(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestInitializeService_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := InitializeService(ctx, cfg, zap.NewNop())
	assert.Error(t, err)
}
