package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"admin-dashboard/internal/config"
	"admin-dashboard/internal/http"
	"admin-dashboard/internal/http/middleware"
	"admin-dashboard/internal/ratelimit"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	serverAddrPrefix = ":"
	visitorIdleTTL   = 10 * time.Minute
)

// Service represents the dashboard gateway and its background tasks
type Service struct {
	config        *config.Config
	logger        *zap.Logger
	server        *http.Server
	csrf          *middleware.CSRFMiddleware
	globalLimiter *middleware.RateLimiter
	sweepers      []*ratelimit.Limiter
	redis         *goredis.Client
	db            *pgxpool.Pool
	background    context.Context
	cancel        context.CancelFunc
}

// Start starts the background sweepers and blocks serving HTTP until the
// server is shut down.
func (s *Service) Start() error {
	interval := s.config.RateLimit.SweepInterval
	for _, l := range s.sweepers {
		go l.Run(s.background, interval)
	}
	go s.sweepVisitors(interval)

	s.logger.Info("starting admin dashboard gateway", zap.String("port", s.config.Server.Port))
	err := s.server.Start(serverAddrPrefix + s.config.Server.Port)
	if errors.Is(err, stdhttp.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) sweepVisitors(interval time.Duration) {
	if interval <= 0 {
		interval = visitorIdleTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.background.Done():
			return
		case <-ticker.C:
			if n := s.globalLimiter.Sweep(visitorIdleTTL); n > 0 {
				s.logger.Debug("swept idle visitors", zap.Int("count", n))
			}
		}
	}
}

// Shutdown gracefully shuts down the server, then stops background work and
// closes connections.
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	s.csrf.Stop()
	s.cancel()
	s.closeStores()
	return err
}

func (s *Service) closeStores() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis", zap.Error(err))
		}
	}
	if s.db != nil {
		s.db.Close()
	}
}
