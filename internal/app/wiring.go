package app

import (
	"context"
	"fmt"

	"admin-dashboard/internal/audit"
	"admin-dashboard/internal/client"
	"admin-dashboard/internal/config"
	"admin-dashboard/internal/http"
	"admin-dashboard/internal/http/middleware"
	"admin-dashboard/internal/infra/cache"
	"admin-dashboard/internal/infra/postgres"
	"admin-dashboard/internal/infra/redis"
	"admin-dashboard/internal/policy"
	"admin-dashboard/internal/ratelimit"
	"admin-dashboard/internal/rbac"
	"admin-dashboard/internal/rbac/presets"
	"admin-dashboard/internal/token"
	transport "admin-dashboard/internal/transport/echo"
	"admin-dashboard/pkg/metrics"

	"go.uber.org/zap"
)

// InitializeService wires up all dependencies and returns a configured
// Service. Redis and Postgres are optional; without them the limiters stay
// in memory and audit events are dropped.
func InitializeService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Service, error) {
	s := &Service{config: cfg, logger: log}
	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	m := metrics.New()

	var decoder token.Decoder
	if cfg.Gate.VerifiesSignatures() {
		decoder = token.NewHMACVerifier(cfg.Gate.JWTSecret)
		log.Info("admin token signatures are verified")
	} else {
		log.Warn("GATE_JWT_SECRET not set: admin tokens are decoded without signature verification; " +
			"route gating is a UI convenience and the remote API remains the authority")
	}
	evaluator := policy.NewEvaluator(decoder)

	checker := rbac.MustNew(presets.Dashboard())

	loginOpts := ratelimit.Options{
		MaxAttempts: cfg.RateLimit.LoginMaxAttempts,
		Window:      cfg.RateLimit.LoginWindow,
		Capacity:    cfg.RateLimit.Capacity,
	}
	otpOpts := ratelimit.Options{
		MaxAttempts: cfg.RateLimit.OTPMaxAttempts,
		Window:      cfg.RateLimit.OTPWindow,
		Capacity:    cfg.RateLimit.Capacity,
	}
	loginMem := ratelimit.New(loginOpts)
	otpMem := ratelimit.New(otpOpts)
	s.sweepers = []*ratelimit.Limiter{loginMem, otpMem}

	var loginStore, otpStore ratelimit.Store = loginMem, otpMem
	if cfg.Redis.Enabled() {
		rdb, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redis = rdb
		login := ratelimit.NewRedis(rdb, loginOpts, log)
		login.Fallback = loginMem
		otp := ratelimit.NewRedis(rdb, otpOpts, log)
		otp.Fallback = otpMem
		loginStore, otpStore = login, otp
		log.Info("attempt limiter backed by redis", zap.String("addr", cfg.Redis.Addr))
	}

	var recorder audit.Recorder = audit.Nop{}
	var reader audit.Reader = audit.Nop{}
	if cfg.Database.Enabled() {
		pool, err := postgres.New(ctx, &cfg.Database)
		if err != nil {
			s.closeStores()
			cancel()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = pool
		trail := audit.NewLogger(pool, log, m)
		recorder, reader = trail, trail
		log.Info("audit trail enabled")
	}

	api, err := client.New(cfg.API.BaseURL, cfg.API.Timeout, log,
		client.WithObserver(m),
		client.WithCache(cache.NewResponseCache()))
	if err != nil {
		s.closeStores()
		cancel()
		return nil, err
	}

	s.csrf = middleware.NewCSRFMiddleware(bg, transport.SubjectID)
	s.globalLimiter = middleware.NewRateLimiter(float64(cfg.RateLimit.GlobalRPS), cfg.RateLimit.GlobalBurst)
	s.background = bg

	s.server = http.NewServer(&http.ServerDependencies{
		Config:        cfg,
		Logger:        log,
		Metrics:       m,
		Evaluator:     evaluator,
		Checker:       checker,
		API:           api,
		LoginLimiter:  loginStore,
		OTPLimiter:    otpStore,
		GlobalLimiter: s.globalLimiter,
		AuditLogger:   recorder,
		AuditReader:   reader,
		CSRF:          s.csrf,
	})

	return s, nil
}
