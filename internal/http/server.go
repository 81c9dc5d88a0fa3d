package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"admin-dashboard/internal/audit"
	"admin-dashboard/internal/config"
	"admin-dashboard/internal/gatekeeper"
	"admin-dashboard/internal/http/handler"
	"admin-dashboard/internal/http/middleware"
	"admin-dashboard/internal/policy"
	"admin-dashboard/internal/ratelimit"
	"admin-dashboard/internal/rbac"
	"admin-dashboard/internal/rbac/presets"
	"admin-dashboard/internal/route"
	transport "admin-dashboard/internal/transport/echo"
	"admin-dashboard/pkg/metrics"
	"admin-dashboard/pkg/profiling"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	statusOK         = "ok"
	requestBodyLimit = "1M"
)

// DashboardAPI is everything the handlers need from the remote API.
type DashboardAPI interface {
	handler.AuthAPI
	handler.AdminAPI
	handler.ModerationAPI
}

type ServerDependencies struct {
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Evaluator     *policy.Evaluator
	Checker       *rbac.Checker
	API           DashboardAPI
	LoginLimiter  ratelimit.Store
	OTPLimiter    ratelimit.Store
	GlobalLimiter *middleware.RateLimiter
	AuditLogger   audit.Recorder
	AuditReader   audit.Reader
	CSRF          *middleware.CSRFMiddleware
	Now           func() time.Time
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if deps.AuditLogger == nil {
		deps.AuditLogger = audit.Nop{}
	}
	if deps.AuditReader == nil {
		deps.AuditReader = audit.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg := deps.Config

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewErrorHandler(deps.Logger.Named("http"))

	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	// Request ID first, so all logs carry it.
	e.Use(middleware.RequestID())
	e.Use(middleware.ZapLogger(deps.Logger.Named("access")))
	e.Use(deps.Metrics.Middleware())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.BodyLimit(requestBodyLimit))
	if deps.GlobalLimiter != nil {
		e.Use(deps.GlobalLimiter.Middleware())
	}
	e.Use(middleware.SecurityHeaders(cfg.Gate.SecureCookies))

	gate := gatekeeper.New(deps.Evaluator)
	e.Use(gate.Middleware(gatekeeper.MiddlewareConfig{
		Logger:       deps.Logger,
		Observer:     deps.Metrics,
		Now:          deps.Now,
		SecureCookie: cfg.Gate.SecureCookies,
	}))

	resolver := transport.NewSubjectResolver(deps.Checker, deps.Evaluator, deps.Now)
	e.Use(resolver.Middleware())
	if deps.CSRF != nil {
		e.Use(deps.CSRF.Middleware())
	}

	guard := transport.NewGuard(deps.Checker, deps.Logger)

	var csrf handler.CSRFTokenManager
	if deps.CSRF != nil {
		csrf = deps.CSRF
	}
	authHandler := handler.NewAuthHandler(handler.AuthDependencies{
		API:          deps.API,
		LoginLimiter: deps.LoginLimiter,
		OTPLimiter:   deps.OTPLimiter,
		AuditLogger:  deps.AuditLogger,
		CSRF:         csrf,
		Observer:     deps.Metrics,
		SecureCookie: cfg.Gate.SecureCookies,
		Logger:       deps.Logger,
	})
	pageHandler := handler.NewPageHandler(deps.API, deps.Checker, csrf, deps.Logger)
	moderationHandler := handler.NewModerationHandler(deps.API, deps.Checker, deps.AuditLogger, deps.Logger)
	auditHandler := handler.NewAuditHandler(deps.AuditReader, deps.Logger)

	e.GET("/healthz", healthCheck(cfg.App.EnableProfiling))
	deps.Metrics.RegisterRoute(e)
	if cfg.App.EnableProfiling {
		profiling.RegisterPprofRoutes(e)
	}

	e.GET("/:locale", landing)

	loc := e.Group("/:locale")
	loc.GET("/auth/login", authHandler.LoginPage)
	loc.POST("/auth/login", authHandler.Login)
	loc.POST("/auth/verify-otp", authHandler.VerifyOTP)
	loc.POST("/auth/logout", authHandler.Logout)

	loc.GET("/dashboard", pageHandler.Dashboard, guard.RequireAdminCapable())
	loc.GET("/dashboard/analytics", pageHandler.Analytics, guard.RequirePermission(presets.PermissionAnalytics))
	loc.GET("/users", pageHandler.Users,
		guard.RequireAnyPermission(presets.PermissionUsersView, presets.PermissionManageRoles))
	loc.GET("/products", pageHandler.Products,
		guard.RequireAnyPermission(presets.PermissionProductsView, presets.PermissionProductsMod))
	loc.GET("/allergies", pageHandler.Allergies,
		guard.RequireAnyPermission(presets.PermissionAllergyView, presets.PermissionAllergyMod))
	loc.GET("/reports", pageHandler.Reports,
		guard.RequireAnyPermission(presets.PermissionReportsView, presets.PermissionReportsMod))

	loc.POST("/reports/:id/resolve", moderationHandler.ResolveReport, guard.RequirePermission(presets.PermissionReportsMod))
	loc.PUT("/users/:id/role", moderationHandler.UpdateUserRole, guard.RequirePermission(presets.PermissionManageRoles))

	// The trail is staff-only: plain users never see it, whatever they hold.
	loc.GET("/audit", auditHandler.List,
		guard.RequireRole(presets.RoleModerator), guard.RequirePermission(presets.PermissionAdminAccess))

	return &Server{
		echo: e,
		deps: deps,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type healthResponse struct {
	Status string                 `json:"status"`
	Memory *profiling.MemoryStats `json:"memory,omitempty"`
}

func healthCheck(withMemory bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		resp := healthResponse{Status: statusOK}
		if withMemory {
			m := profiling.GetMemoryStats()
			resp.Memory = &m
		}
		return c.JSON(stdhttp.StatusOK, resp)
	}
}

func landing(c echo.Context) error {
	locale := c.Param("locale")
	if !route.IsSupportedLocale(locale) {
		return echo.ErrNotFound
	}
	return c.Redirect(stdhttp.StatusSeeOther, route.Localize(locale, route.DashboardPath))
}
