package echo

import (
	"net/http"

	"admin-dashboard/internal/rbac"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Guard builds permission middleware for one Checker.
type Guard struct {
	checker *rbac.Checker
	logger  *zap.Logger
}

func NewGuard(checker *rbac.Checker, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{checker: checker, logger: logger.Named("rbac")}
}

func (g *Guard) deny(c echo.Context, subject *rbac.Subject, reason string, err error) error {
	if subject == nil {
		g.logger.Debug("rbac: no subject", zap.String("path", c.Path()))
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	}
	g.logger.Info("rbac: "+reason,
		zap.String("path", c.Path()),
		zap.String("user_id", subject.UserID),
		zap.String("role", string(subject.Role)),
		zap.Error(err))
	return c.JSON(http.StatusForbidden, map[string]string{
		"error": "Forbidden",
	})
}

// RequirePermission creates middleware that enforces a single permission.
// The admin role passes without holding it.
func (g *Guard) RequirePermission(required rbac.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := GetSubject(c)
			if g.checker.IsAdmin(subject) {
				return next(c)
			}
			if err := g.checker.Require(subject, required); err != nil {
				return g.deny(c, subject, "permission denied", err)
			}
			return next(c)
		}
	}
}

// RequireAnyPermission lets through subjects holding at least one of required
func (g *Guard) RequireAnyPermission(required ...rbac.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := GetSubject(c)
			if !g.checker.IsAdmin(subject) && !g.checker.HasAnyPermission(subject, required...) {
				return g.deny(c, subject, "no matching permission", rbac.ErrDenied)
			}
			return next(c)
		}
	}
}

// RequireRole creates middleware that enforces a minimum role requirement
func (g *Guard) RequireRole(minRole rbac.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := GetSubject(c)
			if err := g.checker.RequireRole(subject, minRole); err != nil {
				return g.deny(c, subject, "role check denied", err)
			}
			return next(c)
		}
	}
}

// RequireAdminCapable mirrors the edge check inside the application.
func (g *Guard) RequireAdminCapable() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject := GetSubject(c)
			if !g.checker.IsAdminCapable(subject) {
				return g.deny(c, subject, "admin capability required", rbac.ErrDenied)
			}
			return next(c)
		}
	}
}
