package gatekeeper

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	TokenCookie  = "admin_token"
	LocaleCookie = "NEXT_LOCALE"

	ContextKeyDecision = "gate_decision"

	localeCookieMaxAge = 365 * 24 * 60 * 60
)

var securityHeaders = map[string]string{
	"X-Frame-Options":        "DENY",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

// SecurityHeaders returns the fixed headers attached to every pass-through response.
func SecurityHeaders() map[string]string {
	out := make(map[string]string, len(securityHeaders))
	for k, v := range securityHeaders {
		out[k] = v
	}
	return out
}

// Observer receives one call per decided request.
type Observer interface {
	ObserveGate(outcome string)
}

type MiddlewareConfig struct {
	Skipper      echomiddleware.Skipper
	Logger       *zap.Logger
	Observer     Observer
	Now          func() time.Time
	SecureCookie bool
}

var skippedPrefixes = []string{"/api/", "/metrics", "/healthz", "/debug/", "/static/", "/favicon.ico"}

// DefaultSkipper leaves non-page traffic alone.
func DefaultSkipper(c echo.Context) bool {
	path := c.Request().URL.Path
	for _, prefix := range skippedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Middleware applies Decide to every request that the skipper lets through.
func (g *Gatekeeper) Middleware(cfg MiddlewareConfig) echo.MiddlewareFunc {
	if cfg.Skipper == nil {
		cfg.Skipper = DefaultSkipper
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Logger.Named("gatekeeper")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			in := Request{
				Path:     req.URL.Path,
				RawQuery: req.URL.RawQuery,
				Token:    cookieValue(req, TokenCookie),
			}
			d := g.Decide(in, cfg.Now())

			if cfg.Observer != nil {
				cfg.Observer.ObserveGate(string(d.Outcome))
			}
			log.Debug("gate decision",
				zap.String("path", in.Path),
				zap.String("outcome", string(d.Outcome)),
				zap.String("kind", string(d.Target.Kind)),
				zap.String("locale", d.Locale),
				zap.Bool("token_present", d.Verdict.Present),
			)

			switch d.Outcome {
			case OutcomeAllow:
				h := c.Response().Header()
				for k, v := range securityHeaders {
					h.Set(k, v)
				}
				c.SetCookie(localeCookie(d.Locale, cfg.SecureCookie))
				c.Set(ContextKeyDecision, d)
				return next(c)
			case OutcomeLocaleRedirect:
				c.SetCookie(localeCookie(d.Locale, cfg.SecureCookie))
			}
			return c.Redirect(http.StatusTemporaryRedirect, d.Location)
		}
	}
}

// GetDecision returns the decision stored for an allowed request.
func GetDecision(c echo.Context) (Decision, bool) {
	d, ok := c.Get(ContextKeyDecision).(Decision)
	return d, ok
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func localeCookie(locale string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     LocaleCookie,
		Value:    locale,
		Path:     "/",
		MaxAge:   localeCookieMaxAge,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
