package handler

import (
	"net/http"
	"strings"
	"time"

	"admin-dashboard/internal/audit"
	"admin-dashboard/internal/gatekeeper"
	"admin-dashboard/internal/ratelimit"
	"admin-dashboard/internal/route"
	"admin-dashboard/internal/token"
	transport "admin-dashboard/internal/transport/echo"
	apperrors "admin-dashboard/pkg/errors"
	"admin-dashboard/pkg/logger"
	"admin-dashboard/pkg/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const landingPath = "/dashboard"

type AuthHandler struct {
	api          AuthAPI
	loginLimiter ratelimit.Store
	otpLimiter   ratelimit.Store
	auditLogger  audit.Recorder
	csrf         CSRFTokenManager
	observer     RateLimitObserver
	secureCookie bool
	logger       *zap.Logger
	now          func() time.Time
}

type AuthDependencies struct {
	API          AuthAPI
	LoginLimiter ratelimit.Store
	OTPLimiter   ratelimit.Store
	AuditLogger  audit.Recorder
	CSRF         CSRFTokenManager
	Observer     RateLimitObserver
	SecureCookie bool
	Logger       *zap.Logger
}

func NewAuthHandler(deps AuthDependencies) *AuthHandler {
	h := &AuthHandler{
		api:          deps.API,
		loginLimiter: deps.LoginLimiter,
		otpLimiter:   deps.OTPLimiter,
		auditLogger:  deps.AuditLogger,
		csrf:         deps.CSRF,
		observer:     deps.Observer,
		secureCookie: deps.SecureCookie,
		logger:       deps.Logger,
		now:          time.Now,
	}
	if h.loginLimiter == nil {
		h.loginLimiter = ratelimit.New(ratelimit.LoginOptions())
	}
	if h.otpLimiter == nil {
		h.otpLimiter = ratelimit.New(ratelimit.OTPOptions())
	}
	if h.auditLogger == nil {
		h.auditLogger = audit.Nop{}
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	h.logger = h.logger.Named("auth")
	return h
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Redirect string `json:"redirect" form:"redirect"`
}

type VerifyOTPRequest struct {
	Email    string `json:"email" form:"email"`
	Code     string `json:"code" form:"code"`
	Redirect string `json:"redirect" form:"redirect"`
}

// LoginPage is the view model of the sign-in screen. The flags mirror the
// query parameters the gatekeeper attaches to its redirects.
type LoginPage struct {
	Locale        string   `json:"locale"`
	Redirect      string   `json:"redirect"`
	Expired       bool     `json:"expired"`
	AdminRequired bool     `json:"admin_required"`
	Locales       []string `json:"locales"`
}

// AuthResponse is returned when a step needs another round trip instead of
// a redirect.
type AuthResponse struct {
	RequiresOTP bool   `json:"requires_otp"`
	Message     string `json:"message,omitempty"`
	Redirect    string `json:"redirect,omitempty"`
}

func (h *AuthHandler) LoginPage(c echo.Context) error {
	q := c.QueryParams()
	return c.JSON(http.StatusOK, LoginPage{
		Locale:        localeOf(c),
		Redirect:      safeRedirect(q.Get(gatekeeper.ParamRedirect)),
		Expired:       q.Get(gatekeeper.ParamExpired) == "true",
		AdminRequired: q.Get(gatekeeper.ParamError) == gatekeeper.ErrorAdminRequired,
		Locales:       route.SupportedLocales(),
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindForm(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Email(req.Email); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	if req.Password == "" {
		return respondError(c, http.StatusBadRequest, msgInvalidCredentials)
	}

	key := ratelimit.IdentifierKey(ratelimit.ScopeLogin, req.Email)
	if err := h.admit(c, h.loginLimiter, ratelimit.ScopeLogin, key, audit.ActionLogin); err != nil {
		return err
	}

	res, err := h.api.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		h.recordFailure(c, audit.ActionLogin, req.Email, err)
		return RespondWithMappedError(c, h.logger, err)
	}

	if res.RequiresOTP || res.Token == "" {
		h.auditLogger.Record(c, audit.Actor{}, audit.ResourceTypeSession, "", audit.ActionLogin, audit.StatusSuccess,
			map[string]any{"email": logger.MaskEmails(req.Email), "second_factor": true})
		msg := res.Message
		if msg == "" {
			msg = msgOTPRequired
		}
		return c.JSON(http.StatusOK, AuthResponse{RequiresOTP: true, Message: msg})
	}

	h.loginLimiter.Reset(key)
	return h.signIn(c, res.Token, req.Redirect, audit.ActionLogin)
}

func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := bindForm(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Code = strings.TrimSpace(req.Code)
	if err := validator.Email(req.Email); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}
	if err := validator.OTP(req.Code); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	key := ratelimit.IdentifierKey(ratelimit.ScopeOTP, req.Email)
	if err := h.admit(c, h.otpLimiter, ratelimit.ScopeOTP, key, audit.ActionVerifyOTP); err != nil {
		return err
	}

	res, err := h.api.VerifyOTP(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		h.recordFailure(c, audit.ActionVerifyOTP, req.Email, err)
		return RespondWithMappedError(c, h.logger, err)
	}
	if res.Token == "" {
		h.recordFailure(c, audit.ActionVerifyOTP, req.Email, apperrors.InvalidOTP())
		return respondError(c, http.StatusUnauthorized, msgInvalidOTP)
	}

	h.otpLimiter.Reset(key)
	h.loginLimiter.Reset(ratelimit.IdentifierKey(ratelimit.ScopeLogin, req.Email))
	return h.signIn(c, res.Token, req.Redirect, audit.ActionVerifyOTP)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(gatekeeper.TokenCookie); err == nil {
		raw = ck.Value
	}

	actor := audit.Actor{}
	if s := transport.GetSubject(c); s != nil {
		actor = audit.Actor{ID: s.UserID, Role: string(s.Role)}
		if h.csrf != nil {
			h.csrf.Revoke(s.UserID)
		}
	}

	if raw != "" {
		if err := h.api.Logout(c.Request().Context(), raw); err != nil {
			// The local cookie is cleared regardless.
			h.logger.Warn("remote logout failed", zap.Error(err))
		}
	}

	c.SetCookie(h.tokenCookie("", time.Unix(0, 0), -1))
	h.auditLogger.Record(c, actor, audit.ResourceTypeSession, actor.ID, audit.ActionLogout, audit.StatusSuccess, nil)

	return c.Redirect(http.StatusSeeOther, route.Localize(localeOf(c), route.LoginPath))
}

// admit consults the attempt limiter for key. A refusal is audited and
// returned as a RateLimitError so the error handler can set Retry-After.
func (h *AuthHandler) admit(c echo.Context, store ratelimit.Store, scope, key string, action audit.Action) error {
	if store.Allow(key) {
		return nil
	}
	wait := store.TimeUntilReset(key)
	if h.observer != nil {
		h.observer.ObserveRateLimited(scope)
	}
	h.auditLogger.Record(c, audit.Actor{}, audit.ResourceTypeSession, "", audit.ActionRateLimited, audit.StatusDenied,
		map[string]any{"scope": scope, "step": string(action), "retry_after_seconds": ratelimit.RetryAfterSeconds(wait)})
	h.logger.Info("attempt rate limited", zap.String("scope", scope), zap.Duration("retry_after", wait))
	return apperrors.RateLimited(wait)
}

func (h *AuthHandler) recordFailure(c echo.Context, action audit.Action, email string, err error) {
	h.auditLogger.Record(c, audit.Actor{}, audit.ResourceTypeSession, "", action, audit.StatusFailure,
		map[string]any{"email": logger.MaskEmails(email), "error": err.Error()})
}

// signIn stores the token cookie and sends the browser to its destination.
func (h *AuthHandler) signIn(c echo.Context, raw, redirect string, action audit.Action) error {
	claims := token.Decode(raw).Claims
	expires, ok := claims.Expiry()
	maxAge := 0
	if ok {
		maxAge = int(expires.Sub(h.now()).Seconds())
	}
	c.SetCookie(h.tokenCookie(raw, expires, maxAge))

	h.auditLogger.Record(c, audit.Actor{ID: claims.Subject(), Role: claims.Role()},
		audit.ResourceTypeSession, claims.Subject(), action, audit.StatusSuccess, nil)

	target := route.Localize(localeOf(c), landingPath)
	if r := safeRedirect(redirect); r != "" {
		target = route.Localize(localeOf(c), r)
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func (h *AuthHandler) tokenCookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     gatekeeper.TokenCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// safeRedirect returns a locale-free local path, or "" when r is unusable.
func safeRedirect(r string) string {
	if r == "" {
		return ""
	}
	if validator.RedirectPath(r) != nil {
		return ""
	}
	if locale, ok := route.DetectLocale(r); ok {
		r = route.StripLocale(r, locale)
	}
	if route.Classify(r) == route.KindAuth {
		return ""
	}
	return r
}

func localeOf(c echo.Context) string {
	if l := c.Param("locale"); route.IsSupportedLocale(l) {
		return l
	}
	return route.DefaultLocale
}
