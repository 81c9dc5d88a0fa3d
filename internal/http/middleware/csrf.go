package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	csrfTokenLength = 32
	csrfTokenTTL    = 24 * time.Hour
	CSRFHeaderName  = "X-CSRF-Token"
	CSRFFormField   = "csrf_token"
	cleanupInterval = 1 * time.Hour
)

// CSRFToken represents a CSRF token with expiry
type CSRFToken struct {
	Token     string
	ExpiresAt time.Time
}

// SubjectIDFunc returns the authenticated user ID of the request, or "".
type SubjectIDFunc func(c echo.Context) string

// CSRFMiddleware issues one token per signed-in user and checks it on
// state-changing requests.
type CSRFMiddleware struct {
	tokens    sync.Map // userID -> *CSRFToken
	subjectID SubjectIDFunc
	now       func() time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   chan struct{}
}

// NewCSRFMiddleware creates a new CSRF middleware with background cleanup
func NewCSRFMiddleware(ctx context.Context, subjectID SubjectIDFunc) *CSRFMiddleware {
	cleanupCtx, cancel := context.WithCancel(ctx)
	m := &CSRFMiddleware{
		subjectID: subjectID,
		now:       time.Now,
		ctx:       cleanupCtx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}

	go m.cleanupLoop()

	return m
}

// Stop gracefully stops the cleanup goroutine
func (m *CSRFMiddleware) Stop() {
	m.cancel()
	<-m.stopped
}

func (m *CSRFMiddleware) cleanupLoop() {
	defer close(m.stopped)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpiredTokens()
		}
	}
}

func generateToken() (string, error) {
	bytes := make([]byte, csrfTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}

// GetOrCreateToken gets or creates a CSRF token for a user
func (m *CSRFMiddleware) GetOrCreateToken(userID string) (string, error) {
	if tokenRaw, exists := m.tokens.Load(userID); exists {
		if csrfToken, ok := tokenRaw.(*CSRFToken); ok {
			if m.now().Before(csrfToken.ExpiresAt) {
				return csrfToken.Token, nil
			}
		}
	}

	token, err := generateToken()
	if err != nil {
		return "", err
	}

	m.tokens.Store(userID, &CSRFToken{
		Token:     token,
		ExpiresAt: m.now().Add(csrfTokenTTL),
	})
	return token, nil
}

// Revoke forgets the token of userID, used on logout.
func (m *CSRFMiddleware) Revoke(userID string) {
	m.tokens.Delete(userID)
}

// Middleware returns an Echo middleware function for CSRF protection
func (m *CSRFMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			method := c.Request().Method
			if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
				return next(c)
			}

			// Unauthenticated forms (login, OTP) carry no session to ride on.
			userID := m.subjectID(c)
			if userID == "" {
				return next(c)
			}

			tokenRaw, exists := m.tokens.Load(userID)
			if !exists {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "CSRF token not found",
				})
			}

			csrfToken, ok := tokenRaw.(*CSRFToken)
			if !ok || m.now().After(csrfToken.ExpiresAt) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "CSRF token expired",
				})
			}

			providedToken := c.Request().Header.Get(CSRFHeaderName)
			if providedToken == "" {
				providedToken = c.FormValue(CSRFFormField)
			}
			if providedToken == "" {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "CSRF token required",
				})
			}

			if subtle.ConstantTimeCompare([]byte(providedToken), []byte(csrfToken.Token)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "invalid CSRF token",
				})
			}

			return next(c)
		}
	}
}

// CleanupExpiredTokens removes expired tokens (called by background goroutine)
func (m *CSRFMiddleware) CleanupExpiredTokens() {
	now := m.now()
	m.tokens.Range(func(key, value any) bool {
		if csrfToken, ok := value.(*CSRFToken); ok {
			if now.After(csrfToken.ExpiresAt) {
				m.tokens.Delete(key)
			}
		}
		return true
	})
}
