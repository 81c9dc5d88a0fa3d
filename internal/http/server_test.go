package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admin-dashboard/internal/client"
	"admin-dashboard/internal/config"
	"admin-dashboard/internal/gatekeeper"
	"admin-dashboard/internal/http/middleware"
	"admin-dashboard/internal/policy"
	"admin-dashboard/internal/ratelimit"
	"admin-dashboard/internal/rbac"
	"admin-dashboard/internal/rbac/presets"
	transport "admin-dashboard/internal/transport/echo"
	apperrors "admin-dashboard/pkg/errors"
	"admin-dashboard/pkg/metrics"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mint(t *testing.T, claims map[string]any) string {
	t.Helper()
	b, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." + enc.EncodeToString(b) + ".sig"
}

type stubAPI struct {
	resolved []string
}

func (s *stubAPI) Login(context.Context, string, string) (*client.AuthResult, error) {
	return nil, apperrors.InvalidCredentials()
}

func (s *stubAPI) VerifyOTP(context.Context, string, string) (*client.AuthResult, error) {
	return nil, apperrors.InvalidOTP()
}

func (s *stubAPI) Logout(context.Context, string) error { return nil }

func (s *stubAPI) ListUsers(context.Context, string, client.ListParams) (*client.Page[client.User], error) {
	return &client.Page[client.User]{}, nil
}

func (s *stubAPI) ListProducts(context.Context, string, client.ListParams) (*client.Page[client.Product], error) {
	return &client.Page[client.Product]{}, nil
}

func (s *stubAPI) ListAllergies(context.Context, string, client.ListParams) (*client.Page[client.Allergy], error) {
	return &client.Page[client.Allergy]{}, nil
}

func (s *stubAPI) ListReports(context.Context, string, client.ListParams) (*client.Page[client.Report], error) {
	return &client.Page[client.Report]{Items: []client.Report{{ID: "r-1"}}, Total: 1}, nil
}

func (s *stubAPI) Analytics(context.Context, string) (*client.Analytics, error) {
	return &client.Analytics{TotalUsers: 7}, nil
}

func (s *stubAPI) ResolveReport(_ context.Context, _, id, _ string) error {
	s.resolved = append(s.resolved, id)
	return nil
}

func (s *stubAPI) UpdateUserRole(context.Context, string, string, string) error { return nil }

type testServer struct {
	srv  *Server
	api  *stubAPI
	csrf *middleware.CSRFMiddleware
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return now }
	api := &stubAPI{}
	checker := rbac.MustNew(presets.Dashboard())
	csrf := middleware.NewCSRFMiddleware(context.Background(), transport.SubjectID)
	t.Cleanup(csrf.Stop)

	srv := NewServer(&ServerDependencies{
		Config: &config.Config{
			Gate: config.GateConfig{SecureCookies: false},
		},
		Metrics:       metrics.New(),
		Evaluator:     policy.NewEvaluator(nil),
		Checker:       checker,
		API:           api,
		LoginLimiter:  ratelimit.New(ratelimit.Options{MaxAttempts: 1, Window: 15 * time.Minute, Now: clock}),
		OTPLimiter:    ratelimit.New(ratelimit.Options{MaxAttempts: 1, Window: 5 * time.Minute, Now: clock}),
		GlobalLimiter: middleware.NewRateLimiter(1000, 1000),
		CSRF:          csrf,
		Now:           clock,
	})
	return &testServer{srv: srv, api: api, csrf: csrf}
}

func (ts *testServer) do(method, target, body, tok string, headers map[string]string) *httptest.ResponseRecorder {
	var req *stdhttp.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if tok != "" {
		req.AddCookie(&stdhttp.Cookie{Name: gatekeeper.TokenCookie, Value: tok})
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(stdhttp.MethodGet, "/healthz", "", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestServer_GateRedirects(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(stdhttp.MethodGet, "/", "", "", nil)
	assert.Equal(t, stdhttp.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/ar", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(stdhttp.MethodGet, "/en/dashboard", "", "", nil)
	assert.Equal(t, stdhttp.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/en/auth/login?redirect=%2Fdashboard", rec.Header().Get(echo.HeaderLocation))

	user := mint(t, map[string]any{"exp": now.Add(time.Hour).Unix(), "role": "user"})
	rec = ts.do(stdhttp.MethodGet, "/en/users", "", user, nil)
	assert.Equal(t, "/en/auth/login?redirect=%2Fusers&error=admin_required", rec.Header().Get(echo.HeaderLocation))

	rec = ts.do(stdhttp.MethodGet, "/en", "", "", nil)
	assert.Equal(t, stdhttp.StatusSeeOther, rec.Code)
	assert.Equal(t, "/en/dashboard", rec.Header().Get(echo.HeaderLocation))
}

func TestServer_Dashboard(t *testing.T) {
	ts := newTestServer(t)
	admin := mint(t, map[string]any{
		"exp":         now.Add(time.Hour).Unix(),
		"sub":         "u-1",
		"role":        "admin",
		"permissions": []string{"admin.access"},
	})

	rec := ts.do(stdhttp.MethodGet, "/en/dashboard", "", admin, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	for k, v := range gatekeeper.SecurityHeaders() {
		assert.Equal(t, v, rec.Header().Get(k), k)
	}
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))

	var page struct {
		Viewer struct {
			ID      string `json:"id"`
			IsAdmin bool   `json:"is_admin"`
		} `json:"viewer"`
		Analytics *client.Analytics `json:"analytics"`
		CSRFToken string            `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "u-1", page.Viewer.ID)
	assert.True(t, page.Viewer.IsAdmin)
	require.NotNil(t, page.Analytics)
	assert.Equal(t, 7, page.Analytics.TotalUsers)
	assert.NotEmpty(t, page.CSRFToken)
}

func TestServer_AdminRoleWithoutPermissions(t *testing.T) {
	ts := newTestServer(t)
	bare := mint(t, map[string]any{"exp": now.Add(time.Hour).Unix(), "sub": "u-1", "role": "admin"})

	// The edge lets the role through; the in-app checks still fail closed.
	rec := ts.do(stdhttp.MethodGet, "/en/dashboard", "", bare, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
}

func TestServer_ReportsNeedPermission(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(stdhttp.MethodGet, "/en/reports", "", "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	viewer := mint(t, map[string]any{"exp": now.Add(time.Hour).Unix(), "sub": "m-1", "role": "moderator", "permissions": []string{"products.view"}})
	rec = ts.do(stdhttp.MethodGet, "/en/reports", "", viewer, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	reporter := mint(t, map[string]any{"exp": now.Add(time.Hour).Unix(), "sub": "m-2", "role": "moderator", "permissions": []string{"reports.view"}})
	rec = ts.do(stdhttp.MethodGet, "/en/reports", "", reporter, nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r-1"`)
}

func TestServer_AuditTrail(t *testing.T) {
	ts := newTestServer(t)
	exp := now.Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims map[string]any
		want   int
	}{
		{"anonymous", nil, stdhttp.StatusUnauthorized},
		{"user holding admin access", map[string]any{"exp": exp, "sub": "u-1", "role": "user", "permissions": []string{"admin.access"}}, stdhttp.StatusForbidden},
		{"moderator without admin access", map[string]any{"exp": exp, "sub": "m-1", "role": "moderator", "permissions": []string{"reports.view"}}, stdhttp.StatusForbidden},
		{"admin without permissions", map[string]any{"exp": exp, "sub": "a-0", "role": "admin"}, stdhttp.StatusForbidden},
		{"moderator with admin access", map[string]any{"exp": exp, "sub": "m-2", "role": "moderator", "permissions": []string{"admin.access"}}, stdhttp.StatusOK},
		{"admin", map[string]any{"exp": exp, "sub": "a-1", "role": "admin", "permissions": []string{"admin.access"}}, stdhttp.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := ""
			if tt.claims != nil {
				tok = mint(t, tt.claims)
			}
			rec := ts.do(stdhttp.MethodGet, "/en/audit", "", tok, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want == stdhttp.StatusOK {
				var env transport.SuccessResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
				assert.Equal(t, "Success", env.Status)
				assert.Equal(t, stdhttp.StatusOK, env.ResponseCode)
			}
		})
	}
}

func TestServer_ResolveReport(t *testing.T) {
	ts := newTestServer(t)
	mod := mint(t, map[string]any{"exp": now.Add(time.Hour).Unix(), "sub": "m-1", "role": "moderator", "permissions": []string{"reports.view", "reports.resolve"}})
	viewer := mint(t, map[string]any{"exp": now.Add(time.Hour).Unix(), "sub": "m-2", "role": "moderator", "permissions": []string{"reports.view"}})

	csrfTok, err := ts.csrf.GetOrCreateToken("m-2")
	require.NoError(t, err)
	rec := ts.do(stdhttp.MethodPost, "/en/reports/r-1/resolve", `{"note":"done"}`, viewer,
		map[string]string{middleware.CSRFHeaderName: csrfTok})
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = ts.do(stdhttp.MethodPost, "/en/reports/r-1/resolve", `{"note":"done"}`, mod, nil)
	assert.Equal(t, stdhttp.StatusForbidden, rec.Code, "missing csrf token")

	csrfTok, err = ts.csrf.GetOrCreateToken("m-1")
	require.NoError(t, err)
	rec = ts.do(stdhttp.MethodPost, "/en/reports/r-1/resolve", `{"note":"done"}`, mod,
		map[string]string{middleware.CSRFHeaderName: csrfTok})
	assert.Equal(t, stdhttp.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"r-1"}, ts.api.resolved)
}

func TestServer_LoginRateLimited(t *testing.T) {
	ts := newTestServer(t)
	body := `{"email":"a@example.com","password":"hunter22"}`

	rec := ts.do(stdhttp.MethodPost, "/en/auth/login", body, "", nil)
	assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = ts.do(stdhttp.MethodPost, "/en/auth/login", body, "", nil)
	assert.Equal(t, stdhttp.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "900", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "15 minutes")

	rec = ts.do(stdhttp.MethodGet, "/metrics", "", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `scope="login"`)
}

func TestServer_NotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(stdhttp.MethodGet, "/en/nowhere", "", "", nil)
	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_id")
}
