package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"admin-dashboard/internal/audit"
	"admin-dashboard/internal/client"
	"admin-dashboard/internal/rbac"

	"github.com/labstack/echo/v4"
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

type recordedEvent struct {
	Actor        audit.Actor
	ResourceType audit.ResourceType
	ResourceID   string
	Action       audit.Action
	Status       audit.Status
	Metadata     map[string]any
}

type recordingAudit struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingAudit) Record(_ echo.Context, actor audit.Actor, rt audit.ResourceType, id string, action audit.Action, status audit.Status, md map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{actor, rt, id, action, status, md})
}

func (r *recordingAudit) last() recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return recordedEvent{}
	}
	return r.events[len(r.events)-1]
}

type fakeCSRF struct {
	issued  map[string]string
	revoked []string
}

func newFakeCSRF() *fakeCSRF {
	return &fakeCSRF{issued: map[string]string{}}
}

func (f *fakeCSRF) GetOrCreateToken(userID string) (string, error) {
	if tok, ok := f.issued[userID]; ok {
		return tok, nil
	}
	f.issued[userID] = "csrf-" + userID
	return f.issued[userID], nil
}

func (f *fakeCSRF) Revoke(userID string) {
	f.revoked = append(f.revoked, userID)
}

type fakeAPI struct {
	loginResult  *client.AuthResult
	loginErr     error
	otpResult    *client.AuthResult
	otpErr       error
	logoutTokens []string

	users         *client.Page[client.User]
	reports       *client.Page[client.Report]
	analytics     *client.Analytics
	analyticsErr  error
	listErr       error
	lastParams    client.ListParams
	lastToken     string
	resolved      map[string]string
	resolveErr    error
	roles         map[string]string
	analyticsHits int
}

func (f *fakeAPI) Login(_ context.Context, _, _ string) (*client.AuthResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAPI) VerifyOTP(_ context.Context, _, _ string) (*client.AuthResult, error) {
	return f.otpResult, f.otpErr
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.logoutTokens = append(f.logoutTokens, token)
	return nil
}

func (f *fakeAPI) ListUsers(_ context.Context, token string, p client.ListParams) (*client.Page[client.User], error) {
	f.lastToken, f.lastParams = token, p
	return f.users, f.listErr
}

func (f *fakeAPI) ListProducts(_ context.Context, token string, p client.ListParams) (*client.Page[client.Product], error) {
	f.lastToken, f.lastParams = token, p
	return &client.Page[client.Product]{}, f.listErr
}

func (f *fakeAPI) ListAllergies(_ context.Context, token string, p client.ListParams) (*client.Page[client.Allergy], error) {
	f.lastToken, f.lastParams = token, p
	return &client.Page[client.Allergy]{}, f.listErr
}

func (f *fakeAPI) ListReports(_ context.Context, token string, p client.ListParams) (*client.Page[client.Report], error) {
	f.lastToken, f.lastParams = token, p
	return f.reports, f.listErr
}

func (f *fakeAPI) Analytics(_ context.Context, token string) (*client.Analytics, error) {
	f.analyticsHits++
	f.lastToken = token
	return f.analytics, f.analyticsErr
}

func (f *fakeAPI) ResolveReport(_ context.Context, _, id, note string) error {
	if f.resolveErr != nil {
		return f.resolveErr
	}
	if f.resolved == nil {
		f.resolved = map[string]string{}
	}
	f.resolved[id] = note
	return nil
}

func (f *fakeAPI) UpdateUserRole(_ context.Context, _, id, role string) error {
	if f.roles == nil {
		f.roles = map[string]string{}
	}
	f.roles[id] = role
	return nil
}

// newContext builds a request context with path params already bound, the
// way echo's router would leave it.
func newContext(method, target, body string, params map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		names := make([]string, 0, len(params))
		values := make([]string, 0, len(params))
		for k, v := range params {
			names = append(names, k)
			values = append(values, v)
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func subjectWith(role rbac.Role, perms ...rbac.Permission) *rbac.Subject {
	return &rbac.Subject{UserID: "me", Role: role, Permissions: perms}
}
