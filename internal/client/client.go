package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"admin-dashboard/internal/infra/cache"
	apperrors "admin-dashboard/pkg/errors"
	"admin-dashboard/pkg/logger"

	"go.uber.org/zap"
)

const (
	maxResponseBytes = 4 << 20
	analyticsTTL     = 30 * time.Second
	analyticsKey     = "analytics"

	opLogin          = "login"
	opVerifyOTP      = "verify_otp"
	opLogout         = "logout"
	opListUsers      = "list_users"
	opListProducts   = "list_products"
	opListAllergies  = "list_allergies"
	opListReports    = "list_reports"
	opAnalytics      = "analytics"
	opResolveReport  = "resolve_report"
	opUpdateUserRole = "update_user_role"
)

// ErrorObserver is told about every failed upstream call.
type ErrorObserver interface {
	ObserveUpstreamError(operation string)
}

// Client talks to the remote REST API that owns all dashboard data. Calls
// made on behalf of a signed-in user forward that user's token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	observer   ErrorObserver
	cache      *cache.ResponseCache
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithObserver(o ErrorObserver) Option {
	return func(c *Client) { c.observer = o }
}

func WithCache(rc *cache.ResponseCache) Option {
	return func(c *Client) { c.cache = rc }
}

func New(baseURL string, timeout time.Duration, log *zap.Logger, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for dashboard api: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Named("api_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Code     string `json:"code,omitempty"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, opLogin, http.MethodPost, "/auth/login", "", credentials{Email: email, Password: password}, &out)
	if err != nil {
		return nil, authError(err, apperrors.InvalidCredentials())
	}
	return &out, nil
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	var out AuthResult
	err := c.do(ctx, opVerifyOTP, http.MethodPost, "/auth/verify-otp", "", credentials{Email: email, Code: code}, &out)
	if err != nil {
		return nil, authError(err, apperrors.InvalidOTP())
	}
	return &out, nil
}

// Logout revokes the token upstream. A token the API no longer knows is
// already logged out.
func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.do(ctx, opLogout, http.MethodPost, "/auth/logout", token, nil, nil)
	if errors.Is(err, apperrors.ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) ListUsers(ctx context.Context, token string, p ListParams) (*Page[User], error) {
	var out Page[User]
	if err := c.do(ctx, opListUsers, http.MethodGet, "/admin/users"+p.query(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context, token string, p ListParams) (*Page[Product], error) {
	var out Page[Product]
	if err := c.do(ctx, opListProducts, http.MethodGet, "/admin/products"+p.query(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAllergies(ctx context.Context, token string, p ListParams) (*Page[Allergy], error) {
	var out Page[Allergy]
	if err := c.do(ctx, opListAllergies, http.MethodGet, "/admin/allergies"+p.query(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListReports(ctx context.Context, token string, p ListParams) (*Page[Report], error) {
	var out Page[Report]
	if err := c.do(ctx, opListReports, http.MethodGet, "/admin/reports"+p.query(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analytics returns dashboard totals. Results are shared between callers
// for a short time when a cache is configured.
func (c *Client) Analytics(ctx context.Context, token string) (*Analytics, error) {
	if c.cache != nil {
		if body, ok := c.cache.Get(analyticsKey); ok {
			var out Analytics
			if err := json.Unmarshal(body, &out); err == nil {
				return &out, nil
			}
		}
	}

	var out Analytics
	if err := c.do(ctx, opAnalytics, http.MethodGet, "/admin/analytics", token, nil, &out); err != nil {
		return nil, err
	}
	if c.cache != nil {
		if body, err := json.Marshal(out); err == nil {
			c.cache.Set(analyticsKey, body, time.Now().Add(analyticsTTL))
		}
	}
	return &out, nil
}

type resolveRequest struct {
	Note string `json:"note,omitempty"`
}

func (c *Client) ResolveReport(ctx context.Context, token, id, note string) error {
	path := "/admin/reports/" + url.PathEscape(id) + "/resolve"
	if err := c.do(ctx, opResolveReport, http.MethodPost, path, token, resolveRequest{Note: note}, nil); err != nil {
		return err
	}
	c.invalidateAnalytics()
	return nil
}

type roleRequest struct {
	Role string `json:"role"`
}

func (c *Client) UpdateUserRole(ctx context.Context, token, id, role string) error {
	path := "/admin/users/" + url.PathEscape(id) + "/role"
	if err := c.do(ctx, opUpdateUserRole, http.MethodPut, path, token, roleRequest{Role: role}, nil); err != nil {
		return err
	}
	c.invalidateAnalytics()
	return nil
}

func (c *Client) invalidateAnalytics() {
	if c.cache != nil {
		c.cache.Delete(analyticsKey)
	}
}

func (p ListParams) query() string {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	endpoint := c.baseURL + path
	log := c.logger.With(zap.String("operation", op), zap.String("method", method), zap.String("url", endpoint))

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("internal error marshalling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("internal error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op)
		log.Error("dashboard api request failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: request timed out: %v", apperrors.ErrUpstream, err)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.observe(op)
		log.Error("failed to read dashboard api response", zap.Int("status", resp.StatusCode), zap.Error(err))
		return fmt.Errorf("%w: read body: %v", apperrors.ErrUpstream, err)
	}
	log.Debug("dashboard api responded", zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := upstreamMessage(raw)
		if resp.StatusCode >= http.StatusInternalServerError {
			c.observe(op)
			log.Error("dashboard api error", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		} else {
			log.Warn("dashboard api rejected request", zap.Int("status", resp.StatusCode), zap.String("message", msg))
		}
		return statusError(resp.StatusCode, msg)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.observe(op)
		log.Error("invalid dashboard api response", zap.Error(err))
		return fmt.Errorf("%w: invalid response format: %v", apperrors.ErrUpstream, err)
	}
	return nil
}

func (c *Client) observe(op string) {
	if c.observer != nil {
		c.observer.ObserveUpstreamError(op)
	}
}

func upstreamMessage(raw []byte) string {
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		if er.Message != "" {
			return logger.SanitizeLogMessage(er.Message)
		}
		if er.Error != "" {
			return logger.SanitizeLogMessage(er.Error)
		}
	}
	return ""
}

func statusError(status int, msg string) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Validation(msg)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case http.StatusNotFound:
		return apperrors.NotFound(msg)
	case http.StatusConflict:
		return apperrors.Conflict(msg)
	default:
		return &apperrors.UpstreamError{Status: status, Message: msg}
	}
}

// authError turns a rejected credential check into the caller's error;
// transport and server failures pass through.
func authError(err, rejected error) error {
	if errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrBadRequest) ||
		errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) {
		return rejected
	}
	return err
}
