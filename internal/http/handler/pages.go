package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"admin-dashboard/internal/client"
	"admin-dashboard/internal/rbac"
	"admin-dashboard/internal/rbac/presets"
	"admin-dashboard/internal/route"
	transport "admin-dashboard/internal/transport/echo"
	"admin-dashboard/pkg/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxSearchLength = 100
)

// PageHandler serves the JSON view models of the dashboard pages.
type PageHandler struct {
	api     AdminAPI
	checker *rbac.Checker
	csrf    CSRFTokenManager
	logger  *zap.Logger
}

func NewPageHandler(api AdminAPI, checker *rbac.Checker, csrf CSRFTokenManager, log *zap.Logger) *PageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PageHandler{api: api, checker: checker, csrf: csrf, logger: log.Named("pages")}
}

type Viewer struct {
	ID      string    `json:"id"`
	Role    rbac.Role `json:"role"`
	IsAdmin bool      `json:"is_admin"`
}

type NavEntry struct {
	Section rbac.Section `json:"section"`
	Path    string       `json:"path"`
}

// Capabilities are the permission-derived switches a renderer uses to show
// or hide controls.
type Capabilities struct {
	EditUsers         bool `json:"edit_users"`
	DeleteUsers       bool `json:"delete_users"`
	ManageRoles       bool `json:"manage_roles"`
	EditProducts      bool `json:"edit_products"`
	ModerateProducts  bool `json:"moderate_products"`
	EditAllergies     bool `json:"edit_allergies"`
	ModerateAllergies bool `json:"moderate_allergies"`
	ResolveReports    bool `json:"resolve_reports"`
	ViewAnalytics     bool `json:"view_analytics"`
	ManageSettings    bool `json:"manage_settings"`
}

// Frame is shared by every authenticated page.
type Frame struct {
	Locale       string       `json:"locale"`
	Viewer       Viewer       `json:"viewer"`
	Navigation   []NavEntry   `json:"navigation"`
	Capabilities Capabilities `json:"capabilities"`
	CSRFToken    string       `json:"csrf_token,omitempty"`
}

type DashboardPage struct {
	Frame
	Categories           []rbac.Category   `json:"categories"`
	Permissions          rbac.Grouping     `json:"permissions"`
	Analytics            *client.Analytics `json:"analytics,omitempty"`
	AnalyticsUnavailable bool              `json:"analytics_unavailable,omitempty"`
}

type ListFilter struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Search   string `json:"search,omitempty"`
	Status   string `json:"status,omitempty"`
}

type ListPage[T any] struct {
	Frame
	Filter ListFilter      `json:"filter"`
	Result *client.Page[T] `json:"result"`
}

type AnalyticsPage struct {
	Frame
	Analytics *client.Analytics `json:"analytics"`
}

func (h *PageHandler) Dashboard(c echo.Context) error {
	subject := transport.GetSubject(c)
	if subject == nil {
		return respondError(c, http.StatusUnauthorized, msgSignInRequired)
	}

	page := DashboardPage{
		Frame:       h.frame(c, subject),
		Categories:  h.checker.Categories(),
		Permissions: h.checker.GroupByCategory(subject.Permissions),
	}

	if page.Capabilities.ViewAnalytics {
		a, err := h.api.Analytics(c.Request().Context(), transport.GetToken(c))
		if err != nil {
			// The rest of the dashboard is still useful without the numbers.
			h.logger.Warn("analytics unavailable", zap.Error(err))
			page.AnalyticsUnavailable = true
		} else {
			page.Analytics = a
		}
	}

	return c.JSON(http.StatusOK, page)
}

func (h *PageHandler) Analytics(c echo.Context) error {
	subject := transport.GetSubject(c)
	if subject == nil {
		return respondError(c, http.StatusUnauthorized, msgSignInRequired)
	}
	a, err := h.api.Analytics(c.Request().Context(), transport.GetToken(c))
	if err != nil {
		return RespondWithMappedError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, AnalyticsPage{Frame: h.frame(c, subject), Analytics: a})
}

func (h *PageHandler) Users(c echo.Context) error {
	return listPage(h, c, h.api.ListUsers)
}

func (h *PageHandler) Products(c echo.Context) error {
	return listPage(h, c, h.api.ListProducts)
}

func (h *PageHandler) Allergies(c echo.Context) error {
	return listPage(h, c, h.api.ListAllergies)
}

func (h *PageHandler) Reports(c echo.Context) error {
	return listPage(h, c, h.api.ListReports)
}

func listPage[T any](h *PageHandler, c echo.Context, fetch func(context.Context, string, client.ListParams) (*client.Page[T], error)) error {
	subject := transport.GetSubject(c)
	if subject == nil {
		return respondError(c, http.StatusUnauthorized, msgSignInRequired)
	}

	filter, msg := parseListFilter(c)
	if msg != "" {
		return respondError(c, http.StatusBadRequest, msg)
	}

	result, err := fetch(c.Request().Context(), transport.GetToken(c), client.ListParams{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Search:   filter.Search,
		Status:   filter.Status,
	})
	if err != nil {
		return RespondWithMappedError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, ListPage[T]{
		Frame:  h.frame(c, subject),
		Filter: filter,
		Result: result,
	})
}

func parseListFilter(c echo.Context) (ListFilter, string) {
	f := ListFilter{Page: 1, PageSize: defaultPageSize}

	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, msgInvalidPage
		}
		f.Page = n
	}
	if v := c.QueryParam("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, msgInvalidPage
		}
		f.PageSize = min(n, maxPageSize)
	}

	f.Search = truncateRunes(strings.TrimSpace(c.QueryParam("search")), maxSearchLength)

	if v := c.QueryParam("status"); v != "" {
		if validator.ID(v) != nil {
			return f, msgInvalidStatusFilter
		}
		f.Status = v
	}
	return f, ""
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (h *PageHandler) frame(c echo.Context, subject *rbac.Subject) Frame {
	sections := h.checker.Sections(subject)
	nav := make([]NavEntry, 0, len(sections))
	locale := localeOf(c)
	for _, s := range sections {
		nav = append(nav, NavEntry{Section: s.Section, Path: route.Localize(locale, s.Path)})
	}

	f := Frame{
		Locale: locale,
		Viewer: Viewer{
			ID:      subject.UserID,
			Role:    subject.Role,
			IsAdmin: h.checker.IsAdmin(subject),
		},
		Navigation:   nav,
		Capabilities: h.capabilities(subject),
	}

	if h.csrf != nil && subject.UserID != "" {
		tok, err := h.csrf.GetOrCreateToken(subject.UserID)
		if err != nil {
			h.logger.Error("issue csrf token", zap.Error(err))
		} else {
			f.CSRFToken = tok
		}
	}
	return f
}

func (h *PageHandler) capabilities(subject *rbac.Subject) Capabilities {
	admin := h.checker.IsAdmin(subject)
	can := func(p rbac.Permission) bool {
		return admin || h.checker.HasPermission(subject, p)
	}
	return Capabilities{
		EditUsers:         can(presets.PermissionUsersEdit),
		DeleteUsers:       can(presets.PermissionUsersDelete),
		ManageRoles:       can(presets.PermissionManageRoles),
		EditProducts:      can(presets.PermissionProductsEdit),
		ModerateProducts:  can(presets.PermissionProductsMod),
		EditAllergies:     can(presets.PermissionAllergyEdit),
		ModerateAllergies: can(presets.PermissionAllergyMod),
		ResolveReports:    can(presets.PermissionReportsMod),
		ViewAnalytics:     can(presets.PermissionAnalytics),
		ManageSettings:    can(presets.PermissionSettings),
	}
}
