package handler

import (
	"net/http"
	"strings"

	"admin-dashboard/internal/audit"
	"admin-dashboard/internal/rbac"
	transport "admin-dashboard/internal/transport/echo"
	"admin-dashboard/pkg/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ModerationHandler struct {
	api         ModerationAPI
	checker     *rbac.Checker
	auditLogger audit.Recorder
	logger      *zap.Logger
}

func NewModerationHandler(api ModerationAPI, checker *rbac.Checker, auditLogger audit.Recorder, log *zap.Logger) *ModerationHandler {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ModerationHandler{api: api, checker: checker, auditLogger: auditLogger, logger: log.Named("moderation")}
}

type ResolveReportRequest struct {
	Note string `json:"note" form:"note"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" form:"role"`
}

func (h *ModerationHandler) ResolveReport(c echo.Context) error {
	subject := transport.GetSubject(c)
	if subject == nil {
		return respondError(c, http.StatusUnauthorized, msgSignInRequired)
	}

	id := c.Param("id")
	if err := validator.ID(id); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	var req ResolveReportRequest
	if err := bindForm(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	req.Note = strings.TrimSpace(req.Note)
	if err := validator.Reason(req.Note); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	actor := audit.Actor{ID: subject.UserID, Role: string(subject.Role)}
	if err := h.api.ResolveReport(c.Request().Context(), transport.GetToken(c), id, req.Note); err != nil {
		h.auditLogger.Record(c, actor, audit.ResourceTypeReport, id, audit.ActionResolve, audit.StatusFailure,
			map[string]any{"error": err.Error()})
		return RespondWithMappedError(c, h.logger, err)
	}

	h.auditLogger.Record(c, actor, audit.ResourceTypeReport, id, audit.ActionResolve, audit.StatusSuccess,
		map[string]any{"note_length": len(req.Note)})
	return respondMessage(c, http.StatusOK, msgReportResolved)
}

func (h *ModerationHandler) UpdateUserRole(c echo.Context) error {
	subject := transport.GetSubject(c)
	if subject == nil {
		return respondError(c, http.StatusUnauthorized, msgSignInRequired)
	}

	id := c.Param("id")
	if err := validator.ID(id); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	var req UpdateRoleRequest
	if err := bindForm(c, &req); err != nil {
		return handleHTTPError(c, err)
	}
	role, err := h.checker.ValidateRole(strings.TrimSpace(req.Role))
	if err != nil {
		return respondError(c, http.StatusBadRequest, msgInvalidRole)
	}

	actor := audit.Actor{ID: subject.UserID, Role: string(subject.Role)}
	if id == subject.UserID {
		h.auditLogger.Record(c, actor, audit.ResourceTypeUser, id, audit.ActionChangeRole, audit.StatusDenied,
			map[string]any{"role": string(role)})
		return respondError(c, http.StatusForbidden, msgOwnRoleChange)
	}

	// Only an equal or higher role may hand a role out.
	if !h.checker.IsAdmin(subject) && !h.checker.IsRoleElevated(subject.Role, role) {
		h.auditLogger.Record(c, actor, audit.ResourceTypeUser, id, audit.ActionChangeRole, audit.StatusDenied,
			map[string]any{"role": string(role)})
		return respondError(c, http.StatusForbidden, msgAccessDenied)
	}

	if err := h.api.UpdateUserRole(c.Request().Context(), transport.GetToken(c), id, string(role)); err != nil {
		h.auditLogger.Record(c, actor, audit.ResourceTypeUser, id, audit.ActionChangeRole, audit.StatusFailure,
			map[string]any{"role": string(role), "error": err.Error()})
		return RespondWithMappedError(c, h.logger, err)
	}

	h.auditLogger.Record(c, actor, audit.ResourceTypeUser, id, audit.ActionChangeRole, audit.StatusSuccess,
		map[string]any{"role": string(role)})
	return respondMessage(c, http.StatusOK, msgRoleUpdated)
}
