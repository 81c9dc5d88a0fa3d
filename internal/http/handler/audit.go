package handler

import (
	"net/http"
	"strconv"
	"time"

	"admin-dashboard/internal/audit"
	transport "admin-dashboard/internal/transport/echo"
	"admin-dashboard/pkg/validator"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 100
)

var (
	auditStatuses = map[audit.Status]bool{
		audit.StatusSuccess: true,
		audit.StatusFailure: true,
		audit.StatusDenied:  true,
	}
	auditResources = map[audit.ResourceType]bool{
		audit.ResourceTypeSession: true,
		audit.ResourceTypeUser:    true,
		audit.ResourceTypeReport:  true,
	}
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	reader audit.Reader
	logger *zap.Logger
}

func NewAuditHandler(reader audit.Reader, log *zap.Logger) *AuditHandler {
	if reader == nil {
		reader = audit.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditHandler{reader: reader, logger: log.Named("audit")}
}

type AuditEntry struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	ActorRole    string         `json:"actor_role"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Action       string         `json:"action"`
	Status       string         `json:"status"`
	IPAddress    string         `json:"ip_address"`
	RequestID    string         `json:"request_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

type AuditTrail struct {
	Entries []AuditEntry `json:"entries"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// List returns audit events, newest first. Accepted filters: actor,
// resource, status, since (RFC 3339), limit and offset.
func (h *AuditHandler) List(c echo.Context) error {
	filter, msg := parseAuditFilter(c)
	if msg != "" {
		return transport.Fail(c, http.StatusBadRequest, msg)
	}

	events, err := h.reader.Query(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", zap.Error(err))
		return transport.Fail(c, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	trail := AuditTrail{Entries: make([]AuditEntry, 0, len(events)), Limit: filter.Limit, Offset: filter.Offset}
	for _, ev := range events {
		trail.Entries = append(trail.Entries, AuditEntry{
			ID:           ev.ID.String(),
			ActorID:      ev.ActorID,
			ActorRole:    ev.ActorRole,
			ResourceType: string(ev.ResourceType),
			ResourceID:   ev.ResourceID,
			Action:       string(ev.Action),
			Status:       string(ev.Status),
			IPAddress:    ev.IPAddress,
			RequestID:    ev.RequestID,
			Metadata:     ev.Metadata,
			CreatedAt:    ev.CreatedAt,
		})
	}
	return transport.OK(c, trail)
}

func parseAuditFilter(c echo.Context) (audit.QueryFilter, string) {
	f := audit.QueryFilter{Limit: defaultAuditLimit}

	if v := c.QueryParam("actor"); v != "" {
		if validator.ID(v) != nil {
			return f, msgInvalidActor
		}
		f.ActorID = v
	}
	if v := audit.ResourceType(c.QueryParam("resource")); v != "" {
		if !auditResources[v] {
			return f, msgInvalidResourceFilter
		}
		f.ResourceType = v
	}
	if v := audit.Status(c.QueryParam("status")); v != "" {
		if !auditStatuses[v] {
			return f, msgInvalidStatusFilter
		}
		f.Status = v
	}
	if v := c.QueryParam("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, msgInvalidSince
		}
		f.StartTime = &since
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, msgInvalidLimit
		}
		f.Limit = min(n, maxAuditLimit)
	}
	if v := c.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, msgInvalidLimit
		}
		f.Offset = n
	}
	return f, ""
}
