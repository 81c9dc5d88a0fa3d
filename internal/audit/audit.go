package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"admin-dashboard/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ResourceType represents the type of resource being acted upon
type ResourceType string

const (
	ResourceTypeSession ResourceType = "session"
	ResourceTypeUser    ResourceType = "user"
	ResourceTypeReport  ResourceType = "report"
)

// Action represents the action being performed
type Action string

const (
	ActionLogin       Action = "login"
	ActionVerifyOTP   Action = "verify_otp"
	ActionLogout      Action = "logout"
	ActionResolve     Action = "resolve"
	ActionChangeRole  Action = "change_role"
	ActionRateLimited Action = "rate_limited"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

const writeTimeout = 2 * time.Second

// Event represents an audit event
type Event struct {
	ID           uuid.UUID
	EventType    string
	ActorID      string
	ActorRole    string
	ResourceType ResourceType
	ResourceID   string
	Action       Action
	Status       Status
	IPAddress    string
	UserAgent    string
	RequestID    string
	Metadata     map[string]any
	ErrorMessage string
	CreatedAt    time.Time
}

// Actor identifies who performed an audited action.
type Actor struct {
	ID   string
	Role string
}

// Recorder accepts audit events from request handlers. Implementations
// must not block the request.
type Recorder interface {
	Record(c echo.Context, actor Actor, resourceType ResourceType, resourceID string, action Action, status Status, metadata map[string]any)
}

// Reader lists recorded events.
type Reader interface {
	Query(ctx context.Context, filter QueryFilter) ([]*Event, error)
}

// Execer is the subset of pgxpool.Pool the audit logger writes through.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DropObserver is told about events that could not be written.
type DropObserver interface {
	ObserveAuditDropped()
}

// Logger handles audit logging
type Logger struct {
	db      Execer
	log     *zap.Logger
	dropped DropObserver
}

// NewLogger creates a new audit logger
func NewLogger(db Execer, log *zap.Logger, dropped DropObserver) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{db: db, log: log.Named("audit"), dropped: dropped}
}

// Log records an audit event
func (l *Logger) Log(ctx context.Context, event *Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.EventType == "" {
		event.EventType = string(event.Action) + "_" + string(event.ResourceType)
	}

	var metadataJSON []byte
	var err error
	if event.Metadata != nil {
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_events (
			id, event_type, actor_id, actor_role, resource_type, resource_id,
			action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = l.db.Exec(ctx, query,
		event.ID,
		event.EventType,
		event.ActorID,
		event.ActorRole,
		event.ResourceType,
		event.ResourceID,
		event.Action,
		event.Status,
		event.IPAddress,
		event.UserAgent,
		event.RequestID,
		metadataJSON,
		event.ErrorMessage,
		event.CreatedAt,
	)

	return err
}

// Record builds an event from the request and writes it asynchronously.
func (l *Logger) Record(c echo.Context, actor Actor, resourceType ResourceType, resourceID string, action Action, status Status, metadata map[string]any) {
	event := &Event{
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Status:       status,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    c.Response().Header().Get(echo.HeaderXRequestID),
	}
	if metadata != nil {
		event.Metadata = logger.SanitizeMap(metadata)
	}
	if msg, ok := metadata["error"].(string); ok {
		event.ErrorMessage = logger.SanitizeLogMessage(msg)
	}

	// Log asynchronously with timeout context
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	go func() {
		defer cancel()
		if err := l.Log(ctx, event); err != nil {
			l.log.Warn("audit write failed",
				zap.String("event_type", event.EventType),
				zap.String("request_id", event.RequestID),
				zap.Error(err))
			if l.dropped != nil {
				l.dropped.ObserveAuditDropped()
			}
		}
	}()
}

// QueryFilter narrows Query results.
type QueryFilter struct {
	ActorID      string
	ResourceType ResourceType
	Action       Action
	Status       Status
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}

// Query retrieves audit events, newest first.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]*Event, error) {
	query := `
		SELECT id, event_type, actor_id, actor_role, resource_type, resource_id,
		       action, status, ip_address, user_agent, request_id, metadata, error_message, created_at
		FROM audit_events
		WHERE 1=1
	`
	args := []any{}
	argCount := 1

	if filter.ActorID != "" {
		query += fmt.Sprintf(" AND actor_id = $%d", argCount)
		args = append(args, filter.ActorID)
		argCount++
	}

	if filter.ResourceType != "" {
		query += fmt.Sprintf(" AND resource_type = $%d", argCount)
		args = append(args, filter.ResourceType)
		argCount++
	}

	if filter.Action != "" {
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, filter.Action)
		argCount++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filter.Status)
		argCount++
	}

	if filter.StartTime != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.StartTime)
		argCount++
	}

	if filter.EndTime != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *filter.EndTime)
		argCount++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
		argCount++
	} else {
		query += " LIMIT 100"
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		var metadataJSON []byte

		err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.ActorID,
			&event.ActorRole,
			&event.ResourceType,
			&event.ResourceID,
			&event.Action,
			&event.Status,
			&event.IPAddress,
			&event.UserAgent,
			&event.RequestID,
			&metadataJSON,
			&event.ErrorMessage,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

// Nop discards every event. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(echo.Context, Actor, ResourceType, string, Action, Status, map[string]any) {}

// Query always returns an empty trail.
func (Nop) Query(context.Context, QueryFilter) ([]*Event, error) {
	return []*Event{}, nil
}
