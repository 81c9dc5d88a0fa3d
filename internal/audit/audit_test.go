package audit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls chan execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls <- execCall{sql: sql, args: args}
	return pgconn.CommandTag{}, f.err
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

type dropCounter struct{ n chan struct{} }

func (d *dropCounter) ObserveAuditDropped() { d.n <- struct{}{} }

func TestLogFillsDefaults(t *testing.T) {
	db := &fakeDB{calls: make(chan execCall, 1)}
	l := NewLogger(db, nil, nil)

	ev := &Event{ResourceType: ResourceTypeReport, ResourceID: "r-1", Action: ActionResolve, Status: StatusSuccess}
	require.NoError(t, l.Log(context.Background(), ev))

	call := <-db.calls
	assert.Contains(t, call.sql, "INSERT INTO audit_events")
	assert.NotEqual(t, uuid.Nil, ev.ID)
	assert.False(t, ev.CreatedAt.IsZero())
	assert.Equal(t, "resolve_report", ev.EventType)
	assert.Equal(t, "resolve_report", call.args[1])
	assert.Len(t, call.args, 14)
}

func TestRecordWritesAsynchronously(t *testing.T) {
	db := &fakeDB{calls: make(chan execCall, 1)}
	l := NewLogger(db, nil, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/en/reports/9/resolve", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	rec.Header().Set(echo.HeaderXRequestID, "req-1")
	c := e.NewContext(req, rec)

	l.Record(c, Actor{ID: "u-7", Role: "moderator"}, ResourceTypeReport, "9", ActionResolve, StatusSuccess, map[string]any{"note": "dup"})

	select {
	case call := <-db.calls:
		assert.Equal(t, "u-7", call.args[2])
		assert.Equal(t, "moderator", call.args[3])
		assert.Equal(t, "9", call.args[5])
		assert.Equal(t, "test-agent", call.args[9])
		assert.Equal(t, "req-1", call.args[10])
	case <-time.After(time.Second):
		t.Fatal("audit event was not written")
	}
}

func TestRecordReportsDroppedEvents(t *testing.T) {
	db := &fakeDB{calls: make(chan execCall, 1), err: errors.New("connection refused")}
	drops := &dropCounter{n: make(chan struct{}, 1)}
	l := NewLogger(db, nil, drops)

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/en/auth/login", nil), httptest.NewRecorder())
	l.Record(c, Actor{}, ResourceTypeSession, "", ActionLogin, StatusFailure, map[string]any{"error": "invalid credentials"})

	select {
	case <-drops.n:
	case <-time.After(time.Second):
		t.Fatal("dropped event was not reported")
	}
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	r.Record(c, Actor{}, ResourceTypeSession, "", ActionLogout, StatusSuccess, nil)
}

func TestNopQueryIsEmpty(t *testing.T) {
	var r Reader = Nop{}
	events, err := r.Query(context.Background(), QueryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

type queryCapture struct {
	sql  string
	args []any
}

func (q *queryCapture) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (q *queryCapture) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	return nil, errors.New("closed")
}

func TestQueryBuildsFilters(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   QueryFilter
		contains []string
		args     []any
	}{
		{
			name:     "no filter",
			filter:   QueryFilter{},
			contains: []string{"ORDER BY created_at DESC", "LIMIT 100"},
			args:     []any{},
		},
		{
			name: "all filters",
			filter: QueryFilter{
				ActorID:      "u-1",
				ResourceType: ResourceTypeReport,
				Action:       ActionResolve,
				Status:       StatusFailure,
				StartTime:    &since,
				Limit:        10,
				Offset:       20,
			},
			contains: []string{
				"actor_id = $1", "resource_type = $2", "action = $3", "status = $4",
				"created_at >= $5", "LIMIT $6", "OFFSET $7",
			},
			args: []any{"u-1", ResourceTypeReport, ActionResolve, StatusFailure, since, 10, 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &queryCapture{}
			_, err := NewLogger(db, nil, nil).Query(context.Background(), tt.filter)
			require.Error(t, err)
			for _, fragment := range tt.contains {
				assert.Contains(t, db.sql, fragment)
			}
			assert.Equal(t, tt.args, db.args)
		})
	}
}
