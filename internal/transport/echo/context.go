package echo

import (
	"net/http"
	"time"

	"admin-dashboard/internal/gatekeeper"
	"admin-dashboard/internal/policy"
	"admin-dashboard/internal/rbac"

	"github.com/labstack/echo/v4"
)

const (
	ContextKeySubject = "rbac_subject"
	ContextKeyToken   = "rbac_token"
)

// SubjectResolver turns the request's admin token into an rbac.Subject. It
// reuses the verdict the gatekeeper already reached for the request and only
// evaluates the cookie itself on routes the gatekeeper skipped.
type SubjectResolver struct {
	checker   *rbac.Checker
	evaluator *policy.Evaluator
	now       func() time.Time
}

func NewSubjectResolver(checker *rbac.Checker, evaluator *policy.Evaluator, now func() time.Time) *SubjectResolver {
	if evaluator == nil {
		evaluator = policy.NewEvaluator(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &SubjectResolver{checker: checker, evaluator: evaluator, now: now}
}

// Resolve returns the subject and raw token for c. An absent, expired or
// undecodable token yields a nil subject.
func (r *SubjectResolver) Resolve(c echo.Context) (*rbac.Subject, string) {
	raw := tokenCookie(c.Request())

	var verdict policy.Verdict
	if d, ok := gatekeeper.GetDecision(c); ok {
		verdict = d.Verdict
	} else {
		verdict = r.evaluator.Evaluate(raw, r.now())
	}
	if !verdict.Valid() {
		return nil, ""
	}

	claims := verdict.Result.Claims
	return r.checker.NewSubject(claims.Subject(), claims.Role(), claims.Permissions()), raw
}

// Middleware stores the resolved subject and token for later handlers.
func (r *SubjectResolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, raw := r.Resolve(c)
			if subject != nil {
				SetSubject(c, subject, raw)
			}
			return next(c)
		}
	}
}

// SetSubject stores a Subject and its token in the Echo context
func SetSubject(c echo.Context, subject *rbac.Subject, token string) {
	if subject == nil {
		return
	}
	c.Set(ContextKeySubject, subject)
	c.Set(ContextKeyToken, token)
}

// GetSubject returns the subject stored by Middleware, or nil.
func GetSubject(c echo.Context) *rbac.Subject {
	s, _ := c.Get(ContextKeySubject).(*rbac.Subject)
	return s
}

// GetToken returns the raw token of the stored subject.
func GetToken(c echo.Context) string {
	t, _ := c.Get(ContextKeyToken).(string)
	return t
}

func tokenCookie(r *http.Request) string {
	ck, err := r.Cookie(gatekeeper.TokenCookie)
	if err != nil {
		return ""
	}
	return ck.Value
}

// SubjectID returns the stored subject's user ID, or "".
func SubjectID(c echo.Context) string {
	if s := GetSubject(c); s != nil {
		return s.UserID
	}
	return ""
}
