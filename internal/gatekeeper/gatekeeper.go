package gatekeeper

import (
	"net/url"
	"strings"
	"time"

	"admin-dashboard/internal/policy"
	"admin-dashboard/internal/route"
)

// Outcome is the single action taken for a request.
type Outcome string

const (
	OutcomeLocaleRedirect        Outcome = "locale_redirect"
	OutcomeLoginRedirect         Outcome = "login_redirect"
	OutcomeExpiredRedirect       Outcome = "expired_redirect"
	OutcomeAdminRequiredRedirect Outcome = "admin_required_redirect"
	OutcomeLandingRedirect       Outcome = "landing_redirect"
	OutcomeAllow                 Outcome = "allow"
)

const (
	ParamRedirect      = "redirect"
	ParamExpired       = "expired"
	ParamError         = "error"
	valueTrue          = "true"
	ErrorAdminRequired = "admin_required"
)

// Request carries the only inputs a decision depends on besides the clock.
type Request struct {
	Path     string
	RawQuery string
	// Token is the admin_token cookie value; empty means no cookie.
	Token string
}

// Decision is the terminal result for one request.
type Decision struct {
	Outcome Outcome
	// Location is set for every redirect outcome.
	Location string
	// Locale is the value the locale cookie should carry after this response.
	Locale  string
	Target  route.Target
	Verdict policy.Verdict
}

// IsRedirect reports whether the decision ends the request with a redirect.
func (d Decision) IsRedirect() bool {
	return d.Outcome != OutcomeAllow
}

// Gatekeeper turns (path, token, time) into a Decision.
type Gatekeeper struct {
	evaluator *policy.Evaluator
}

// New builds a Gatekeeper around a shared policy evaluator.
func New(evaluator *policy.Evaluator) *Gatekeeper {
	if evaluator == nil {
		evaluator = policy.NewEvaluator(nil)
	}
	return &Gatekeeper{evaluator: evaluator}
}

// Decide is deterministic for identical inputs and performs no I/O.
//
// Protected and auth routes are gated before the locale check, so a
// locale-less protected path without a token goes straight to the localized
// login page instead of bouncing through a locale redirect first.
func (g *Gatekeeper) Decide(req Request, now time.Time) Decision {
	target := route.Resolve(req.Path)
	verdict := g.evaluator.Evaluate(req.Token, now)

	d := Decision{
		Outcome: OutcomeAllow,
		Locale:  target.Locale,
		Target:  target,
		Verdict: verdict,
	}

	switch target.Kind {
	case route.KindProtected:
		switch {
		case !verdict.Present:
			return d.redirect(OutcomeLoginRedirect, loginLocation(target, ""))
		case verdict.Expired:
			return d.redirect(OutcomeExpiredRedirect, loginLocation(target, ParamExpired+"="+valueTrue))
		case !verdict.Admin:
			return d.redirect(OutcomeAdminRequiredRedirect, loginLocation(target, ParamError+"="+ErrorAdminRequired))
		}
	case route.KindAuth:
		if verdict.Authorized() {
			return d.redirect(OutcomeLandingRedirect, route.Localize(target.Locale, route.DashboardPath))
		}
	}

	if target.NeedsLocale {
		location := route.Localize(route.DefaultLocale, req.Path)
		if req.RawQuery != "" {
			location += "?" + req.RawQuery
		}
		return d.redirect(OutcomeLocaleRedirect, location)
	}

	return d
}

func (d Decision) redirect(outcome Outcome, location string) Decision {
	d.Outcome = outcome
	d.Location = location
	return d
}

// loginLocation keeps "redirect" as the first query parameter, followed by
// the optional reason flag.
func loginLocation(target route.Target, flag string) string {
	var b strings.Builder
	b.WriteString(route.Localize(target.Locale, route.LoginPath))
	b.WriteString("?")
	b.WriteString(ParamRedirect)
	b.WriteString("=")
	b.WriteString(url.QueryEscape(target.Path))
	if flag != "" {
		b.WriteString("&")
		b.WriteString(flag)
	}
	return b.String()
}
