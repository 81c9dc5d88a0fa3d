// Package policy decides what a bearer token is allowed to do. It is shared by
// the edge gatekeeper and the in-application permission checks so that both
// reach the same verdict for the same token.
package policy

import (
	"time"

	"admin-dashboard/internal/token"
)

// AdminRole is the role literal that grants admin capability on its own.
const AdminRole = "admin"

// Admin capability permissions. Holding any one of them is enough.
const (
	PermissionSystemAnalytics = "system.analytics"
	PermissionManageRoles     = "users.manage_roles"
	PermissionAdminAccess     = "admin.access"
)

var adminPermissions = map[string]struct{}{
	PermissionSystemAnalytics: {},
	PermissionManageRoles:     {},
	PermissionAdminAccess:     {},
}

// AdminPermissions returns the fixed admin-capability set.
func AdminPermissions() []string {
	return []string{PermissionSystemAnalytics, PermissionManageRoles, PermissionAdminAccess}
}

// IsExpired reports whether the claims are unusable at now. Missing or
// non-numeric exp counts as expired, as does a failed decode.
func IsExpired(res token.Result, now time.Time) bool {
	if !res.OK {
		return true
	}
	exp, ok := res.Claims.Expiry()
	if !ok {
		return true
	}
	return exp.Before(now)
}

// IsAdminCapable reports whether the claims carry the admin role or any
// admin-capability permission. A failed decode is never admin-capable.
func IsAdminCapable(res token.Result) bool {
	if !res.OK {
		return false
	}
	if res.Claims.Role() == AdminRole {
		return true
	}
	for _, p := range res.Claims.Permissions() {
		if _, ok := adminPermissions[p]; ok {
			return true
		}
	}
	return false
}

// Verdict is the combined result of evaluating one token at one instant.
type Verdict struct {
	Present bool
	Result  token.Result
	Expired bool
	Admin   bool
}

// Valid reports an unexpired, decodable token.
func (v Verdict) Valid() bool {
	return v.Present && !v.Expired
}

// Authorized reports an unexpired admin-capable token.
func (v Verdict) Authorized() bool {
	return v.Valid() && v.Admin
}

// Evaluator evaluates raw tokens with a configurable decoder.
type Evaluator struct {
	decoder token.Decoder
}

// NewEvaluator returns an Evaluator. A nil decoder falls back to unverified decoding.
func NewEvaluator(decoder token.Decoder) *Evaluator {
	if decoder == nil {
		decoder = token.Unverified
	}
	return &Evaluator{decoder: decoder}
}

// Evaluate decodes raw once and applies both checks. An empty raw token is
// reported as not present.
func (e *Evaluator) Evaluate(raw string, now time.Time) Verdict {
	if raw == "" {
		return Verdict{Expired: true}
	}
	res := e.decoder.Decode(raw)
	return Verdict{
		Present: true,
		Result:  res,
		Expired: IsExpired(res, now),
		Admin:   IsAdminCapable(res),
	}
}
