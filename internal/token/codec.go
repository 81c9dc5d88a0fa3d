package token

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	segmentCount    = 3
	payloadSegment  = 1
	segmentSep      = "."
	claimExpiry     = "exp"
	claimRole       = "role"
	claimPermission = "permissions"
)

// segmentParser decodes base64url segments, restoring padding when it is missing.
var segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())

// Claims is the decoded payload of a bearer token.
type Claims struct {
	raw jwt.MapClaims
}

// Result is the outcome of a decode: OK reports whether Claims holds a payload.
type Result struct {
	Claims Claims
	OK     bool
}

// Decode reads the payload segment of a header.payload.signature token
// without verifying the signature. Any structural, encoding or JSON failure
// yields a Result with OK set to false.
func Decode(raw string) Result {
	parts := strings.Split(raw, segmentSep)
	if len(parts) != segmentCount {
		return Result{}
	}

	payload, err := segmentParser.DecodeSegment(parts[payloadSegment])
	if err != nil {
		return Result{}
	}

	var mc jwt.MapClaims
	if err := json.Unmarshal(payload, &mc); err != nil || mc == nil {
		return Result{}
	}

	return Result{Claims: Claims{raw: mc}, OK: true}
}

// NewClaims wraps an already decoded claim map.
func NewClaims(mc jwt.MapClaims) Claims {
	return Claims{raw: mc}
}

// Expiry returns the exp claim at full precision, fractional seconds
// included. The second value is false when exp is absent or not numeric.
func (c Claims) Expiry() (time.Time, bool) {
	var secs float64
	switch v := c.raw[claimExpiry].(type) {
	case float64:
		secs = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return time.Time{}, false
		}
		secs = f
	default:
		return time.Time{}, false
	}
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return time.Time{}, false
	}
	whole, frac := math.Modf(secs)
	return time.Unix(int64(whole), int64(frac*float64(time.Second))), true
}

// Role returns the role claim, or "" when it is absent or not a string.
func (c Claims) Role() string {
	role, _ := c.raw[claimRole].(string)
	return role
}

// Permissions returns the string entries of the permissions claim in order.
func (c Claims) Permissions() []string {
	list, ok := c.raw[claimPermission].([]any)
	if !ok {
		return nil
	}
	perms := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			perms = append(perms, s)
		}
	}
	return perms
}

// Subject returns the sub claim if present.
func (c Claims) Subject() string {
	sub, err := c.raw.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

// Map exposes the underlying claim map.
func (c Claims) Map() jwt.MapClaims {
	return c.raw
}
