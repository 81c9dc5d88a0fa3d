package ratelimit

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	ScopeLogin = "login"
	ScopeOTP   = "otp"
)

// IdentifierKey normalizes identifier and hashes it so that emails never
// appear as map or redis keys.
func IdentifierKey(scope, identifier string) string {
	norm := strings.ToLower(strings.TrimSpace(identifier))
	sum := blake2b.Sum256([]byte(scope + "\x00" + norm))
	return scope + ":" + hex.EncodeToString(sum[:16])
}
