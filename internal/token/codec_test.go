package token_test

import (
	"encoding/base64"
	"testing"
	"time"

	"admin-dashboard/internal/token"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeSegment(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func unsigned(payload string) string {
	return encodeSegment(`{"alg":"none"}`) + "." + encodeSegment(payload) + ".sig"
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid payload", unsigned(`{"exp":1700000000,"role":"admin"}`), true},
		{"two segments", encodeSegment(`{}`) + "." + encodeSegment(`{"role":"admin"}`), false},
		{"four segments", unsigned(`{"role":"admin"}`) + ".extra", false},
		{"empty", "", false},
		{"bad base64", "a.!!!.c", false},
		{"not json", "a." + encodeSegment("not json") + ".c", false},
		{"json array", "a." + encodeSegment(`[1,2]`) + ".c", false},
		{"json null", "a." + encodeSegment(`null`) + ".c", false},
		{"garbage header is ignored", "###." + encodeSegment(`{"role":"user"}`) + ".c", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := token.Decode(tt.raw)
			assert.Equal(t, tt.ok, res.OK)
		})
	}
}

func TestDecode_PaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"role":"admin"}`))
	res := token.Decode("h." + payload + ".s")
	require.True(t, res.OK)
	assert.Equal(t, "admin", res.Claims.Role())
}

func TestDecode_URLSafeAlphabet(t *testing.T) {
	// encodes to "eyJyb2xlIjoifn5-In0", which needs the url-safe '-'.
	payload := `{"role":"~~~"}`
	res := token.Decode("h." + encodeSegment(payload) + ".s")
	require.True(t, res.OK)
	assert.Equal(t, "~~~", res.Claims.Role())
}

func TestExpiryKeepsFraction(t *testing.T) {
	res := token.Decode(unsigned(`{"exp":1000.75}`))
	require.True(t, res.OK)

	exp, ok := res.Claims.Expiry()
	require.True(t, ok)
	assert.Equal(t, time.Unix(1000, 750_000_000), exp)
}

func TestClaimsAccessors(t *testing.T) {
	res := token.Decode(unsigned(`{"exp":1700000000,"role":"admin","sub":"u-1","permissions":["users.view",3,"admin.access"]}`))
	require.True(t, res.OK)

	exp, ok := res.Claims.Expiry()
	require.True(t, ok)
	assert.Equal(t, int64(1700000000), exp.Unix())
	assert.Equal(t, "admin", res.Claims.Role())
	assert.Equal(t, "u-1", res.Claims.Subject())
	assert.Equal(t, []string{"users.view", "admin.access"}, res.Claims.Permissions())
}

func TestClaimsAccessors_Missing(t *testing.T) {
	res := token.Decode(unsigned(`{"exp":"soon","role":42,"permissions":"admin.access"}`))
	require.True(t, res.OK)

	_, ok := res.Claims.Expiry()
	assert.False(t, ok)
	assert.Empty(t, res.Claims.Role())
	assert.Empty(t, res.Claims.Permissions())

	var zero token.Claims
	_, ok = zero.Expiry()
	assert.False(t, ok)
	assert.Empty(t, zero.Role())
	assert.Empty(t, zero.Permissions())
}

func TestHMACVerifier(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(-time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	v := token.NewHMACVerifier(secret)

	res := v.Decode(signed)
	require.True(t, res.OK, "expired but authentic tokens still decode")
	assert.Equal(t, "admin", res.Claims.Role())

	assert.False(t, token.NewHMACVerifier("another-secret-another-secret-xx").Decode(signed).OK)
	assert.False(t, v.Decode(unsigned(`{"role":"admin"}`)).OK)
	assert.True(t, token.Unverified.Decode(signed).OK)
}
