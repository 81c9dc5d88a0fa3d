package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Decoder turns a raw bearer token into claims.
type Decoder interface {
	Decode(raw string) Result
}

// DecoderFunc adapts a plain function to Decoder.
type DecoderFunc func(raw string) Result

func (f DecoderFunc) Decode(raw string) Result {
	return f(raw)
}

// Unverified decodes payloads without checking signatures. Gating built on
// it is advisory: anyone can mint a payload that passes.
var Unverified Decoder = DecoderFunc(Decode)

// HMACVerifier decodes tokens only when their HS256/384/512 signature matches
// the shared secret. Expiry is left to the policy layer so that an expired but
// authentic token is still reported as expired rather than malformed.
type HMACVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewHMACVerifier builds a verifying decoder for the given secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{
				jwt.SigningMethodHS256.Alg(),
				jwt.SigningMethodHS384.Alg(),
				jwt.SigningMethodHS512.Alg(),
			}),
			jwt.WithoutClaimsValidation(),
			jwt.WithPaddingAllowed(),
		),
	}
}

func (v *HMACVerifier) Decode(raw string) Result {
	mc := jwt.MapClaims{}
	tok, err := v.parser.ParseWithClaims(raw, mc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return Result{}
	}
	return Result{Claims: NewClaims(mc), OK: true}
}
