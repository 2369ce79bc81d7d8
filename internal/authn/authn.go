// Package authn verifies the Authorization: Bearer token and turns its
// claims into the dbctx.Claims map the executor injects as session
// variables, following the bearer-verification pattern the pack's
// platform-security packages build around golang-jwt/jwt.
package authn

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"smf/internal/apperr"
	"smf/internal/dbctx"
)

// Verifier checks a bearer token against a symmetric secret and returns
// its claims. A request without an Authorization header is anonymous when
// Required is false and rejected when it is true; a request that carries a
// token is verified either way, and rejected if verification fails.
type Verifier struct {
	Secret   []byte
	Required bool
}

// New builds a Verifier from the configured jwtSecret/jwtRequired pair.
func New(secret string, required bool) *Verifier {
	return &Verifier{Secret: []byte(secret), Required: required}
}

// bearerToken extracts the token text from an Authorization header value
// of the form "Bearer <token>"; ok is false when the header is absent or
// malformed.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// Authenticate resolves the request's claims: absent token with
// Required=false yields nil claims (anonymous); absent token with
// Required=true is a 401; a present token is parsed and its claims
// returned verbatim for injection, or a 401 if it fails verification.
func (v *Verifier) Authenticate(r *http.Request) (dbctx.Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if v.Required {
			return nil, apperr.Unauthorized("missing bearer token", nil)
		}
		return nil, nil
	}

	tokenText, ok := bearerToken(header)
	if !ok {
		return nil, apperr.Unauthorized("malformed Authorization header", nil)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenText, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return v.Secret, nil
	})
	if err != nil {
		return nil, apperr.Unauthorized("invalid bearer token", err)
	}

	result := make(dbctx.Claims, len(claims))
	for k, val := range claims {
		result[k] = val
	}
	return result, nil
}
