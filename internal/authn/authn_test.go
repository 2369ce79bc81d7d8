package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smf/internal/apperr"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthenticateAnonymousWhenNotRequired(t *testing.T) {
	v := New("secret", false)
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)

	claims, err := v.Authenticate(r)
	require.NoError(t, err)
	assert.Nil(t, claims)
}

func TestAuthenticateMissingTokenRequiredIsUnauthorized(t *testing.T) {
	v := New("secret", true)
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)

	_, err := v.Authenticate(r)
	require.Error(t, err)
	var appErr *apperr.Error
	require.True(t, apperr.As(err, &appErr))
	assert.Equal(t, apperr.KindUnauthorized, appErr.Kind)
}

func TestAuthenticateMalformedHeaderIsUnauthorized(t *testing.T) {
	v := New("secret", true)
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Set("Authorization", "Basic abc123")

	_, err := v.Authenticate(r)
	require.Error(t, err)
}

func TestAuthenticateValidTokenReturnsClaims(t *testing.T) {
	v := New("secret", true)
	token := signToken(t, "secret", jwt.MapClaims{
		"sub":  "user-1",
		"role": "editor",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	claims, err := v.Authenticate(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "editor", claims["role"])
}

func TestAuthenticateInvalidSignatureIsUnauthorized(t *testing.T) {
	v := New("secret", true)
	token := signToken(t, "wrong-secret", jwt.MapClaims{"sub": "user-1"})
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := v.Authenticate(r)
	require.Error(t, err)
}

func TestAuthenticateExpiredTokenIsUnauthorized(t *testing.T) {
	v := New("secret", true)
	token := signToken(t, "secret", jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	_, err := v.Authenticate(r)
	require.Error(t, err)
}
