package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	key := newKey(t)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL, "https://auth.test")

	token := sign(t, key, "k1", jwt.MapClaims{
		"iss":   "https://auth.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "users.read scanner.trigger",
	})

	claims, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, HasScope(claims, "scanner.trigger"))
	assert.False(t, HasScope(claims, "scanner.admin"))
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	key := newKey(t)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL, "https://auth.test")

	token := sign(t, key, "k1", jwt.MapClaims{
		"iss": "https://evil.test",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	key := newKey(t)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL, "https://auth.test")

	token := sign(t, key, "k1", jwt.MapClaims{
		"iss": "https://auth.test",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnknownSigningKey(t *testing.T) {
	key := newKey(t)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL, "")

	other := newKey(t)
	token := sign(t, other, "k2", jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireScope(t *testing.T) {
	key := newKey(t)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL, "")

	handler := v.RequireScope("scanner.trigger",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodPut, "/scan", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("garbage"))

	noScope := sign(t, key, "k1", jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, http.StatusForbidden, call(noScope))

	ok := sign(t, key, "k1", jwt.MapClaims{
		"exp":   time.Now().Add(time.Hour).Unix(),
		"scope": "scanner.trigger",
	})
	assert.Equal(t, http.StatusNoContent, call(ok))
}

func TestNilVerifierDisablesAuth(t *testing.T) {
	var v *Verifier
	handler := v.RequireScope("scanner.trigger",
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/scan", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
