// Package auth validates bearer tokens against a remote JWKS endpoint.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/solidstone/mediascan/internal/cache"
)

// jwksTTL bounds how long a fetched key set is trusted. Rotated keys show up
// on the next refetch; an unknown kid forces one immediately.
const jwksTTL = time.Hour

var (
	ErrMissingToken = errors.New("authentication required")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier checks RS256-family tokens against the keys published at a JWKS
// URL. A nil Verifier disables authentication entirely.
type Verifier struct {
	jwksURL string
	issuer  string
	http    *http.Client
	keys    *cache.Cache[string, map[string]*rsa.PublicKey]
}

func NewVerifier(jwksURL, issuer string) *Verifier {
	if jwksURL == "" {
		return nil
	}
	return &Verifier{
		jwksURL: jwksURL,
		issuer:  issuer,
		http:    &http.Client{Timeout: 10 * time.Second},
		keys:    cache.New[string, map[string]*rsa.PublicKey](jwksTTL),
	}
}

// Verify parses and validates a token, returning its claims.
func (v *Verifier) Verify(ctx context.Context, token string) (jwt.MapClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		keys, err := v.keys.GetOrFill(ctx, v.jwksURL, v.fetch)
		if err != nil {
			return nil, err
		}
		key, ok := keys[kid]
		if !ok {
			// The kid may belong to a key rotated in since the last fetch.
			v.keys.Forget(v.jwksURL)
			if keys, err = v.keys.GetOrFill(ctx, v.jwksURL, v.fetch); err != nil {
				return nil, err
			}
			if key, ok = keys[kid]; !ok {
				return nil, fmt.Errorf("unknown signing key %q", kid)
			}
		}
		return key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// HasScope reports whether the claims grant the given scope. The scope claim
// is a space separated string per RFC 8693; a string array is accepted too.
func HasScope(claims jwt.MapClaims, scope string) bool {
	switch v := claims["scope"].(type) {
	case string:
		for _, s := range strings.Fields(v) {
			if s == scope {
				return true
			}
		}
	case []any:
		for _, s := range v {
			if s == scope {
				return true
			}
		}
	}
	return false
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := v.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: status %d", resp.StatusCode)
	}

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		n, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("jwks key %q: %w", k.Kid, err)
		}
		e, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("jwks key %q: %w", k.Kid, err)
		}
		keys[k.Kid] = &rsa.PublicKey{
			N: new(big.Int).SetBytes(n),
			E: int(new(big.Int).SetBytes(e).Int64()),
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks holds no usable keys")
	}
	return keys, nil
}
