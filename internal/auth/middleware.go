package auth

import (
	"net/http"
	"strings"

	"github.com/solidstone/mediascan/internal/httputil"
)

// RequireScope guards a handler behind a bearer token carrying the given
// scope. A nil receiver means authentication is disabled and everything
// passes.
func (v *Verifier) RequireScope(scope string, next http.Handler) http.Handler {
	if v == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", ErrMissingToken.Error())
			return
		}
		claims, err := v.Verify(r.Context(), token)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		if !HasScope(claims, scope) {
			httputil.WriteError(w, http.StatusForbidden, "FORBIDDEN", "missing scope "+scope)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
