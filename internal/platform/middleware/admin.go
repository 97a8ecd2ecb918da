package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"veriflow/pkg/platform/secrets"
)

// RequireAdminToken guards operator endpoints. The expected value is either
// the plaintext token or a bcrypt hash of it; a hash keeps the secret itself
// out of the process environment.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || !adminTokenMatches(token, expectedToken) {
				logSecurityEvent(r.Context(), logger, "admin.token_mismatch", clientAttrs(r)...)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func adminTokenMatches(presented, expected string) bool {
	if secrets.IsHash(expected) {
		return secrets.Verify(presented, expected) == nil
	}
	// Use constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
