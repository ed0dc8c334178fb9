package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"tradepulse/internal/config"
	"tradepulse/internal/infrastructure"
)

// BasicAuth guards the API with single-user HTTP Basic authentication.
// When no username is configured the middleware is a no-op, so local
// deployments work out of the box.
func BasicAuth(cfg config.AuthConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Username == "" {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !credentialsMatch(cfg, user, pass) {
				logger.WarnContext(r.Context(), "authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)

				w.Header().Set("WWW-Authenticate", `Basic realm="tradepulse"`)
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusUnauthorized)

				traceID := infrastructure.GetTraceID(r.Context())
				response := `{"type":"/errors/unauthorized","title":"Unauthorized","status":401,"detail":"Valid credentials are required","trace_id":"` + traceID + `"}`
				w.Write([]byte(response))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// credentialsMatch compares the presented credentials in constant time.
// A bcrypt hash takes precedence over a plaintext password when both are set.
func credentialsMatch(cfg config.AuthConfig, user, pass string) bool {
	userHash := sha256.Sum256([]byte(user))
	wantUserHash := sha256.Sum256([]byte(cfg.Username))
	userOK := subtle.ConstantTimeCompare(userHash[:], wantUserHash[:]) == 1

	var passOK bool
	if cfg.PasswordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(pass)) == nil
	} else {
		passHash := sha256.Sum256([]byte(pass))
		wantPassHash := sha256.Sum256([]byte(cfg.Password))
		passOK = subtle.ConstantTimeCompare(passHash[:], wantPassHash[:]) == 1
	}

	return userOK && passOK
}
