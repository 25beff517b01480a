package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/Lixing-Zhang/norivo-storefront/internal/config"
)

// APIKeyAuth middleware validates API key from header.
// The key is passed in the "api_key" header and guards the admin routes.
func APIKeyAuth(cfg config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("api_key")

			if apiKey == "" {
				writeError(w, http.StatusUnauthorized, "API key required", "unauthorized")
				return
			}

			valid := false
			for _, validKey := range cfg.APIKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
					valid = true
					break
				}
			}

			if !valid {
				writeError(w, http.StatusForbidden, "invalid API key", "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
