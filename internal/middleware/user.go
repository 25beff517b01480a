package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UserHeader carries the signed-in shopper's email, set by the auth proxy in front of the API
const UserHeader = "X-User-Email"

type userKey struct{}

var validate = validator.New()

// RequireUser rejects requests without a valid shopper email and stores it in the context
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := strings.ToLower(strings.TrimSpace(r.Header.Get(UserHeader)))
		if email == "" {
			writeError(w, http.StatusUnauthorized, UserHeader+" header required", "unauthorized")
			return
		}
		if err := validate.Var(email, "email,max=254"); err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+UserHeader+" header", "unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), email)))
	})
}

// WithUser returns a copy of ctx carrying email
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userKey{}, email)
}

// UserFromContext returns the shopper email set by RequireUser
func UserFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userKey{}).(string)
	return email, ok && email != ""
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "kind": kind})
}
