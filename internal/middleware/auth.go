package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/landlord/internal/auth"
	"github.com/dukerupert/landlord/internal/model"
)

type principalSlotKey struct{}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAuth checks the bearer token with v and attaches the admin to the
// request context. Missing or rejected tokens get a 401 JSON response.
func RequireAuth(v auth.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			p, err := v.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, model.ErrAuth) {
					logger.Error("verify token", "error", err)
					writeDetail(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				w.Header().Set("WWW-Authenticate", "Bearer")
				writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
				return
			}

			if slot, ok := r.Context().Value(principalSlotKey{}).(*auth.Principal); ok {
				*slot = p
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}
