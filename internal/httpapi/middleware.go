package httpapi

import (
	"context"
	"net/http"
	"strings"

	"trackerd/internal/auth"
	"trackerd/internal/models"
)

type contextKey struct{ name string }

var userKey = contextKey{"user"}

// currentUser returns the authenticated user stored by requireAuth.
func currentUser(r *http.Request) *models.User {
	user, _ := r.Context().Value(userKey).(*models.User)
	return user
}

// requireAuth verifies the bearer token and loads a fresh user row, so role
// changes take effect on the next request. Websocket clients may pass the
// token as a query parameter since browsers cannot set headers on upgrade
// requests.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
			return
		}

		user, err := a.creds.CurrentUser(r.Context(), claims.UserID)
		if err != nil {
			respondError(w, http.StatusUnauthorized, auth.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
