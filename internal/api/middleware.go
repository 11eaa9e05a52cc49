package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/standuphq/standup-engine/internal/api/respond"
	"github.com/standuphq/standup-engine/internal/auth"
)

// AuthMiddleware decodes the bearer token once and checks it against the
// {userId} path variable of the matched route.
func AuthMiddleware(authorizer auth.Authorizer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			token, err := auth.ParseToken(raw)
			if err != nil {
				respond.WriteUnauthorized(w, err.Error())
				return
			}
			if err := authorizer.Authorize(token, mux.Vars(r)["userId"]); err != nil {
				if errors.Is(err, auth.ErrDevTokenInProduction) {
					respond.WriteUnauthorized(w, err.Error())
					return
				}
				respond.WriteUnauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
