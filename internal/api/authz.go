package api

import (
	"net/http"

	"github.com/gorilla/mux"

	respond "github.com/amptracker/amp-tracker/internal/api/respond"
	"github.com/amptracker/amp-tracker/internal/auth"
)

// RequireActor resolves the bearer key to an actor and, for non-GET
// requests on /api/users/{userId}/... paths, enforces that the actor owns
// the target user. Admin keys are exempt.
func RequireActor(az auth.Authorizer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := auth.ExtractAPIKey(r)
			if err != nil {
				respond.WriteUnauthorized(w, err.Error())
				return
			}
			actor, err := az.Authorize(r.Context(), key)
			if err != nil {
				respond.WriteUnauthorized(w, "invalid API key")
				return
			}
			if r.Method != http.MethodGet {
				if userID, ok := mux.Vars(r)["userId"]; ok && !actor.CanMutate(userID) {
					respond.WriteError(w, http.StatusForbidden, auth.ErrForbidden.Error())
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates template mutations behind admin keys.
func RequireAdmin(az auth.Authorizer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := auth.ExtractAPIKey(r)
			if err != nil {
				respond.WriteUnauthorized(w, err.Error())
				return
			}
			actor, err := az.Authorize(r.Context(), key)
			if err != nil {
				respond.WriteUnauthorized(w, "invalid API key")
				return
			}
			if !actor.Admin {
				respond.WriteError(w, http.StatusForbidden, "admin key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
