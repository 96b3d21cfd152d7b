package auth

import (
	"context"
)

// Actor is the principal resolved from a bearer key.
type Actor struct {
	ActorID string `json:"actor_id"`
	KeyName string `json:"key_name"`
	Admin   bool   `json:"admin"`
}

// CanMutate reports whether the actor may write resources owned by userID.
// Admin keys may write anywhere; everyone else only their own paths.
func (a *Actor) CanMutate(userID string) bool {
	return a.Admin || a.ActorID == userID
}

// Authorizer resolves bearer API keys to actors.
type Authorizer interface {
	Authorize(ctx context.Context, apiKey string) (*Actor, error)
}
