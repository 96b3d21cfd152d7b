package auth

import "context"

const (
	// LocalDevUserKey is the hardcoded per-user API key for local development.
	// It resolves to the "tracker-dev" actor.
	LocalDevUserKey = "sk_local_tracker_dev_key"

	// LocalDevAdminKey is the hardcoded admin key for local development,
	// used by trackerctl for template management.
	LocalDevAdminKey = "sk_local_tracker_admin_key"
)

// StaticAuthorizer resolves keys from a fixed in-memory table. It backs
// local development and tests; production deployments swap in a real
// key service behind the same interface.
type StaticAuthorizer struct {
	keys map[string]Actor
}

// NewStaticAuthorizer builds an authorizer over an explicit key table.
func NewStaticAuthorizer(keys map[string]Actor) *StaticAuthorizer {
	cp := make(map[string]Actor, len(keys))
	for k, v := range keys {
		cp[k] = v
	}
	return &StaticAuthorizer{keys: cp}
}

// NewDevAuthorizer returns the authorizer used by local development: one
// user key bound to the tracker-dev actor and one admin key.
func NewDevAuthorizer() *StaticAuthorizer {
	return NewStaticAuthorizer(map[string]Actor{
		LocalDevUserKey:  {ActorID: "tracker-dev", KeyName: "Local Development Key"},
		LocalDevAdminKey: {ActorID: "tracker-admin", KeyName: "Local Admin Key", Admin: true},
	})
}

func (s *StaticAuthorizer) Authorize(ctx context.Context, apiKey string) (*Actor, error) {
	actor, ok := s.keys[apiKey]
	if !ok {
		return nil, ErrInvalidKey
	}
	return &actor, nil
}
