package health

import "context"

// HealthPinger is an optional interface for stores that have a cheap
// liveness probe of their own (e.g. a driver-level ping). HealthPing
// returns nil when the dependency is reachable.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
