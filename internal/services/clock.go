package services

import "time"

// Clock supplies the current instant. Completion timestamps are always
// server-assigned through it, never taken from client input; tests inject
// a fixed clock.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time { return time.Now().UTC() }
