package model

import "time"

// AuthGrant is what the relay returns for an accepted authtoken. Limits
// are plan-dependent and enforced provider-side; the client only arms a
// local deadline from SessionLimit.
type AuthGrant struct {
	// Account is the account the token belongs to
	Account string
	// Plan is the subscription plan name
	Plan string
	// SessionLimit is the maximum session duration, 0 for unlimited
	SessionLimit time.Duration
	// MaxConnsPerMinute is the inbound connection ceiling, 0 for
	// unlimited
	MaxConnsPerMinute int
}

// Limited reports whether the plan imposes a session time limit.
func (g AuthGrant) Limited() bool {
	return g.SessionLimit > 0
}
