// Package credential carries the delegated Gmail credential through its
// lifecycle: opaque transport encoding, expiry checks, and silent refresh.
// The bundle is owned by the caller's session; nothing here persists it.
package credential

import "time"

// Bundle is the access/refresh token pair plus its expiry window.
type Bundle struct {
	AccessToken  string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Valid reports whether the access token is still usable at now.
func (b Bundle) Valid(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}
