package domain

import "time"

// Claim is the identity assertion carried by a session token.
type Claim struct {
	Subject   string
	ExpiresAt time.Time
}
