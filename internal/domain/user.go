package domain

import "time"

// User is an account owning projects. Email is the login identity and token subject.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
