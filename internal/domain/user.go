package domain

import "time"

// User is an account that may call the catalog API.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	DateJoined   time.Time
}

// Token is an opaque API key bound to a single user.
type Token struct {
	Key       string
	UserID    int64
	CreatedAt time.Time
}
