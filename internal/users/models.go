package users

import (
	"fmt"
	"time"
)

// User is an auth principal. It exists solely to mint and verify bearer
// tokens; PasswordHash is bcrypt and is never serialized back to clients.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

const (
	MinNameLen     = 2
	MaxNameLen     = 80
	MinPasswordLen = 8
)

// ValidationError names the first offending field of a rejected payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
