package domain

import (
	"time"

	"github.com/aie-platform/innovation-backend/internal/policy"
)

// User is an account in the platform. PasswordHash is a bcrypt hash and is
// never serialized.
type User struct {
	ID           int64       `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Role         policy.Role `json:"role"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
}

// MinPasswordLength applies to registration and expert creation.
const MinPasswordLength = 6
