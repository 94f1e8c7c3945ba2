package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload for both client and analyst login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse contains a token and expiry.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PrincipalResponse describes the logged-in account.
type PrincipalResponse struct {
	ID      int64       `json:"id"`
	Name    string      `json:"name"`
	Role    domain.Role `json:"role"`
	IsAdmin bool        `json:"is_admin"`
}
