package auth

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a guest identity that owns practice sessions.
type Participant struct {
	ID          uuid.UUID `json:"participant_id"`
	DisplayName string    `json:"display_name"`
	IsGuest     bool      `json:"is_guest"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// GuestRequest for creating ephemeral guest participants.
type GuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
