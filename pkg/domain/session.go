package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents an issued credential. The access token's jti is the session ID.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CompanyID uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsValid checks if the session is valid (not expired and not revoked).
func (s *Session) IsValid() bool {
	if s.RevokedAt != nil {
		return false
	}
	return time.Now().Before(s.ExpiresAt)
}

// Token is an issued bearer credential.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Principal is the resolved identity of the current request.
type Principal struct {
	UserID    uuid.UUID
	CompanyID uuid.UUID
	SessionID uuid.UUID
	Email     string
	Name      string
	Role      UserRole
}

// HasCompany returns true if the principal belongs to a company.
func (p *Principal) HasCompany() bool {
	return p != nil && p.CompanyID != uuid.Nil
}
