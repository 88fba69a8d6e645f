package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the server-side session record. The store is the single source
// of truth; the encrypted client token is a capability pointing at it.
type Session struct {
	SessionID uuid.UUID `db:"session_id" json:"session_id"`
	// FamilyID survives rotation and bounds the provable lifetime of a
	// session chain regardless of activity.
	FamilyID        uuid.UUID `db:"family_id" json:"family_id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	Email           string    `db:"email" json:"email"`
	Role            Role      `db:"role" json:"role"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	FamilyCreatedAt time.Time `db:"family_created_at" json:"family_created_at"`
	LastActivity    time.Time `db:"last_activity" json:"last_activity"`
	ExpiresAt       time.Time `db:"expires_at" json:"expires_at"`
	IPAddress       string    `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent       string    `db:"user_agent" json:"user_agent,omitempty"`
}

// Expired reports whether the record itself is past its absolute expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Age is the time since this session id was issued (reset on rotation).
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// FamilyAge is the time since the original authentication of this chain.
func (s *Session) FamilyAge(now time.Time) time.Duration {
	return now.Sub(s.FamilyCreatedAt)
}

// SessionData is the identity handed to request handlers after a successful
// token resolve. It deliberately omits store-internal fields.
type SessionData struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
}

// RequestMeta carries per-request client attributes into session and
// security-event records.
type RequestMeta struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}
