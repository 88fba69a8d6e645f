package models

import (
	"time"

	"github.com/google/uuid"
)

// Voter is an eligible resident or committee member.
type Voter struct {
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Email          string    `db:"email" json:"email"`
	PasswordDigest string    `db:"password_digest" json:"-"`
	Role           Role      `db:"role" json:"role"`
	ApartmentSize  float64   `db:"apartment_size" json:"apartment_size"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	IsBlocked      bool      `db:"is_blocked" json:"is_blocked"`
	BlockedReason  string    `db:"blocked_reason" json:"blocked_reason,omitempty"`
	// Zero means no block or a permanent one; callers check IsBlocked first.
	BlockExpiry *time.Time `db:"block_expiry" json:"block_expiry,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// BlockActive reports whether an automatic or manual block is currently in
// force, honoring an expiry when one is set.
func (v *Voter) BlockActive(now time.Time) bool {
	if !v.IsBlocked {
		return false
	}
	if v.BlockExpiry != nil && now.After(*v.BlockExpiry) {
		return false
	}
	return true
}
