package models

import "time"

// RateLimitEntry is one sliding-window counter. One entry exists per
// identifier (client IP, or "userID:electionID" for per-user-per-election
// limits); count never exceeds the policy maximum without IsBlocked flipping.
type RateLimitEntry struct {
	Identifier      string    `db:"identifier" json:"identifier"`
	Count           int       `db:"count" json:"count"`
	WindowResetTime time.Time `db:"window_reset_time" json:"window_reset_time"`
	IsBlocked       bool      `db:"is_blocked" json:"is_blocked"`
	BlockExpiry     time.Time `db:"block_expiry" json:"block_expiry,omitempty"`
}

// Dead reports whether both the window and any block have lapsed, meaning
// the entry can be removed by the periodic cleanup.
func (e *RateLimitEntry) Dead(now time.Time) bool {
	if now.Before(e.WindowResetTime) {
		return false
	}
	if e.IsBlocked && now.Before(e.BlockExpiry) {
		return false
	}
	return true
}
