package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is one admitted ballot. The central integrity invariant of the whole
// system: at most one Vote per (UserID, ElectionID) pair at any time,
// enforced by the primary key of the votes table, not by application checks.
type Vote struct {
	ID          uuid.UUID `db:"vote_id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	CandidateID uuid.UUID `db:"candidate_id" json:"candidate_id"`
	ElectionID  uuid.UUID `db:"election_id" json:"election_id"`
	Weight      float64   `db:"weight" json:"weight"`
	CastAt      time.Time `db:"cast_at" json:"cast_at"`
}
