package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// VotingMethod selects how a single vote is weighted and how the weighted
// denominator of the tally is derived.
type VotingMethod string

const (
	// Every vote counts as exactly 1.0.
	OnePersonOneVote VotingMethod = "ONE_PERSON_ONE_VOTE"
	// Vote weight is the voter's apartment size; the tally's weighted
	// denominator is the election's manually entered total area.
	WeightedBySizeManual VotingMethod = "WEIGHTED_BY_SIZE_MANUAL"
	// Vote weight is the voter's apartment size; the denominator is the sum
	// of sizes over voters who actually voted.
	WeightedBySizeVoters VotingMethod = "WEIGHTED_BY_SIZE_VOTERS"
)

var ErrTotalAreaRequired = errors.New("WEIGHTED_BY_SIZE_MANUAL requires a positive total area")

// Election is a single voting project.
type Election struct {
	ID           uuid.UUID    `db:"election_id" json:"id"`
	Title        string       `db:"title" json:"title"`
	VotingMethod VotingMethod `db:"voting_method" json:"voting_method"`
	// Only meaningful for WeightedBySizeManual.
	TotalAreaManual float64   `db:"total_area_manual" json:"total_area_manual,omitempty"`
	StartTime       time.Time `db:"start_time" json:"start_time"`
	EndTime         time.Time `db:"end_time" json:"end_time"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Validate enforces setup-time invariants. Violations are configuration
// errors and must never surface at vote-cast time.
func (e *Election) Validate() error {
	if e.VotingMethod == WeightedBySizeManual && e.TotalAreaManual <= 0 {
		return ErrTotalAreaRequired
	}
	return nil
}

// Open reports whether now falls within the election's voting window.
func (e *Election) Open(now time.Time) bool {
	return !now.Before(e.StartTime) && !now.After(e.EndTime)
}

// Candidate belongs to exactly one election.
type Candidate struct {
	ID         uuid.UUID `db:"candidate_id" json:"id"`
	ElectionID uuid.UUID `db:"election_id" json:"election_id"`
	Name       string    `db:"name" json:"name"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
