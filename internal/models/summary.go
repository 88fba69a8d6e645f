package models

import "time"

// CandidateResult is one candidate's totals within a tally. Candidates with
// zero votes still appear with zero totals.
type CandidateResult struct {
	CandidateID        string  `json:"candidate_id"`
	Name               string  `json:"name"`
	VoteCount          int     `json:"vote_count"`
	WeightedVotes      float64 `json:"weighted_votes"`
	Percentage         float64 `json:"percentage"`
	WeightedPercentage float64 `json:"weighted_percentage"`
}

// VotingSummary is a pure snapshot of an election's tally. It is safe to
// compute repeatedly and concurrently with vote casting.
type VotingSummary struct {
	ElectionID          string            `json:"election_id"`
	VotingMethod        VotingMethod      `json:"voting_method"`
	Candidates          []CandidateResult `json:"candidates"`
	TotalVotes          int               `json:"total_votes"`
	TotalWeightedVotes  float64           `json:"total_weighted_votes"`
	WeightedDenominator float64           `json:"weighted_denominator"`
	// WinnerID is empty when no votes were cast. Ties resolve to the first
	// candidate in stable input order; the tie-break is deliberate.
	WinnerID            string    `json:"winner_id,omitempty"`
	TotalEligibleVoters int       `json:"total_eligible_voters"`
	QuorumRequired      int       `json:"quorum_required"`
	HasQuorum           bool      `json:"has_quorum"`
	IsCompleted         bool      `json:"is_completed"`
	ComputedAt          time.Time `json:"computed_at"`
}
