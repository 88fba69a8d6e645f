package voting

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"voting-service/internal/models"
	"voting-service/internal/repository/scylla"
)

// Admission denial reasons. These are the only errors CanVote surfaces,
// and they are returned to callers verbatim.
var (
	ErrElectionNotFound      = errors.New("election not found")
	ErrElectionNotActive     = errors.New("election is not active")
	ErrElectionNotStarted    = errors.New("election has not started yet")
	ErrElectionEnded         = errors.New("election has ended")
	ErrAlreadyVoted          = errors.New("already voted")
	ErrAccountInactive       = errors.New("account inactive")
	ErrApartmentSizeRequired = errors.New("apartment size required")
	ErrCandidateNotFound     = errors.New("candidate not found")
)

// Decision is the outcome of an admission check.
type Decision struct {
	CanVote bool
	Reason  error
}

// AdmissionController answers whether a voter may cast a ballot right now.
// The answer is advisory: the persistence layer re-checks uniqueness
// atomically on insert, because admission and insert are separated by IO.
type AdmissionController struct {
	elections scylla.ElectionRepository
	votes     scylla.VoteRepository
	voters    scylla.VoterRepository
	now       func() time.Time
}

func NewAdmissionController(elections scylla.ElectionRepository, votes scylla.VoteRepository,
	voters scylla.VoterRepository) *AdmissionController {
	return &AdmissionController{
		elections: elections,
		votes:     votes,
		voters:    voters,
		now:       time.Now,
	}
}

// CanVote runs the admission checks in a fixed order so the earliest,
// most specific failure is the one reported:
//
//  1. election exists and is active
//  2. now falls inside the voting window
//  3. no unrevoked ballot exists for (voter, election)
//  4. the voter account is active
//  5. weighted methods require a positive apartment size
func (a *AdmissionController) CanVote(ctx context.Context, userID, electionID uuid.UUID) (Decision, error) {
	election, err := a.elections.GetElectionByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, scylla.ErrElectionNotFound) {
			return Decision{Reason: ErrElectionNotFound}, nil
		}
		return Decision{}, err
	}
	if !election.IsActive {
		return Decision{Reason: ErrElectionNotActive}, nil
	}

	now := a.now().UTC()
	if now.Before(election.StartTime) {
		return Decision{Reason: ErrElectionNotStarted}, nil
	}
	if now.After(election.EndTime) {
		return Decision{Reason: ErrElectionEnded}, nil
	}

	_, err = a.votes.GetVote(ctx, electionID, userID)
	if err == nil {
		return Decision{Reason: ErrAlreadyVoted}, nil
	}
	if !errors.Is(err, scylla.ErrVoteNotFound) {
		return Decision{}, err
	}

	voter, err := a.voters.GetVoterByID(ctx, userID)
	if err != nil {
		if errors.Is(err, scylla.ErrVoterNotFound) {
			return Decision{Reason: ErrAccountInactive}, nil
		}
		return Decision{}, err
	}
	if !voter.IsActive || voter.BlockActive(now) {
		return Decision{Reason: ErrAccountInactive}, nil
	}

	if election.VotingMethod != models.OnePersonOneVote && voter.ApartmentSize <= 0 {
		return Decision{Reason: ErrApartmentSizeRequired}, nil
	}

	return Decision{CanVote: true}, nil
}

// IsAdmissionError reports whether err is an expected admission denial
// rather than an infrastructure failure.
func IsAdmissionError(err error) bool {
	for _, denial := range []error{
		ErrElectionNotFound, ErrElectionNotActive, ErrElectionNotStarted,
		ErrElectionEnded, ErrAlreadyVoted, ErrAccountInactive,
		ErrApartmentSizeRequired, ErrCandidateNotFound,
	} {
		if errors.Is(err, denial) {
			return true
		}
	}
	return false
}
