package scylla

import (
	"context"
	"errors"
	"time"

	"voting-service/internal/models"

	"github.com/google/uuid"
)

var (
	ErrVoterNotFound    = errors.New("voter not found")
	ErrElectionNotFound = errors.New("election not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrVoteNotFound     = errors.New("vote not found")
)

// VoterRepository defines voter storage operations
type VoterRepository interface {
	CreateVoter(ctx context.Context, voter *models.Voter) error
	GetVoterByID(ctx context.Context, userID uuid.UUID) (*models.Voter, error)
	GetVoterByEmail(ctx context.Context, email string) (*models.Voter, error)
	BlockVoter(ctx context.Context, userID uuid.UUID, reason string, expiry *time.Time) error
	UnblockVoter(ctx context.Context, userID uuid.UUID) error
	ListVoters(ctx context.Context) ([]*models.Voter, error)
}

// ElectionRepository defines election and candidate storage operations
type ElectionRepository interface {
	CreateElection(ctx context.Context, election *models.Election) error
	GetElectionByID(ctx context.Context, electionID uuid.UUID) (*models.Election, error)
	ListElections(ctx context.Context) ([]*models.Election, error)
	CloseElection(ctx context.Context, electionID uuid.UUID) error
	CreateCandidate(ctx context.Context, candidate *models.Candidate) error
	GetCandidates(ctx context.Context, electionID uuid.UUID) ([]*models.Candidate, error)
	DeactivateCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error
}

// VoteRepository defines ballot storage operations. InsertVoteIfAbsent is
// the single admission point for ballots and must be atomic per
// (electionID, userID).
type VoteRepository interface {
	InsertVoteIfAbsent(ctx context.Context, vote *models.Vote) (bool, error)
	GetVote(ctx context.Context, electionID, userID uuid.UUID) (*models.Vote, error)
	DeleteVoteIfExists(ctx context.Context, electionID, userID uuid.UUID) (bool, error)
	GetVotesByElection(ctx context.Context, electionID uuid.UUID) ([]*models.Vote, error)
}

// SessionRepository defines the durable session store
type SessionRepository interface {
	CreateSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	GetUserSessions(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	GetFamilySessions(ctx context.Context, familyID uuid.UUID) ([]uuid.UUID, error)
}
