package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/config"
	"voting-service/internal/models"
	"voting-service/internal/ratelimit"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/security"
	"voting-service/internal/util"
	"voting-service/internal/voting"
)

var (
	ErrRateLimited        = errors.New("too many attempts, try again later")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnauthenticated    = errors.New("authentication required")
)

// CastVoteRequest is one vote-cast attempt.
type CastVoteRequest struct {
	VoterID     uuid.UUID
	CandidateID uuid.UUID
	ElectionID  uuid.UUID
	Meta        models.RequestMeta
}

// VotingService owns the cast / revoke / results pipeline. Every cast
// attempt appends exactly one security event, success or not.
type VotingService struct {
	admission *voting.AdmissionController
	tallier   *voting.Tallier
	votes     scylla.VoteRepository
	voters    scylla.VoterRepository
	elections scylla.ElectionRepository
	limiter   *ratelimit.Limiter
	policies  config.RateLimitConfig
	recorder  security.Recorder
	now       func() time.Time
}

func NewVotingService(admission *voting.AdmissionController, tallier *voting.Tallier,
	votes scylla.VoteRepository, voters scylla.VoterRepository, elections scylla.ElectionRepository,
	limiter *ratelimit.Limiter, policies config.RateLimitConfig, recorder security.Recorder) *VotingService {
	return &VotingService{
		admission: admission,
		tallier:   tallier,
		votes:     votes,
		voters:    voters,
		elections: elections,
		limiter:   limiter,
		policies:  policies,
		recorder:  recorder,
		now:       time.Now,
	}
}

// CastVote runs the full admission pipeline and persists the ballot. The
// persisted insert is the only authority on uniqueness: a conflict there is
// reported as "already voted" no matter what the advisory check said.
func (s *VotingService) CastVote(ctx context.Context, req CastVoteRequest) (uuid.UUID, error) {
	limitKey := fmt.Sprintf("vote:%s:%s", req.VoterID, req.ElectionID)
	result, err := s.limiter.Check(ctx, limitKey, s.policies.Vote)
	if err != nil {
		return uuid.Nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !result.Allowed {
		s.recorder.Record(ctx, models.EventVoteFailedLimited, models.SeverityMedium,
			req.VoterID, req.Meta, models.EventDetails{
				ElectionID: req.ElectionID.String(),
				Reason:     "vote rate limit exceeded",
			})
		return uuid.Nil, ErrRateLimited
	}

	decision, err := s.admission.CanVote(ctx, req.VoterID, req.ElectionID)
	if err != nil {
		return uuid.Nil, err
	}
	if !decision.CanVote {
		return uuid.Nil, s.denyCast(ctx, req, decision.Reason)
	}

	candidate, err := s.findCandidate(ctx, req.ElectionID, req.CandidateID)
	if err != nil {
		return uuid.Nil, err
	}
	if candidate == nil {
		return uuid.Nil, s.denyCast(ctx, req, voting.ErrCandidateNotFound)
	}

	election, err := s.elections.GetElectionByID(ctx, req.ElectionID)
	if err != nil {
		return uuid.Nil, err
	}
	voter, err := s.voters.GetVoterByID(ctx, req.VoterID)
	if err != nil {
		return uuid.Nil, err
	}

	weight, methodKnown := voting.Weight(election.VotingMethod, voter)
	if !methodKnown {
		s.recorder.Record(ctx, models.EventAnomalousMethod, models.SeverityLow,
			req.VoterID, req.Meta, models.EventDetails{
				ElectionID: req.ElectionID.String(),
				Method:     string(election.VotingMethod),
			})
	}

	vote := &models.Vote{
		ID:          uuid.New(),
		UserID:      req.VoterID,
		CandidateID: req.CandidateID,
		ElectionID:  req.ElectionID,
		Weight:      weight,
	}

	applied, err := s.votes.InsertVoteIfAbsent(ctx, vote)
	if err != nil {
		return uuid.Nil, err
	}
	if !applied {
		// Lost the race against a concurrent cast by the same voter.
		return uuid.Nil, s.denyCast(ctx, req, voting.ErrAlreadyVoted)
	}

	s.recorder.Record(ctx, models.EventVoteCast, models.SeverityLow,
		req.VoterID, req.Meta, models.EventDetails{
			ElectionID: req.ElectionID.String(),
			VoteID:     vote.ID.String(),
			Weight:     weight,
		})

	util.Info("Vote cast",
		zap.String("election_id", req.ElectionID.String()),
		zap.String("vote_id", vote.ID.String()))

	return vote.ID, nil
}

func (s *VotingService) denyCast(ctx context.Context, req CastVoteRequest, reason error) error {
	s.recorder.Record(ctx, models.EventVoteFailedDenied, models.SeverityLow,
		req.VoterID, req.Meta, models.EventDetails{
			ElectionID: req.ElectionID.String(),
			Reason:     reason.Error(),
		})
	return reason
}

func (s *VotingService) findCandidate(ctx context.Context, electionID, candidateID uuid.UUID) (*models.Candidate, error) {
	candidates, err := s.elections.GetCandidates(ctx, electionID)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if candidate.ID == candidateID && candidate.IsActive {
			return candidate, nil
		}
	}
	return nil, nil
}

// RevokeVote withdraws the caller's own ballot while the election is open.
// Revoking when no ballot exists is a no-op, not an error, and appends no
// duplicate event.
func (s *VotingService) RevokeVote(ctx context.Context, voterID, electionID uuid.UUID, meta models.RequestMeta) error {
	election, err := s.elections.GetElectionByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, scylla.ErrElectionNotFound) {
			return voting.ErrElectionNotFound
		}
		return err
	}

	now := s.now().UTC()
	if !election.IsActive {
		return voting.ErrElectionNotActive
	}
	if !election.Open(now) {
		return voting.ErrElectionEnded
	}

	applied, err := s.votes.DeleteVoteIfExists(ctx, electionID, voterID)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	s.recorder.Record(ctx, models.EventVoteRevoked, models.SeverityLow,
		voterID, meta, models.EventDetails{ElectionID: electionID.String()})

	util.Info("Vote revoked",
		zap.String("election_id", electionID.String()),
		zap.String("user_id", voterID.String()))
	return nil
}

// Results computes a tally snapshot for the election.
func (s *VotingService) Results(ctx context.Context, electionID uuid.UUID) (*models.VotingSummary, error) {
	summary, err := s.tallier.Tally(ctx, electionID)
	if err != nil {
		if errors.Is(err, scylla.ErrElectionNotFound) {
			return nil, voting.ErrElectionNotFound
		}
		return nil, err
	}
	return summary, nil
}
