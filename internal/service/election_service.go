package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/models"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/security"
	"voting-service/internal/util"
	"voting-service/internal/voting"
)

var ErrInvalidElection = errors.New("invalid election definition")

// CreateElectionRequest defines a new election.
type CreateElectionRequest struct {
	Title           string              `json:"title"`
	VotingMethod    models.VotingMethod `json:"voting_method"`
	TotalAreaManual float64             `json:"total_area_manual,omitempty"`
	StartTime       time.Time           `json:"start_time"`
	EndTime         time.Time           `json:"end_time"`
}

// ElectionService manages election setup. Configuration invariants are
// enforced here, at setup time, so they can never fail a vote cast.
type ElectionService struct {
	elections scylla.ElectionRepository
	recorder  security.Recorder
}

func NewElectionService(elections scylla.ElectionRepository, recorder security.Recorder) *ElectionService {
	return &ElectionService{
		elections: elections,
		recorder:  recorder,
	}
}

func (s *ElectionService) CreateElection(ctx context.Context, actor *models.SessionData,
	req CreateElectionRequest, meta models.RequestMeta) (*models.Election, error) {
	if !actor.Role.Can(models.CapManageElections) {
		return nil, ErrPermissionDenied
	}

	title := strings.TrimSpace(req.Title)
	if title == "" || req.EndTime.IsZero() || !req.EndTime.After(req.StartTime) {
		return nil, ErrInvalidElection
	}

	election := &models.Election{
		ID:              uuid.New(),
		Title:           util.SanitizeInput(title),
		VotingMethod:    req.VotingMethod,
		TotalAreaManual: req.TotalAreaManual,
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		IsActive:        true,
	}

	switch election.VotingMethod {
	case models.OnePersonOneVote, models.WeightedBySizeManual, models.WeightedBySizeVoters:
	default:
		return nil, ErrInvalidElection
	}

	if err := election.Validate(); err != nil {
		return nil, err
	}

	if err := s.elections.CreateElection(ctx, election); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, models.EventElectionCreated, models.SeverityLow,
		actor.UserID, meta, models.EventDetails{
			ElectionID: election.ID.String(),
			Method:     string(election.VotingMethod),
		})

	return election, nil
}

func (s *ElectionService) AddCandidate(ctx context.Context, actor *models.SessionData,
	electionID uuid.UUID, name string) (*models.Candidate, error) {
	if !actor.Role.Can(models.CapManageElections) {
		return nil, ErrPermissionDenied
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidElection
	}

	if _, err := s.elections.GetElectionByID(ctx, electionID); err != nil {
		if errors.Is(err, scylla.ErrElectionNotFound) {
			return nil, voting.ErrElectionNotFound
		}
		return nil, err
	}

	candidate := &models.Candidate{
		ID:         uuid.New(),
		ElectionID: electionID,
		Name:       util.SanitizeInput(name),
		IsActive:   true,
	}

	if err := s.elections.CreateCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	util.Info("Candidate added",
		zap.String("election_id", electionID.String()),
		zap.String("candidate_id", candidate.ID.String()))

	return candidate, nil
}

// GetElection returns an election together with its candidates.
func (s *ElectionService) GetElection(ctx context.Context, electionID uuid.UUID) (*models.Election, []*models.Candidate, error) {
	election, err := s.elections.GetElectionByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, scylla.ErrElectionNotFound) {
			return nil, nil, voting.ErrElectionNotFound
		}
		return nil, nil, err
	}

	candidates, err := s.elections.GetCandidates(ctx, electionID)
	if err != nil {
		return nil, nil, err
	}

	return election, candidates, nil
}

// ListElections returns all elections, newest first.
func (s *ElectionService) ListElections(ctx context.Context) ([]*models.Election, error) {
	return s.elections.ListElections(ctx)
}

// CloseElection deactivates an election ahead of its end time.
func (s *ElectionService) CloseElection(ctx context.Context, actor *models.SessionData, electionID uuid.UUID) error {
	if !actor.Role.Can(models.CapManageElections) {
		return ErrPermissionDenied
	}

	if _, err := s.elections.GetElectionByID(ctx, electionID); err != nil {
		if errors.Is(err, scylla.ErrElectionNotFound) {
			return voting.ErrElectionNotFound
		}
		return err
	}

	return s.elections.CloseElection(ctx, electionID)
}
