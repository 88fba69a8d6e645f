package scylla

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/models"
	"voting-service/internal/util"
)

type electionRepository struct {
	client *ScyllaClient
}

func NewElectionRepository(client *ScyllaClient) ElectionRepository {
	return &electionRepository{client: client}
}

func (r *electionRepository) CreateElection(ctx context.Context, election *models.Election) error {
	if election.ID == uuid.Nil {
		election.ID = uuid.New()
	}
	if election.CreatedAt.IsZero() {
		election.CreatedAt = time.Now().UTC()
	}

	err := r.client.Query(r.client.Prepared.CreateElection.Statement(),
		election.ID, election.Title, string(election.VotingMethod), election.TotalAreaManual,
		election.StartTime, election.EndTime, election.IsActive, election.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		util.Error("Failed to create election",
			zap.String("election_id", election.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create election: %w", err)
	}

	util.Info("Election created",
		zap.String("election_id", election.ID.String()),
		zap.String("voting_method", string(election.VotingMethod)))
	return nil
}

func (r *electionRepository) GetElectionByID(ctx context.Context, electionID uuid.UUID) (*models.Election, error) {
	election := &models.Election{}
	var method string

	err := r.client.Query(r.client.Prepared.GetElectionByID.Statement(), electionID).
		WithContext(ctx).Scan(
		&election.ID, &election.Title, &method, &election.TotalAreaManual,
		&election.StartTime, &election.EndTime, &election.IsActive, &election.CreatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}

	election.VotingMethod = models.VotingMethod(method)
	return election, nil
}

func (r *electionRepository) ListElections(ctx context.Context) ([]*models.Election, error) {
	iter := r.client.Query(r.client.Prepared.ListElections.Statement()).
		WithContext(ctx).Iter()

	var elections []*models.Election
	for {
		election := &models.Election{}
		var method string
		if !iter.Scan(&election.ID, &election.Title, &method, &election.TotalAreaManual,
			&election.StartTime, &election.EndTime, &election.IsActive, &election.CreatedAt) {
			break
		}
		election.VotingMethod = models.VotingMethod(method)
		elections = append(elections, election)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}

	sort.SliceStable(elections, func(i, j int) bool {
		return elections[i].CreatedAt.After(elections[j].CreatedAt)
	})

	return elections, nil
}

func (r *electionRepository) CloseElection(ctx context.Context, electionID uuid.UUID) error {
	err := r.client.Query(r.client.Prepared.CloseElection.Statement(), false, electionID).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to close election: %w", err)
	}

	util.Info("Election closed", zap.String("election_id", electionID.String()))
	return nil
}

func (r *electionRepository) CreateCandidate(ctx context.Context, candidate *models.Candidate) error {
	if candidate.ID == uuid.Nil {
		candidate.ID = uuid.New()
	}
	if candidate.CreatedAt.IsZero() {
		candidate.CreatedAt = time.Now().UTC()
	}

	err := r.client.Query(r.client.Prepared.CreateCandidate.Statement(),
		candidate.ElectionID, candidate.ID, candidate.Name, candidate.IsActive, candidate.CreatedAt).
		WithContext(ctx).Exec()
	if err != nil {
		util.Error("Failed to create candidate",
			zap.String("election_id", candidate.ElectionID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// GetCandidates returns candidates in registration order. Tallies depend on
// this order for deterministic tie-breaking.
func (r *electionRepository) GetCandidates(ctx context.Context, electionID uuid.UUID) ([]*models.Candidate, error) {
	iter := r.client.Query(r.client.Prepared.GetCandidates.Statement(), electionID).
		WithContext(ctx).Iter()

	var candidates []*models.Candidate
	for {
		candidate := &models.Candidate{}
		if !iter.Scan(&candidate.ElectionID, &candidate.ID, &candidate.Name,
			&candidate.IsActive, &candidate.CreatedAt) {
			break
		}
		candidates = append(candidates, candidate)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	return candidates, nil
}

func (r *electionRepository) DeactivateCandidate(ctx context.Context, electionID, candidateID uuid.UUID) error {
	err := r.client.Query(r.client.Prepared.DeactivateCandidate.Statement(),
		false, electionID, candidateID).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to deactivate candidate: %w", err)
	}
	return nil
}
