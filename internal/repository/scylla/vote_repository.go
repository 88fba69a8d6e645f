package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/models"
	"voting-service/internal/util"
)

type voteRepository struct {
	client *ScyllaClient
}

func NewVoteRepository(client *ScyllaClient) VoteRepository {
	return &voteRepository{client: client}
}

// InsertVoteIfAbsent records a ballot only when no ballot exists yet for
// this voter in this election. Returns false when a ballot was already
// present. The check and the insert are a single LWT round trip, so two
// concurrent casts can never both succeed.
func (r *voteRepository) InsertVoteIfAbsent(ctx context.Context, vote *models.Vote) (bool, error) {
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	if vote.CastAt.IsZero() {
		vote.CastAt = time.Now().UTC()
	}

	applied, err := r.client.Query(r.client.Prepared.InsertVoteIfAbsent.Statement(),
		vote.ElectionID, vote.UserID, vote.ID, vote.CandidateID, vote.Weight, vote.CastAt).
		WithContext(ctx).ScanCAS(nil, nil, nil, nil, nil, nil)
	if err != nil {
		util.Error("Failed to insert vote",
			zap.String("election_id", vote.ElectionID.String()),
			zap.String("user_id", vote.UserID.String()),
			zap.Error(err))
		return false, fmt.Errorf("failed to insert vote: %w", err)
	}

	return applied, nil
}

func (r *voteRepository) GetVote(ctx context.Context, electionID, userID uuid.UUID) (*models.Vote, error) {
	vote := &models.Vote{}

	err := r.client.Query(r.client.Prepared.GetVote.Statement(), electionID, userID).
		WithContext(ctx).Scan(
		&vote.ElectionID, &vote.UserID, &vote.ID, &vote.CandidateID, &vote.Weight, &vote.CastAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrVoteNotFound
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}

	return vote, nil
}

// DeleteVoteIfExists removes a ballot and reports whether one was present.
// Calling it twice is safe; the second call reports false.
func (r *voteRepository) DeleteVoteIfExists(ctx context.Context, electionID, userID uuid.UUID) (bool, error) {
	applied, err := r.client.Query(r.client.Prepared.DeleteVoteIfExists.Statement(),
		electionID, userID).WithContext(ctx).ScanCAS()
	if err != nil {
		return false, fmt.Errorf("failed to delete vote: %w", err)
	}

	return applied, nil
}

func (r *voteRepository) GetVotesByElection(ctx context.Context, electionID uuid.UUID) ([]*models.Vote, error) {
	iter := r.client.Query(r.client.Prepared.GetVotesByElection.Statement(), electionID).
		WithContext(ctx).Iter()

	var votes []*models.Vote
	for {
		vote := &models.Vote{}
		if !iter.Scan(&vote.ElectionID, &vote.UserID, &vote.ID,
			&vote.CandidateID, &vote.Weight, &vote.CastAt) {
			break
		}
		votes = append(votes, vote)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to get votes: %w", err)
	}

	return votes, nil
}
