package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/bucketing"
	"voting-service/internal/models"
	"voting-service/internal/util"
)

type voterRepository struct {
	client  *ScyllaClient
	buckets *bucketing.BucketingManager
}

func NewVoterRepository(client *ScyllaClient, buckets *bucketing.BucketingManager) VoterRepository {
	return &voterRepository{
		client:  client,
		buckets: buckets,
	}
}

func (r *voterRepository) CreateVoter(ctx context.Context, voter *models.Voter) error {
	if voter.UserID == uuid.Nil {
		voter.UserID = uuid.New()
	}
	if voter.CreatedAt.IsZero() {
		voter.CreatedAt = time.Now().UTC()
	}

	bucket := r.buckets.GetUserBucket(voter.UserID)

	// Batch keeps the email lookup row in step with the voter row.
	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.CreateVoter.Statement(),
		bucket, voter.UserID, voter.Email, voter.PasswordDigest, string(voter.Role),
		voter.ApartmentSize, voter.IsActive, voter.IsBlocked, voter.BlockedReason, voter.BlockExpiry,
		voter.CreatedAt)

	batch.Query(r.client.Prepared.CreateEmailToVoter.Statement(),
		voter.Email, bucket, voter.UserID, voter.CreatedAt)

	if err := r.client.Session.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		util.Error("Failed to create voter",
			zap.String("user_id", voter.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create voter: %w", err)
	}

	util.Info("Voter created",
		zap.String("user_id", voter.UserID.String()),
		zap.String("role", string(voter.Role)))

	return nil
}

func (r *voterRepository) GetVoterByID(ctx context.Context, userID uuid.UUID) (*models.Voter, error) {
	bucket := r.buckets.GetUserBucket(userID)
	return r.scanVoter(r.client.Query(r.client.Prepared.GetVoterByID.Statement(), bucket, userID).WithContext(ctx))
}

func (r *voterRepository) GetVoterByEmail(ctx context.Context, email string) (*models.Voter, error) {
	var bucket int
	var userID uuid.UUID

	err := r.client.Query(r.client.Prepared.GetVoterByEmail.Statement(), email).
		WithContext(ctx).Scan(&bucket, &userID)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to look up voter by email: %w", err)
	}

	return r.scanVoter(r.client.Query(r.client.Prepared.GetVoterByID.Statement(), bucket, userID).WithContext(ctx))
}

func (r *voterRepository) scanVoter(query *gocql.Query) (*models.Voter, error) {
	voter := &models.Voter{}
	var bucket int
	var role string

	err := query.Scan(
		&bucket, &voter.UserID, &voter.Email, &voter.PasswordDigest, &role,
		&voter.ApartmentSize, &voter.IsActive, &voter.IsBlocked, &voter.BlockedReason, &voter.BlockExpiry,
		&voter.CreatedAt)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}

	voter.Role = models.Role(role)
	return voter, nil
}

func (r *voterRepository) BlockVoter(ctx context.Context, userID uuid.UUID, reason string, expiry *time.Time) error {
	bucket := r.buckets.GetUserBucket(userID)

	err := r.client.Query(r.client.Prepared.BlockVoter.Statement(),
		true, reason, expiry, bucket, userID).WithContext(ctx).Exec()
	if err != nil {
		util.Error("Failed to block voter",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to block voter: %w", err)
	}

	util.Warn("Voter blocked",
		zap.String("user_id", userID.String()),
		zap.String("reason", reason))
	return nil
}

func (r *voterRepository) UnblockVoter(ctx context.Context, userID uuid.UUID) error {
	bucket := r.buckets.GetUserBucket(userID)

	err := r.client.Query(r.client.Prepared.UnblockVoter.Statement(),
		false, "", nil, bucket, userID).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to unblock voter: %w", err)
	}

	util.Info("Voter unblocked", zap.String("user_id", userID.String()))
	return nil
}

// ListVoters walks all user buckets. The voter population of a complex is
// small, so the full scan stays cheap.
func (r *voterRepository) ListVoters(ctx context.Context) ([]*models.Voter, error) {
	var voters []*models.Voter

	for bucket := 0; bucket < r.buckets.UserBucketCount(); bucket++ {
		iter := r.client.Query(r.client.Prepared.ListVoters.Statement(), bucket).
			WithContext(ctx).Iter()

		for {
			voter := &models.Voter{}
			var b int
			var role string
			if !iter.Scan(
				&b, &voter.UserID, &voter.Email, &voter.PasswordDigest, &role,
				&voter.ApartmentSize, &voter.IsActive, &voter.IsBlocked, &voter.BlockedReason, &voter.BlockExpiry,
				&voter.CreatedAt) {
				break
			}
			voter.Role = models.Role(role)
			voters = append(voters, voter)
		}

		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("failed to list voters in bucket %d: %w", bucket, err)
		}
	}

	return voters, nil
}
