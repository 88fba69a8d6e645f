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

type sessionRepository struct {
	client *ScyllaClient
}

func NewSessionRepository(client *ScyllaClient) SessionRepository {
	return &sessionRepository{client: client}
}

func (r *sessionRepository) CreateSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	ttlSeconds := int(ttl.Seconds())

	batch := r.client.Session.NewBatch(gocql.LoggedBatch)

	batch.Query(r.client.Prepared.CreateSession.Statement(),
		session.SessionID, session.FamilyID, session.UserID, session.Email, string(session.Role),
		session.CreatedAt, session.FamilyCreatedAt, session.LastActivity, session.ExpiresAt,
		session.IPAddress, session.UserAgent, ttlSeconds)

	batch.Query(r.client.Prepared.AddFamilySession.Statement(),
		session.FamilyID, session.SessionID, session.CreatedAt, ttlSeconds)

	batch.Query(r.client.Prepared.AddUserSession.Statement(),
		session.UserID, session.SessionID, session.CreatedAt, ttlSeconds)

	if err := r.client.Session.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		util.Error("Failed to create session",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) GetSessionByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	var role string

	err := r.client.Query(r.client.Prepared.GetSessionByID.Statement(), sessionID).
		WithContext(ctx).Scan(
		&session.SessionID, &session.FamilyID, &session.UserID, &session.Email, &role,
		&session.CreatedAt, &session.FamilyCreatedAt, &session.LastActivity, &session.ExpiresAt,
		&session.IPAddress, &session.UserAgent)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Role = models.Role(role)
	return session, nil
}

func (r *sessionRepository) TouchSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	err := r.client.Query(r.client.Prepared.TouchSession.Statement(), at, sessionID).
		WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

func (r *sessionRepository) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := r.GetSessionByID(ctx, sessionID)
	if err != nil {
		if err == ErrSessionNotFound {
			return nil
		}
		return err
	}

	batch := r.client.Session.NewBatch(gocql.LoggedBatch)
	batch.Query(r.client.Prepared.DeleteSession.Statement(), sessionID)
	batch.Query(r.client.Prepared.RemoveUserSession.Statement(), session.UserID, sessionID)

	if err := r.client.Session.ExecuteBatch(batch.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetUserSessions(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.scanSessionIDs(
		r.client.Query(r.client.Prepared.GetUserSessions.Statement(), userID).WithContext(ctx),
		"user sessions")
}

func (r *sessionRepository) GetFamilySessions(ctx context.Context, familyID uuid.UUID) ([]uuid.UUID, error) {
	return r.scanSessionIDs(
		r.client.Query(r.client.Prepared.GetFamilySessions.Statement(), familyID).WithContext(ctx),
		"family sessions")
}

func (r *sessionRepository) scanSessionIDs(query *gocql.Query, what string) ([]uuid.UUID, error) {
	iter := query.Iter()

	var ids []uuid.UUID
	var id uuid.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}

	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return ids, nil
}
