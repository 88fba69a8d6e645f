package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/client"
	"voting-service/internal/models"
	"voting-service/internal/util"
)

const (
	sessionDataPrefix  = "session_data:"
	userSessionsPrefix = "user_sessions:"
)

// SessionCache is the hot path for session resolution. Misses fall
// through to the durable store; entries are written back on read.
type SessionCache struct {
	client *client.RedisClient
}

func NewSessionCache(client *client.RedisClient) *SessionCache {
	return &SessionCache{client: client}
}

func (c *SessionCache) SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := c.client.Pipeline()
	dataKey := sessionDataPrefix + session.SessionID.String()
	pipe.Set(ctx, dataKey, raw, ttl)

	userKey := userSessionsPrefix + session.UserID.String()
	pipe.SAdd(ctx, userKey, session.SessionID.String())
	pipe.Expire(ctx, userKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		util.Error("Failed to cache session",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to cache session: %w", err)
	}

	util.Debug("Session cached",
		zap.String("session_id", session.SessionID.String()),
		zap.Duration("ttl", ttl))
	return nil
}

// GetSession returns (nil, nil) on a cache miss.
func (c *SessionCache) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	key := sessionDataPrefix + sessionID.String()

	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if strings.HasPrefix(err.Error(), "key not found") {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached session: %w", err)
	}

	session := &models.Session{}
	if err := json.Unmarshal([]byte(raw), session); err != nil {
		_ = c.client.Del(ctx, key)
		return nil, nil
	}

	return session, nil
}

func (c *SessionCache) InvalidateSession(ctx context.Context, sessionID, userID uuid.UUID) error {
	pipe := c.client.Pipeline()
	pipe.Del(ctx, sessionDataPrefix+sessionID.String())
	pipe.SRem(ctx, userSessionsPrefix+userID.String(), sessionID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cached session: %w", err)
	}
	return nil
}

// GetUserSessions returns the cached session IDs for a user. Used when
// revoking every session a user holds.
func (c *SessionCache) GetUserSessions(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	members, err := c.client.SMembers(ctx, userSessionsPrefix+userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get user sessions: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *SessionCache) InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error {
	ids, err := c.GetUserSessions(ctx, userID)
	if err != nil {
		return err
	}

	pipe := c.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionDataPrefix+id.String())
	}
	pipe.Del(ctx, userSessionsPrefix+userID.String())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to invalidate user sessions: %w", err)
	}

	util.Info("User sessions invalidated in cache",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(ids)))
	return nil
}
