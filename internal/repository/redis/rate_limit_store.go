package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"voting-service/internal/client"
	"voting-service/internal/models"
	"voting-service/internal/util"
)

const rateLimitPrefix = "rate_limit:"

// RateLimitStore keeps rate limit entries in Redis so every instance
// sees the same attempt counts and blocks. Satisfies ratelimit.Store.
type RateLimitStore struct {
	client *client.RedisClient
}

func NewRateLimitStore(client *client.RedisClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

func (s *RateLimitStore) Get(ctx context.Context, identifier string) (*models.RateLimitEntry, error) {
	key := rateLimitPrefix + identifier

	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if strings.HasPrefix(err.Error(), "key not found") {
			return nil, nil
		}
		util.Error("Failed to get rate limit entry",
			zap.String("identifier", identifier),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get rate limit entry: %w", err)
	}

	entry := &models.RateLimitEntry{}
	if err := json.Unmarshal([]byte(raw), entry); err != nil {
		// Unreadable entry; treat as absent rather than failing open forever.
		util.Warn("Discarding corrupt rate limit entry", zap.String("identifier", identifier))
		_ = s.Delete(ctx, identifier)
		return nil, nil
	}

	return entry, nil
}

func (s *RateLimitStore) Put(ctx context.Context, entry *models.RateLimitEntry, ttl time.Duration) error {
	key := rateLimitPrefix + entry.Identifier

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal rate limit entry: %w", err)
	}

	if ttl <= 0 {
		ttl = time.Second
	}

	if err := s.client.Set(ctx, key, string(raw), ttl); err != nil {
		util.Error("Failed to store rate limit entry",
			zap.String("identifier", entry.Identifier),
			zap.Error(err))
		return fmt.Errorf("failed to store rate limit entry: %w", err)
	}
	return nil
}

func (s *RateLimitStore) Delete(ctx context.Context, identifier string) error {
	if err := s.client.Del(ctx, rateLimitPrefix+identifier); err != nil {
		return fmt.Errorf("failed to delete rate limit entry: %w", err)
	}
	return nil
}
