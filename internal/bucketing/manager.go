package bucketing

import (
	"hash"
	"sync"
	"time"

	"voting-service/internal/config"

	"github.com/google/uuid"
	"github.com/spaolacci/murmur3"
)

// BucketingManager assigns stable partition buckets for storage keys.
// User buckets spread voter rows across Scylla partitions; event buckets
// spread the security event log.
type BucketingManager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewBucketingManager(cfg *config.Config) *BucketingManager {
	bm := &BucketingManager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
	}

	// Pool of hash functions to avoid allocation overhead
	bm.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return bm
}

// GetUserBucket returns the consistent bucket for a user (0 to userBuckets-1).
func (bm *BucketingManager) GetUserBucket(userID uuid.UUID) int {
	return bm.getBucket(userID.String(), bm.userBuckets)
}

// UserBucketCount reports how many user buckets exist, for full scans.
func (bm *BucketingManager) UserBucketCount() int {
	return bm.userBuckets
}

// GetEventBucket returns the bucket for a security event identifier.
func (bm *BucketingManager) GetEventBucket(identifier string) int {
	return bm.getBucket(identifier, bm.eventBuckets)
}

// GetDateBucket returns the UTC date partition for event rows.
func (bm *BucketingManager) GetDateBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (bm *BucketingManager) getBucket(key string, buckets int) int {
	h := bm.hasherPool.Get().(hash.Hash64)
	defer bm.hasherPool.Put(h)

	h.Reset()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(buckets))
}
