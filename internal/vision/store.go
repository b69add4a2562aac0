package vision

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// Store caches extraction results for inline documents by content hash.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl == 0 {
		ttl = defaultCacheTTL
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
	}
}

func cacheKey(hash string) string {
	return "textract:" + hash
}

// Get returns nil, nil on a miss.
func (s *Store) Get(ctx context.Context, hash string) (*Result, error) {
	data, err := s.redis.Get(ctx, cacheKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Store) Put(ctx context.Context, hash string, res *Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, cacheKey(hash), data, s.ttl).Err()
}
