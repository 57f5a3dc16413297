package results

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "estimate:result:"

// RedisStore stores estimate results in redis with a TTL, surviving process
// restarts and shared across replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a redis-backed store from a redis URL.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return &RedisStore{
		client: redis.NewClient(opt),
		ttl:    ttl,
	}, nil
}

// Close releases the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Put stores the record under its callback id with the configured TTL.
func (s *RedisStore) Put(ctx context.Context, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+record.CallbackID, data, s.ttl).Err()
}

// Get fetches a stored record; a missing key is not an error.
func (s *RedisStore) Get(ctx context.Context, callbackID string) (Record, bool, error) {
	data, err := s.client.Get(ctx, keyPrefix+callbackID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, false, err
	}
	return record, true, nil
}
