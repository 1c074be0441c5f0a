package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const preferenceKeyPrefix = "report:preferences:"

// RedisPreferenceStore keeps user preferences in one Redis hash per user.
// Calls go through a circuit breaker so an unavailable Redis fails fast.
type RedisPreferenceStore struct {
	client *redis.Client
	cb     *gobreaker.CircuitBreaker
}

// NewRedisPreferenceStore constructs the store.
func NewRedisPreferenceStore(client *redis.Client, cb *gobreaker.CircuitBreaker) *RedisPreferenceStore {
	return &RedisPreferenceStore{client: client, cb: cb}
}

func preferenceKey(userID int64) string {
	return fmt.Sprintf("%s%d", preferenceKeyPrefix, userID)
}

// Get returns the stored value and whether one exists.
func (s *RedisPreferenceStore) Get(ctx context.Context, userID int64, name string) (string, bool, error) {
	key := preferenceKey(userID)
	result, err := s.cb.Execute(func() (interface{}, error) {
		value, err := s.client.HGet(ctx, key, name).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return value, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s %s: %w", key, name, err)
	}
	if result == nil {
		return "", false, nil
	}
	return result.(string), true, nil
}

// Set stores a preference value.
func (s *RedisPreferenceStore) Set(ctx context.Context, userID int64, name, value string) error {
	key := preferenceKey(userID)
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.client.HSet(ctx, key, name, value).Err()
	})
	if err != nil {
		return fmt.Errorf("redis hset %s %s: %w", key, name, err)
	}
	return nil
}
