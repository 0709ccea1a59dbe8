package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeKeyPrefix = "otp:chal:"

// RedisChallenges implements ChallengeStore on Redis. The TTL doubles as the
// challenge expiry, so abandoned challenges clean themselves up.
type RedisChallenges struct {
	client *redis.Client
}

// NewRedisChallenges builds a Redis-backed challenge store.
func NewRedisChallenges(client *redis.Client) *RedisChallenges {
	return &RedisChallenges{client: client}
}

func challengeKey(id string) string { return challengeKeyPrefix + id }

// Put stores the challenge under its handle id with the given TTL.
func (s *RedisChallenges) Put(ctx context.Context, id string, ch Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, challengeKey(id), payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get loads a challenge. Expired and unknown handles both report not found.
func (s *RedisChallenges) Get(ctx context.Context, id string) (Challenge, error) {
	data, err := s.client.Get(ctx, challengeKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, errChallengeNotFound
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var ch Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return Challenge{}, errChallengeNotFound
	}
	return ch, nil
}

// Delete removes a consumed challenge.
func (s *RedisChallenges) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, challengeKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
