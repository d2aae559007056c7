// Package idempotency remembers completed responses per Idempotency-Key so a
// retried checkout replays the first result instead of creating a new order.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL        = 24 * time.Hour
	defaultPendingTTL = time.Minute
)

var ErrInFlight = errors.New("request with this idempotency key is still in progress")

// Response is a stored HTTP response.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

type record struct {
	State    string    `json:"state"`
	Response *Response `json:"response,omitempty"`
}

const (
	statePending = "pending"
	stateDone    = "done"
)

type RedisStore struct {
	client     redis.Cmdable
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, pendingTTL: defaultPendingTTL}
}

func cacheKey(scope, key string) string {
	return fmt.Sprintf("checkout:idem:%s:%s", scope, key)
}

// Begin claims key for scope. It returns (nil, nil) when the caller owns the
// key and should run the request, a stored Response when one exists, or
// ErrInFlight while another request holds the claim.
func (s *RedisStore) Begin(ctx context.Context, scope, key string) (*Response, error) {
	k := cacheKey(scope, key)
	pending, _ := json.Marshal(record{State: statePending})

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, pending, s.pendingTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx failed: %w", err)
		}
		if ok {
			return nil, nil
		}

		data, err := s.client.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			// claim expired between the two calls
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}

		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal idempotency record failed: %w", err)
		}
		if rec.State == stateDone && rec.Response != nil {
			return rec.Response, nil
		}
		return nil, ErrInFlight
	}
	return nil, ErrInFlight
}

// Complete stores resp for replay.
func (s *RedisStore) Complete(ctx context.Context, scope, key string, resp Response) error {
	data, err := json.Marshal(record{State: stateDone, Response: &resp})
	if err != nil {
		return fmt.Errorf("marshal idempotency record failed: %w", err)
	}
	if err := s.client.Set(ctx, cacheKey(scope, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Release drops a claim so the request may be retried.
func (s *RedisStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, cacheKey(scope, key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// NewClient parses a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
