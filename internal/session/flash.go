package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Flash categories.
const (
	CategorySuccess = "success"
	CategoryInfo    = "info"
	CategoryDanger  = "danger"
)

// Flash is a one-shot notice shown on the next page the client loads.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// FlashStore queues notices per client.
type FlashStore interface {
	Push(ctx context.Context, clientID string, flash Flash) error
	// Pop returns and removes every pending notice, oldest first.
	Pop(ctx context.Context, clientID string) ([]Flash, error)
}

type redisFlashStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFlashStore keeps notices in a Redis list per client that expires
// after ttl of inactivity.
func NewRedisFlashStore(client *redis.Client, ttl time.Duration) FlashStore {
	return &redisFlashStore{client: client, ttl: ttl}
}

func flashKey(clientID string) string {
	return "helpdesk:flash:" + clientID
}

func (s *redisFlashStore) Push(ctx context.Context, clientID string, flash Flash) error {
	payload, err := json.Marshal(flash)
	if err != nil {
		return err
	}
	key := flashKey(clientID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, payload)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

func (s *redisFlashStore) Pop(ctx context.Context, clientID string) ([]Flash, error) {
	key := flashKey(clientID)
	var lrange *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		lrange = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	raw := lrange.Val()
	flashes := make([]Flash, 0, len(raw))
	for _, item := range raw {
		var f Flash
		if err := json.Unmarshal([]byte(item), &f); err != nil {
			continue
		}
		flashes = append(flashes, f)
	}
	return flashes, nil
}
