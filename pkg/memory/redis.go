package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const historyCap = 1000

// RedisStore keeps locator history in Redis so multiple workers testing the
// same pages share what they learn.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the Redis instance described by url
// (redis://host:port/db).
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

type attemptEntry struct {
	Locator string `json:"locator"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func attemptsKey(pageKey, elementKind string) string {
	return "webpilot:attempts:" + pageKey + ":" + elementKind
}

func successKey(pageKey, elementKind string) string {
	return "webpilot:success:" + pageKey + ":" + elementKind
}

func (s *RedisStore) ShouldAvoidLocator(ctx context.Context, pageKey, elementKind, locator string) (bool, error) {
	entries, err := s.client.LRange(ctx, attemptsKey(pageKey, elementKind), 0, recentWindow-1).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read locator history: %w", err)
	}

	failures := 0

	for _, raw := range entries {
		var entry attemptEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}

		if entry.Locator == locator && !entry.Success {
			failures++
		}
	}

	return failures >= avoidThreshold, nil
}

func (s *RedisStore) BestLocators(ctx context.Context, pageKey, elementKind string, limit int) ([]string, error) {
	locators, err := s.client.ZRevRange(ctx, successKey(pageKey, elementKind), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read best locators: %w", err)
	}

	return locators, nil
}

func (s *RedisStore) RecordOutcome(ctx context.Context, pageKey, elementKind, locator string, success bool, actionErr string) error {
	payload, err := json.Marshal(attemptEntry{Locator: locator, Success: success, Error: actionErr})
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	key := attemptsKey(pageKey, elementKind)
	pipe.LPush(ctx, key, payload)
	pipe.LTrim(ctx, key, 0, historyCap-1)

	if success {
		pipe.ZIncrBy(ctx, successKey(pageKey, elementKind), 1, locator)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record locator outcome: %w", err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
