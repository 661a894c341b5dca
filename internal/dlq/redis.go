package dlq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"confide/internal/constants"
	"confide/pkg/errors"
)

// RedisStore persists records in a hash keyed by record id, with a list
// preserving insertion order for range listing. Survives restarts.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Push(ctx context.Context, record *Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal DLQ record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, constants.RedisKeyDLQRecords, record.ID, data)
	pipe.RPush(ctx, constants.RedisKeyDLQIndex, record.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store DLQ record: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, start, end int) ([]*Record, int, error) {
	total, err := s.client.LLen(ctx, constants.RedisKeyDLQIndex).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("count DLQ index: %w", err)
	}
	if total == 0 || int64(start) >= total {
		return nil, int(total), nil
	}

	ids, err := s.client.LRange(ctx, constants.RedisKeyDLQIndex, int64(start), int64(end)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("read DLQ index: %w", err)
	}
	if len(ids) == 0 {
		return nil, int(total), nil
	}

	raw, err := s.client.HMGet(ctx, constants.RedisKeyDLQRecords, ids...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("read DLQ records: %w", err)
	}

	records := make([]*Record, 0, len(raw))
	for _, item := range raw {
		str, ok := item.(string)
		if !ok {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, 0, fmt.Errorf("decode DLQ record: %w", err)
		}
		records = append(records, &record)
	}
	return records, int(total), nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.HGet(ctx, constants.RedisKeyDLQRecords, id).Result()
	if err == redis.Nil {
		return nil, errors.ErrNotFound.WithDetail("message", "DLQ record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("read DLQ record: %w", err)
	}

	var record Record
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("decode DLQ record: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	exists, err := s.client.HExists(ctx, constants.RedisKeyDLQRecords, id).Result()
	if err != nil {
		return fmt.Errorf("check DLQ record: %w", err)
	}
	if !exists {
		return errors.ErrNotFound.WithDetail("message", "DLQ record not found")
	}

	pipe := s.client.TxPipeline()
	pipe.LRem(ctx, constants.RedisKeyDLQIndex, 0, id)
	pipe.HDel(ctx, constants.RedisKeyDLQRecords, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove DLQ record: %w", err)
	}
	return nil
}

func (s *RedisStore) Drain(ctx context.Context) (int, error) {
	total, err := s.client.LLen(ctx, constants.RedisKeyDLQIndex).Result()
	if err != nil {
		return 0, fmt.Errorf("count DLQ index: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, constants.RedisKeyDLQIndex)
	pipe.Del(ctx, constants.RedisKeyDLQRecords)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("drain DLQ: %w", err)
	}
	return int(total), nil
}

func (s *RedisStore) Count(ctx context.Context) (int, error) {
	total, err := s.client.LLen(ctx, constants.RedisKeyDLQIndex).Result()
	if err != nil {
		return 0, fmt.Errorf("count DLQ index: %w", err)
	}
	return int(total), nil
}
