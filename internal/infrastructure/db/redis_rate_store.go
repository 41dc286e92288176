package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/damon-houk/rate-history-sync/internal/domain/entity"
	"github.com/go-redis/redis/v8"
)

// DefaultRedisKey is the hash holding the rate cache
const DefaultRedisKey = "historicalRates"

// RedisRateStore implements the rate store interface on a Redis hash keyed by date
type RedisRateStore struct {
	client *redis.Client
	key    string
}

// NewRedisRateStore creates a new Redis rate store
func NewRedisRateStore(client *redis.Client, key string) *RedisRateStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisRateStore{client: client, key: key}
}

// Load returns every stored snapshot. A missing hash loads as an empty cache.
func (s *RedisRateStore) Load(ctx context.Context) (entity.HistoricalRates, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}

	rates := make(entity.HistoricalRates, len(fields))
	for date, raw := range fields {
		var snapshot entity.RateSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
			return nil, fmt.Errorf("failed to decode rates for %s: %w", date, err)
		}
		rates[date] = snapshot
	}

	return rates, nil
}

// Save atomically replaces the hash with rates
func (s *RedisRateStore) Save(ctx context.Context, rates entity.HistoricalRates) error {
	values := make(map[string]interface{}, len(rates))
	for date, snapshot := range rates {
		data, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to marshal rates for %s: %w", date, err)
		}
		values[date] = string(data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save rates: %w", err)
	}

	return nil
}
