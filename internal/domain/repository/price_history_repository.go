package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"spotbroker/internal/domain/model"
)

type PriceHistoryRepository interface {
	Append(ctx context.Context, sample model.PriceSample) error
	// Recent returns up to n samples, oldest first.
	Recent(ctx context.Context, n int) ([]model.PriceSample, error)
}

type redisPriceHistoryRepository struct {
	rdb   *redis.Client
	key   string
	limit int64 // samples kept in the list
}

func NewRedisPriceHistoryRepository(rdb *redis.Client, key string, limit int) PriceHistoryRepository {
	return &redisPriceHistoryRepository{rdb: rdb, key: key, limit: int64(limit)}
}

// Append pushes to the head of the list and trims the tail in one round trip.
func (r *redisPriceHistoryRepository) Append(ctx context.Context, sample model.PriceSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal price sample: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	if r.limit > 0 {
		pipe.LTrim(ctx, r.key, 0, r.limit-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redisPriceHistoryRepository.Append: %w", err)
	}
	return nil
}

func (r *redisPriceHistoryRepository) Recent(ctx context.Context, n int) ([]model.PriceSample, error) {
	if n <= 0 {
		return []model.PriceSample{}, nil
	}
	raw, err := r.rdb.LRange(ctx, r.key, 0, int64(n)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisPriceHistoryRepository.Recent: %w", err)
	}

	samples := make([]model.PriceSample, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- { // list head is newest
		var s model.PriceSample
		if err := json.Unmarshal([]byte(raw[i]), &s); err != nil {
			return nil, fmt.Errorf("corrupt price sample %q: %w", raw[i], err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}
