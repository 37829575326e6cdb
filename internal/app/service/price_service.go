package service

import (
	"context"
	"fmt"

	"spotbroker/internal/domain/repository"
)

// PriceService serves the recorded market price series for bid guidance.
type PriceService struct {
	history repository.PriceHistoryRepository
	limit   int
}

func NewPriceService(history repository.PriceHistoryRepository, limit int) *PriceService {
	return &PriceService{history: history, limit: limit}
}

// History returns recent prices, oldest first. Never nil.
func (s *PriceService) History(ctx context.Context) ([]float64, error) {
	samples, err := s.history.Recent(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	prices := make([]float64, 0, len(samples))
	for _, sample := range samples {
		prices = append(prices, sample.Price)
	}
	return prices, nil
}
