package worker

import (
	"context"
	"log"
	"time"

	"spotbroker/internal/domain/model"
	"spotbroker/internal/domain/repository"
)

type MarketPricer interface {
	MarketPrice() (float64, bool)
}

// PriceSampler periodically records the market price so clients can
// see where bids have been clearing.
type PriceSampler struct {
	pricer   MarketPricer
	history  repository.PriceHistoryRepository
	interval time.Duration
	now      func() time.Time
}

func NewPriceSampler(pricer MarketPricer, history repository.PriceHistoryRepository, interval time.Duration) *PriceSampler {
	return &PriceSampler{
		pricer:   pricer,
		history:  history,
		interval: interval,
		now:      time.Now,
	}
}

func (w *PriceSampler) Start(ctx context.Context) {
	log.Printf("Price sampler started, sampling every %s", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price sampler stopping...")
			return
		case <-ticker.C:
			w.sample(ctx)
		}
	}
}

// sample records one point. An empty pool has no price and is skipped.
func (w *PriceSampler) sample(ctx context.Context) {
	price, ok := w.pricer.MarketPrice()
	if !ok {
		return
	}
	s := model.PriceSample{Price: price, At: w.now().UTC()}
	if err := w.history.Append(ctx, s); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("ERROR: Failed to record market price %.4f: %v", price, err)
	}
}
