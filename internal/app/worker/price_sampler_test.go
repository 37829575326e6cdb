package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"spotbroker/internal/domain/model"
)

type fixedPricer struct {
	price float64
	ok    bool
}

func (p fixedPricer) MarketPrice() (float64, bool) { return p.price, p.ok }

type memHistory struct {
	mu      sync.Mutex
	samples []model.PriceSample
}

func (m *memHistory) Append(_ context.Context, s model.PriceSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples = append(m.samples, s)
	return nil
}

func (m *memHistory) Recent(_ context.Context, n int) ([]model.PriceSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.samples) {
		n = len(m.samples)
	}
	return append([]model.PriceSample(nil), m.samples[len(m.samples)-n:]...), nil
}

func (m *memHistory) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.samples)
}

func TestPriceSampler_RecordsMarketPrice(t *testing.T) {
	history := &memHistory{}
	w := NewPriceSampler(fixedPricer{price: 2.5, ok: true}, history, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for history.len() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	samples, _ := history.Recent(context.Background(), 10)
	if len(samples) < 2 {
		t.Fatalf("expected at least 2 samples, got %d", len(samples))
	}
	for _, s := range samples {
		if s.Price != 2.5 {
			t.Errorf("expected price 2.5, got %v", s.Price)
		}
	}
}

func TestPriceSampler_SkipsEmptyPool(t *testing.T) {
	history := &memHistory{}
	w := NewPriceSampler(fixedPricer{}, history, time.Hour)
	w.sample(context.Background())
	if history.len() != 0 {
		t.Errorf("expected no samples for an empty pool, got %d", history.len())
	}
}
