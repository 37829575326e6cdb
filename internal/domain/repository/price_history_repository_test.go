package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"spotbroker/internal/domain/model"
)

func TestRedisPriceHistory_TrimsAndOrders(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	repo := NewRedisPriceHistoryRepository(rdb, "history", 3)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		if err := repo.Append(ctx, model.PriceSample{Price: float64(i), At: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if n, _ := rdb.LLen(ctx, "history").Result(); n != 3 {
		t.Errorf("expected list trimmed to 3, got %d", n)
	}

	samples, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for i, want := range []float64{3, 4, 5} {
		if samples[i].Price != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, samples[i].Price)
		}
	}
	if !samples[2].At.Equal(base.Add(5 * time.Minute)) {
		t.Errorf("timestamp not preserved: %v", samples[2].At)
	}

	two, _ := repo.Recent(ctx, 2)
	if len(two) != 2 || two[0].Price != 4 || two[1].Price != 5 {
		t.Errorf("expected the two newest samples oldest first, got %+v", two)
	}

	none, err := repo.Recent(ctx, 0)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("expected empty slice for n=0, got %#v (%v)", none, err)
	}
}

func TestRedisPriceHistory_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rdb.LPush(context.Background(), "history", "not-json")
	repo := NewRedisPriceHistoryRepository(rdb, "history", 10)
	if _, err := repo.Recent(context.Background(), 5); err == nil {
		t.Error("expected error for a corrupt entry")
	}
}
