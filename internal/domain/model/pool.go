package model

import "time"

// PoolStats is a point-in-time view of the auction pool.
type PoolStats struct {
	Capacity    int      `json:"capacity"`
	Running     int      `json:"running"`
	Queued      int      `json:"queued"`
	MarketPrice *float64 `json:"market_price,omitempty"` // nil while nothing runs
}

type PriceSample struct {
	Price float64   `json:"price"`
	At    time.Time `json:"at"`
}
