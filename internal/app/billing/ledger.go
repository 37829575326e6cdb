package billing

import (
	"time"

	"spotbroker/internal/domain/model"
)

// ChargeRequest summarises one billing interval. SpotCost is what the job
// accrued at the market price during the interval.
type ChargeRequest struct {
	Reason      model.KillReason
	SpotCost    float64
	RunningTime time.Duration
	WaitingTime time.Duration
	RebuyCount  int
}

// Ledger tracks one billing interval of a job attempt. Callers start a new
// Ledger for every interval.
type Ledger struct {
	now             func() time.Time
	contractStart   time.Time
	processingStart time.Time
	processing      bool
}

// NewLedger opens an interval at the current time. A nil clock means time.Now.
func NewLedger(now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{now: now, contractStart: now()}
}

// OnProcessStart marks when execution began. Only the first call counts.
func (l *Ledger) OnProcessStart() {
	if l.processing {
		return
	}
	l.processing = true
	l.processingStart = l.now()
}

// ChargeRequest snapshots the interval. A ledger whose job never started
// reports the whole interval as waiting time.
func (l *Ledger) ChargeRequest(reason model.KillReason, spotCost float64, rebuyCount int) ChargeRequest {
	end := l.now()
	start := end
	if l.processing {
		start = l.processingStart
	}
	return ChargeRequest{
		Reason:      reason,
		SpotCost:    spotCost,
		RunningTime: end.Sub(start),
		WaitingTime: start.Sub(l.contractStart),
		RebuyCount:  rebuyCount,
	}
}
