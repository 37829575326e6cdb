package auction

import (
	"fmt"
	"sync"
	"time"

	"spotbroker/internal/domain/model"
)

type jobState int

const (
	jobIdle jobState = iota
	jobRunning
	jobEnded
)

// PricedJob wraps a Task with a bid and accrues cost at the prevailing
// market price. Prices are per hour.
type PricedJob struct {
	ID       string
	BidPrice float64

	task   Task
	now    func() time.Time
	events chan Event // Started plus exactly one terminal event

	mu         sync.Mutex
	state      jobState
	cost       float64
	price      float64
	priceSet   bool
	lastChange time.Time
	onExit     func(*PricedJob) // set by the scheduler on admission
}

type JobOption func(*PricedJob)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) JobOption {
	return func(j *PricedJob) { j.now = now }
}

func NewPricedJob(id string, task Task, bidPrice float64, opts ...JobOption) *PricedJob {
	j := &PricedJob{
		ID:       id,
		BidPrice: bidPrice,
		task:     task,
		now:      time.Now,
		events:   make(chan Event, 2),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Events delivers the job's lifecycle events in the order they happened.
func (j *PricedJob) Events() <-chan Event {
	return j.events
}

// Start launches the underlying task and emits EventStarted.
func (j *PricedJob) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != jobIdle {
		panic(fmt.Sprintf("auction: start called twice on job %s", j.ID))
	}
	if err := j.task.Start(j.handleExit); err != nil {
		return fmt.Errorf("start job %s: %w", j.ID, err)
	}
	j.state = jobRunning
	j.events <- Event{Kind: EventStarted}
	return nil
}

func (j *PricedJob) handleExit(out model.JobOutput) {
	j.mu.Lock()
	if j.state != jobRunning {
		j.mu.Unlock()
		return
	}
	j.endLocked(Event{Kind: EventFinished, Output: &out})
	hook := j.onExit
	j.mu.Unlock()

	if hook != nil {
		hook(j)
	}
}

// fail ends a job whose task could not be started.
func (j *PricedJob) fail(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.endLocked(Event{Kind: EventFinished, Output: &model.JobOutput{ExitCode: -1, Stderr: err.Error()}})
}

// Terminate stops the job on behalf of the provider and emits
// EventTerminated. Terminating a job that never started panics.
func (j *PricedJob) Terminate() error {
	return j.stop(Event{Kind: EventTerminated})
}

// UserTerminate stops the job on behalf of the client. It emits
// EventFinished without output so billing classifies it as user-ended.
func (j *PricedJob) UserTerminate() error {
	return j.stop(Event{Kind: EventFinished})
}

func (j *PricedJob) stop(ev Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	switch j.state {
	case jobIdle:
		panic(fmt.Sprintf("auction: terminate called on job %s that never started", j.ID))
	case jobEnded:
		return ErrJobEnded
	}
	err := j.task.Terminate()
	j.endLocked(ev)
	if err != nil {
		return fmt.Errorf("terminate job %s: %w", j.ID, err)
	}
	return nil
}

// endLocked flushes accrual up to now, freezes the price and emits ev.
func (j *PricedJob) endLocked(ev Event) {
	if j.priceSet {
		j.changePriceLocked(j.price)
	}
	j.state = jobEnded
	j.events <- ev
}

// Ended reports whether a terminal event has been emitted.
func (j *PricedJob) Ended() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state == jobEnded
}

// ChangePrice accrues the old price over the time since the last change,
// then switches to newPrice. The first call only sets the baseline.
// An ended job no longer accrues.
func (j *PricedJob) ChangePrice(newPrice float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == jobEnded {
		return
	}
	j.changePriceLocked(newPrice)
}

func (j *PricedJob) changePriceLocked(newPrice float64) {
	now := j.now()
	if !j.priceSet {
		j.priceSet = true
		j.lastChange = now
	}
	j.cost += j.price * now.Sub(j.lastChange).Hours()
	j.price = newPrice
	j.lastChange = now
}

// PopCost returns the cost accrued since the previous pop and resets it.
// It panics if no price was ever assigned.
func (j *PricedJob) PopCost() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.priceSet {
		panic(fmt.Sprintf("auction: pop cost on job %s before any price was set", j.ID))
	}
	if j.state != jobEnded {
		j.changePriceLocked(j.price)
	}
	cost := j.cost
	j.cost = 0
	return cost
}

// CurrentPrice returns the market price the job is accruing at.
func (j *PricedJob) CurrentPrice() (float64, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.price, j.priceSet
}

func (j *PricedJob) setExitHook(hook func(*PricedJob)) {
	j.mu.Lock()
	j.onExit = hook
	j.mu.Unlock()
}
