package auction

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"spotbroker/internal/domain/model"
)

var ErrInvalidCapacity = errors.New("capacity must be greater than zero")

// Placement is what AddTask did with a job.
type Placement int

const (
	Admitted  Placement = iota // A slot was free
	Preempted                  // The lowest bidder was evicted to make room
	Queued                     // Outbid by every running job
)

func (p Placement) String() string {
	switch p {
	case Admitted:
		return "admitted"
	case Preempted:
		return "preempted"
	case Queued:
		return "queued"
	default:
		return "unknown"
	}
}

// Removal is what Cancel found when removing a job.
type Removal int

const (
	RemovedNone    Removal = iota // Not in the pool, it already ended
	RemovedQueued                 // Dropped from the queue, it never ran
	RemovedRunning                // Stopped on behalf of the client
)

// Scheduler keeps at most capacity jobs running, always the highest
// bidders, and charges every running job the lowest running bid.
// All state is guarded by mu. Jobs are started and stopped with mu held,
// so lock order is always scheduler then job.
type Scheduler struct {
	mu          sync.Mutex
	capacity    int
	running     []*PricedJob // admission order
	queued      []*PricedJob // arrival order
	marketPrice float64
	hasPrice    bool
}

func NewScheduler(capacity int) *Scheduler {
	if capacity <= 0 {
		panic(fmt.Sprintf("auction: %v: %d", ErrInvalidCapacity, capacity))
	}
	return &Scheduler{capacity: capacity}
}

// AddTask admits, preempts for, or queues a job.
func (s *Scheduler) AddTask(j *PricedJob) Placement {
	s.mu.Lock()
	defer s.mu.Unlock()

	j.setExitHook(s.release)

	if len(s.running) < s.capacity {
		s.admit(j)
		s.fill()
		return Admitted
	}

	bottom := s.lowestRunning()
	if bottom.BidPrice < j.BidPrice {
		log.Printf("INFO: Job %s (bid %.4f) preempts job %s (bid %.4f)", j.ID, j.BidPrice, bottom.ID, bottom.BidPrice)
		s.evict(bottom)
		s.admit(j)
		s.fill()
		return Preempted
	}

	s.queued = append(s.queued, j)
	log.Printf("INFO: Job %s (bid %.4f) queued, %d waiting", j.ID, j.BidPrice, len(s.queued))
	return Queued
}

// Cancel removes a job on behalf of its client. A running job is stopped
// with UserTerminate and its slot is handed to the queue.
func (s *Scheduler) Cancel(j *PricedJob) Removal {
	s.mu.Lock()
	defer s.mu.Unlock()

	if removeJob(&s.queued, j) {
		return RemovedQueued
	}
	if !removeJob(&s.running, j) {
		return RemovedNone
	}
	if err := j.UserTerminate(); err != nil && !errors.Is(err, ErrJobEnded) {
		log.Printf("ERROR: Failed to stop cancelled job %s: %v", j.ID, err)
	}
	s.reprice()
	s.fill()
	return RemovedRunning
}

// SetCapacity resizes the pool. Growing promotes the highest queued bids,
// shrinking evicts the lowest running bids.
func (s *Scheduler) SetCapacity(n int) error {
	if n <= 0 {
		return fmt.Errorf("set capacity %d: %w", n, ErrInvalidCapacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.capacity
	switch {
	case n > old:
		s.capacity = n
		s.fill()
	case n < old:
		for len(s.running) > n {
			s.evict(s.lowestRunning())
		}
		s.reprice()
	}
	s.capacity = n
	log.Printf("INFO: Pool capacity changed %d -> %d (running=%d queued=%d)", old, n, len(s.running), len(s.queued))
	return nil
}

// release is the exit hook: a job that exited on its own frees its slot.
func (s *Scheduler) release(j *PricedJob) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !removeJob(&s.running, j) {
		return
	}
	s.reprice()
	s.fill()
}

// admit adds j to running, reprices every running job and starts j.
// Must be called with s.mu held.
func (s *Scheduler) admit(j *PricedJob) {
	s.running = append(s.running, j)
	s.reprice()

	if err := j.Start(); err != nil {
		log.Printf("ERROR: %v", err)
		removeJob(&s.running, j)
		j.fail(err)
		s.reprice()
	}
}

// evict stops j and frees its slot. The caller reprices.
// Must be called with s.mu held.
func (s *Scheduler) evict(j *PricedJob) {
	removeJob(&s.running, j)
	if err := j.Terminate(); err != nil && !errors.Is(err, ErrJobEnded) {
		log.Printf("ERROR: Failed to stop evicted job %s: %v", j.ID, err)
	}
}

// fill promotes the highest queued bids until the pool is full.
// Must be called with s.mu held.
func (s *Scheduler) fill() {
	for len(s.running) < s.capacity && len(s.queued) > 0 {
		top := 0
		for i, q := range s.queued {
			if q.BidPrice > s.queued[top].BidPrice {
				top = i
			}
		}
		j := s.queued[top]
		s.queued = append(s.queued[:top], s.queued[top+1:]...)
		s.admit(j)
	}
}

// reprice sets the market price to the lowest running bid and applies it
// to every running job. Must be called with s.mu held.
func (s *Scheduler) reprice() {
	if len(s.running) == 0 {
		s.hasPrice = false
		s.marketPrice = 0
		return
	}
	price := s.running[0].BidPrice
	for _, j := range s.running[1:] {
		if j.BidPrice < price {
			price = j.BidPrice
		}
	}
	s.marketPrice = price
	s.hasPrice = true
	for _, j := range s.running {
		j.ChangePrice(price)
	}
}

// lowestRunning returns the lowest running bid, latest admission on ties.
// Must be called with s.mu held and running non-empty.
func (s *Scheduler) lowestRunning() *PricedJob {
	bottom := s.running[0]
	for _, j := range s.running[1:] {
		if j.BidPrice <= bottom.BidPrice {
			bottom = j
		}
	}
	return bottom
}

// MarketPrice returns the lowest running bid; ok is false while the pool
// is empty.
func (s *Scheduler) MarketPrice() (price float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.marketPrice, s.hasPrice
}

func (s *Scheduler) Stats() model.PoolStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := model.PoolStats{
		Capacity: s.capacity,
		Running:  len(s.running),
		Queued:   len(s.queued),
	}
	if s.hasPrice {
		price := s.marketPrice
		stats.MarketPrice = &price
	}
	return stats
}

// IsRunning reports whether j currently holds a slot.
func (s *Scheduler) IsRunning(j *PricedJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsJob(s.running, j)
}

// IsQueued reports whether j is waiting for a slot.
func (s *Scheduler) IsQueued(j *PricedJob) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return containsJob(s.queued, j)
}

func removeJob(jobs *[]*PricedJob, j *PricedJob) bool {
	for i, x := range *jobs {
		if x == j {
			*jobs = append((*jobs)[:i], (*jobs)[i+1:]...)
			return true
		}
	}
	return false
}

func containsJob(jobs []*PricedJob, j *PricedJob) bool {
	for _, x := range jobs {
		if x == j {
			return true
		}
	}
	return false
}
