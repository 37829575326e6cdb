package auction

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"spotbroker/internal/domain/model"
)

func assertMarketPrice(t *testing.T, s *Scheduler, want float64) {
	t.Helper()
	price, ok := s.MarketPrice()
	if !ok {
		t.Fatalf("expected a market price of %v, got none", want)
	}
	if price != want {
		t.Errorf("market price = %v, want %v", price, want)
	}
}

func TestScheduler_QueuesLowerBidWhenFull(t *testing.T) {
	s := NewScheduler(1)
	j10 := newTestJob(10, nil)
	j5 := newTestJob(5, nil)

	if p := s.AddTask(j10.PricedJob); p != Admitted {
		t.Fatalf("bid 10 placement = %v, want admitted", p)
	}
	if p := s.AddTask(j5.PricedJob); p != Queued {
		t.Fatalf("bid 5 placement = %v, want queued", p)
	}

	if !j10.task.isStarted() {
		t.Error("expected bid 10 to be started")
	}
	if j5.task.isStarted() {
		t.Error("expected bid 5 not to be started")
	}
	assertMarketPrice(t, s, 10)
}

func TestScheduler_PromotesQueuedJobWhenRunningJobEnds(t *testing.T) {
	t.Run("client cancel", func(t *testing.T) {
		s := NewScheduler(1)
		j10 := newTestJob(10, nil)
		j5 := newTestJob(5, nil)
		s.AddTask(j10.PricedJob)
		s.AddTask(j5.PricedJob)

		if r := s.Cancel(j10.PricedJob); r != RemovedRunning {
			t.Fatalf("Cancel = %v, want RemovedRunning", r)
		}
		if !j5.task.isStarted() {
			t.Fatal("expected bid 5 to start after bid 10 was cancelled")
		}
		assertMarketPrice(t, s, 5)
	})

	t.Run("natural exit", func(t *testing.T) {
		s := NewScheduler(1)
		j10 := newTestJob(10, nil)
		j5 := newTestJob(5, nil)
		s.AddTask(j10.PricedJob)
		s.AddTask(j5.PricedJob)

		j10.task.exit(model.JobOutput{ExitCode: 0})

		if !j5.task.isStarted() {
			t.Fatal("expected bid 5 to start after bid 10 exited")
		}
		if s.IsRunning(j10.PricedJob) {
			t.Error("expected exited job to leave the pool")
		}
		assertMarketPrice(t, s, 5)
	})
}

func TestScheduler_HigherBidPreemptsLowest(t *testing.T) {
	s := NewScheduler(1)
	j10 := newTestJob(10, nil)
	j20 := newTestJob(20, nil)
	s.AddTask(j10.PricedJob)

	if p := s.AddTask(j20.PricedJob); p != Preempted {
		t.Fatalf("placement = %v, want preempted", p)
	}

	got := kinds(drain(j10.PricedJob))
	if len(got) != 2 || got[1] != EventTerminated {
		t.Errorf("bid 10 events = %v, want [started terminated]", got)
	}
	if !j20.task.isStarted() {
		t.Error("expected bid 20 to be started")
	}
	if s.IsRunning(j10.PricedJob) || s.IsQueued(j10.PricedJob) {
		t.Error("evicted job must not stay in the pool")
	}
	assertMarketPrice(t, s, 20)
}

func TestScheduler_EqualBidDoesNotPreempt(t *testing.T) {
	s := NewScheduler(1)
	first := newTestJob(10, nil)
	tie := newTestJob(10, nil)
	s.AddTask(first.PricedJob)

	if p := s.AddTask(tie.PricedJob); p != Queued {
		t.Fatalf("placement = %v, want queued", p)
	}
	if first.task.isTerminated() {
		t.Error("running job must not be evicted by an equal bid")
	}
	if tie.task.isStarted() {
		t.Error("tied job must wait")
	}
}

func TestScheduler_CostFollowsMarketPrice(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(2)

	j10 := newTestJob(10, clock)
	s.AddTask(j10.PricedJob)
	clock.Advance(2 * time.Hour)

	j5 := newTestJob(5, clock)
	s.AddTask(j5.PricedJob) // market price drops to 5
	clock.Advance(time.Hour)

	want := 10*2.0 + 5*1.0
	if got := j10.PopCost(); !approxEqual(got, want) {
		t.Errorf("popped cost = %v, want %v", got, want)
	}
	if got := j5.PopCost(); !approxEqual(got, 5) {
		t.Errorf("newcomer cost = %v, want 5", got)
	}
}

func TestScheduler_ShrinkEvictsLowestBids(t *testing.T) {
	s := NewScheduler(4)
	jobs := []testJob{newTestJob(7, nil), newTestJob(3, nil), newTestJob(9, nil), newTestJob(5, nil)}
	for _, j := range jobs {
		s.AddTask(j.PricedJob)
	}

	if err := s.SetCapacity(2); err != nil {
		t.Fatalf("SetCapacity failed: %v", err)
	}

	for _, j := range jobs {
		evicted := j.task.isTerminated()
		wantEvicted := j.BidPrice == 3 || j.BidPrice == 5
		if evicted != wantEvicted {
			t.Errorf("bid %v evicted = %v, want %v", j.BidPrice, evicted, wantEvicted)
		}
	}
	stats := s.Stats()
	if stats.Capacity != 2 || stats.Running != 2 {
		t.Errorf("stats = %+v, want capacity 2 running 2", stats)
	}
	assertMarketPrice(t, s, 7)
}

func TestScheduler_ShrinkBelowRunningCountOnly(t *testing.T) {
	s := NewScheduler(5)
	a := newTestJob(1, nil)
	b := newTestJob(2, nil)
	s.AddTask(a.PricedJob)
	s.AddTask(b.PricedJob)

	// Only two jobs run, so shrinking to 3 evicts nothing.
	s.SetCapacity(3)
	if a.task.isTerminated() || b.task.isTerminated() {
		t.Fatal("no job should be evicted when running fits the new capacity")
	}

	s.SetCapacity(1)
	if !a.task.isTerminated() || b.task.isTerminated() {
		t.Error("expected exactly the bid 1 job to be evicted")
	}
}

func TestScheduler_GrowPromotesInBidOrder(t *testing.T) {
	s := NewScheduler(1)
	top := newTestJob(100, nil)
	s.AddTask(top.PricedJob)

	waiting := []testJob{newTestJob(4, nil), newTestJob(8, nil), newTestJob(6, nil), newTestJob(2, nil)}
	for _, j := range waiting {
		s.AddTask(j.PricedJob)
	}

	if err := s.SetCapacity(3); err != nil {
		t.Fatalf("SetCapacity failed: %v", err)
	}

	for _, j := range waiting {
		want := j.BidPrice == 8 || j.BidPrice == 6
		if j.task.isStarted() != want {
			t.Errorf("bid %v started = %v, want %v", j.BidPrice, j.task.isStarted(), want)
		}
	}
	assertMarketPrice(t, s, 6)
	if stats := s.Stats(); stats.Queued != 2 {
		t.Errorf("queued = %d, want 2", stats.Queued)
	}
}

func TestScheduler_SetCapacityRejectsNonPositive(t *testing.T) {
	s := NewScheduler(1)
	if err := s.SetCapacity(0); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("SetCapacity(0) err = %v, want ErrInvalidCapacity", err)
	}
}

func TestScheduler_CancelQueuedJobNeverStarts(t *testing.T) {
	s := NewScheduler(1)
	a := newTestJob(5, nil)
	b := newTestJob(1, nil)
	s.AddTask(a.PricedJob)
	s.AddTask(b.PricedJob)

	if r := s.Cancel(b.PricedJob); r != RemovedQueued {
		t.Fatalf("Cancel = %v, want RemovedQueued", r)
	}
	s.Cancel(a.PricedJob)
	if b.task.isStarted() {
		t.Error("cancelled queued job must never start")
	}
	if _, ok := s.MarketPrice(); ok {
		t.Error("expected no market price with an empty pool")
	}
	if r := s.Cancel(a.PricedJob); r != RemovedNone {
		t.Errorf("second Cancel = %v, want RemovedNone", r)
	}
}

func TestScheduler_StartFailureFreesSlot(t *testing.T) {
	s := NewScheduler(1)
	broken := newTestJob(10, nil)
	broken.task.startErr = errors.New("docker not found")
	next := newTestJob(1, nil)

	s.AddTask(broken.PricedJob)
	s.AddTask(next.PricedJob)

	events := drain(broken.PricedJob)
	if len(events) != 1 || events[0].Kind != EventFinished || events[0].Output == nil || events[0].Output.ExitCode != -1 {
		t.Fatalf("unexpected events for failed start: %+v", events)
	}
	if !next.task.isStarted() {
		t.Error("expected the next job to take the free slot")
	}
}

// Random add/cancel/resize sequences keep the pool bounded, holding the
// highest bids, priced at the lowest running bid.
func TestScheduler_InvariantsUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewScheduler(3)
	var live []testJob

	check := func(step int) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if len(s.running) > s.capacity {
			t.Fatalf("step %d: %d running exceeds capacity %d", step, len(s.running), s.capacity)
		}
		if len(s.queued) > 0 && len(s.running) < s.capacity {
			t.Fatalf("step %d: free slot while jobs wait", step)
		}
		if len(s.running) == 0 {
			if s.hasPrice {
				t.Fatalf("step %d: price set on empty pool", step)
			}
			return
		}
		min := s.running[0].BidPrice
		for _, j := range s.running {
			if j.BidPrice < min {
				min = j.BidPrice
			}
			if p, _ := j.CurrentPrice(); p != s.marketPrice {
				t.Fatalf("step %d: job %s priced %v, market %v", step, j.ID, p, s.marketPrice)
			}
		}
		if s.marketPrice != min {
			t.Fatalf("step %d: market price %v, min running bid %v", step, s.marketPrice, min)
		}
		for _, q := range s.queued {
			if q.BidPrice > min {
				t.Fatalf("step %d: queued bid %v beats running bid %v", step, q.BidPrice, min)
			}
		}
	}

	for step := 0; step < 500; step++ {
		switch op := rng.Intn(10); {
		case op < 6:
			j := newTestJob(float64(rng.Intn(20)), nil)
			s.AddTask(j.PricedJob)
			live = append(live, j)
		case op < 9 && len(live) > 0:
			i := rng.Intn(len(live))
			s.Cancel(live[i].PricedJob)
			live = append(live[:i], live[i+1:]...)
		default:
			s.SetCapacity(1 + rng.Intn(5))
		}
		check(step)
	}
}

func TestScheduler_ConcurrentAddsRespectCapacity(t *testing.T) {
	s := NewScheduler(4)
	var wg sync.WaitGroup
	jobs := make([]testJob, 64)
	for i := range jobs {
		jobs[i] = newTestJob(float64(i), nil)
	}

	for _, j := range jobs {
		wg.Add(1)
		go func(j testJob) {
			defer wg.Done()
			s.AddTask(j.PricedJob)
		}(j)
	}
	wg.Wait()

	stats := s.Stats()
	if stats.Running != 4 {
		t.Fatalf("running = %d, want 4", stats.Running)
	}

	var runningBids []float64
	for _, j := range jobs {
		if s.IsRunning(j.PricedJob) {
			runningBids = append(runningBids, j.BidPrice)
		}
	}
	sort.Float64s(runningBids)
	want := []float64{60, 61, 62, 63}
	for i := range want {
		if runningBids[i] != want[i] {
			t.Fatalf("running bids = %v, want %v", runningBids, want)
		}
	}
	assertMarketPrice(t, s, 60)
}
