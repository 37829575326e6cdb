package auction

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"spotbroker/internal/domain/model"
)

// fakeTask records calls and lets a test make the job exit on its own.
type fakeTask struct {
	mu         sync.Mutex
	started    bool
	terminated bool
	startErr   error
	onExit     func(model.JobOutput)
}

func (t *fakeTask) Start(onExit func(model.JobOutput)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.startErr != nil {
		return t.startErr
	}
	t.started = true
	t.onExit = onExit
	return nil
}

func (t *fakeTask) Terminate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return errors.New("not running")
	}
	t.terminated = true
	return nil
}

// exit simulates the process finishing by itself.
func (t *fakeTask) exit(out model.JobOutput) {
	t.mu.Lock()
	onExit := t.onExit
	t.mu.Unlock()
	onExit(out)
}

func (t *fakeTask) isStarted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *fakeTask) isTerminated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminated
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testJob struct {
	*PricedJob
	task *fakeTask
}

var jobSeq int

func newTestJob(bid float64, clock *fakeClock) testJob {
	jobSeq++
	task := &fakeTask{}
	opts := []JobOption{}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	return testJob{
		PricedJob: NewPricedJob(fmt.Sprintf("job-%d", jobSeq), task, bid, opts...),
		task:      task,
	}
}

// drain returns every event currently buffered for the job.
func drain(j *PricedJob) []Event {
	var events []Event
	for {
		select {
		case ev := <-j.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func approxEqual(a, b float64) bool {
	const tolerance = 1e-9
	d := a - b
	return d < tolerance && d > -tolerance
}
