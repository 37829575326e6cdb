package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"spotbroker/internal/app/auction"
	"spotbroker/internal/app/billing"
	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

// Conn is one client connection carrying a single job request in and a
// stream of status messages out.
type Conn interface {
	// ReadRequest decodes the inbound request. Malformed payloads wrap
	// common.ErrBadRequest.
	ReadRequest(v any) error
	Send(msg model.StatusMessage) error
	// Closed is closed once the peer has gone away.
	Closed() <-chan struct{}
	// Close may be called more than once and concurrently with
	// ReadRequest, which it must unblock.
	Close() error
}

// TaskFactory builds the executable for a request.
type TaskFactory interface {
	New(req model.JobRequest, jobID string) (auction.Task, error)
}

type Charger interface {
	Charge(ctx context.Context, acct billing.Account, req billing.ChargeRequest) error
}

type Dependencies struct {
	Scheduler      *auction.Scheduler
	Tasks          TaskFactory
	Charger        Charger
	RebillInterval time.Duration
	Now            func() time.Time // nil means time.Now
}

// Session drives one job from request to final charge.
type Session struct {
	ID string

	conn     Conn
	sched    *auction.Scheduler
	tasks    TaskFactory
	charger  Charger
	interval time.Duration
	now      func() time.Time

	job      *auction.PricedJob
	acct     billing.Account
	ledger   *billing.Ledger
	rebuys   int
	peerGone bool
}

func New(conn Conn, deps Dependencies) *Session {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Session{
		ID:       uuid.NewString(),
		conn:     conn,
		sched:    deps.Scheduler,
		tasks:    deps.Tasks,
		charger:  deps.Charger,
		interval: deps.RebillInterval,
		now:      now,
	}
}

// Run serves the connection until the job reaches a terminal state or
// the client leaves. The connection is always closed on return.
func (s *Session) Run(ctx context.Context) error {
	defer s.conn.Close()

	var req model.JobRequest
	if err := s.readRequest(ctx, &req); err != nil {
		if errors.Is(err, common.ErrBadRequest) {
			s.send(model.StatusMessage{Status: model.SessionStatusError, Data: err.Error()})
		}
		return fmt.Errorf("session %s: read request: %w", s.ID, err)
	}

	if err := s.prepare(req); err != nil {
		s.send(model.StatusMessage{Status: model.SessionStatusError, Data: err.Error()})
		return fmt.Errorf("session %s: %w", s.ID, err)
	}

	s.send(model.StatusMessage{Status: model.SessionStatusSubmitted})
	placement := s.sched.AddTask(s.job)
	log.Printf("INFO: Session %s submitted job %s (bid %.4f, account %d): %s",
		s.ID, s.job.ID, req.BidPrice, req.UserAccount, placement)

	return s.loop(ctx)
}

// readRequest waits for the job request. Closing the connection is the
// only way to unblock the read, so that is what cancellation does.
func (s *Session) readRequest(ctx context.Context, req *model.JobRequest) error {
	read := make(chan struct{})
	defer close(read)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-read:
		}
	}()

	if err := s.conn.ReadRequest(req); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %v", ctxErr, err)
		}
		return err
	}
	return nil
}

func (s *Session) prepare(req model.JobRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	cost, err := billing.CompileCost(req.Resource.Cost)
	if err != nil {
		return err
	}
	task, err := s.tasks.New(req, s.ID)
	if err != nil {
		return err
	}

	s.job = auction.NewPricedJob(s.ID, task, req.BidPrice, auction.WithClock(s.now))
	s.ledger = billing.NewLedger(s.now)
	s.acct = billing.Account{
		SessionID:   s.ID,
		JobID:       s.job.ID,
		UserAccount: req.UserAccount,
		Cost:        cost,
	}
	return nil
}

func (s *Session) loop(ctx context.Context) error {
	// Charges must complete even while the server shuts down.
	billCtx := context.WithoutCancel(ctx)

	var (
		timer *time.Timer
		tick  <-chan time.Time
	)
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		tick = nil
	}
	defer stopTimer()

	closed := s.conn.Closed()
	done := ctx.Done()

	for {
		select {
		case ev := <-s.job.Events():
			switch ev.Kind {
			case auction.EventStarted:
				s.send(model.StatusMessage{Status: model.SessionStatusTaskStart})
				s.ledger.OnProcessStart()
				timer = time.NewTimer(s.interval)
				tick = timer.C
			case auction.EventFinished:
				stopTimer()
				return s.settle(billCtx, model.KilledByUser, ev)
			case auction.EventTerminated:
				stopTimer()
				return s.settle(billCtx, model.KilledByProvider, ev)
			}

		case <-tick:
			if s.job.Ended() {
				// The terminal event is already queued.
				tick = nil
				continue
			}
			if err := s.checkpoint(billCtx); err != nil {
				s.sched.Cancel(s.job)
				return err
			}
			timer.Reset(s.interval)

		case <-closed:
			closed = nil
			s.peerGone = true
			if s.abandon() {
				return nil
			}

		case <-done:
			done = nil
			if s.abandon() {
				return nil
			}
		}
	}
}

// checkpoint bills the interval that just elapsed and opens the next one.
func (s *Session) checkpoint(ctx context.Context) error {
	req := s.ledger.ChargeRequest(model.KilledByNone, s.job.PopCost(), s.rebuys)
	if err := s.charger.Charge(ctx, s.acct, req); err != nil {
		log.Printf("ERROR: Session %s: periodic charge failed, stopping job: %v", s.ID, err)
		s.send(model.StatusMessage{Status: model.SessionStatusChargingError, Data: err.Error()})
		return fmt.Errorf("session %s: %w", s.ID, err)
	}

	s.ledger = billing.NewLedger(s.now)
	s.ledger.OnProcessStart()
	s.send(model.StatusMessage{Status: model.SessionStatusTaskContinued})
	s.rebuys++
	return nil
}

// settle issues the final charge and reports the outcome.
func (s *Session) settle(ctx context.Context, reason model.KillReason, ev auction.Event) error {
	req := s.ledger.ChargeRequest(reason, s.job.PopCost(), s.rebuys)
	if err := s.charger.Charge(ctx, s.acct, req); err != nil {
		log.Printf("ERROR: Session %s: final charge failed: %v", s.ID, err)
		s.send(model.StatusMessage{Status: model.SessionStatusChargingError, Data: err.Error()})
		return fmt.Errorf("session %s: %w", s.ID, err)
	}

	msg := model.StatusMessage{Status: model.SessionStatusTaskFinished, Output: ev.Output}
	if reason == model.KilledByProvider {
		msg = model.StatusMessage{Status: model.SessionStatusTaskTerminated}
	}
	s.send(msg)
	log.Printf("INFO: Session %s ended: %s (rebuys=%d)", s.ID, msg.Status, s.rebuys)
	return nil
}

// abandon pulls the job out of the pool after the client left. It reports
// true when there is nothing left to bill.
func (s *Session) abandon() bool {
	switch s.sched.Cancel(s.job) {
	case auction.RemovedQueued:
		log.Printf("INFO: Session %s: client left while queued, job %s dropped", s.ID, s.job.ID)
		return true
	case auction.RemovedRunning:
		log.Printf("INFO: Session %s: client left, job %s stopped", s.ID, s.job.ID)
	}
	return false
}

func (s *Session) send(msg model.StatusMessage) {
	if s.peerGone {
		return
	}
	if err := s.conn.Send(msg); err != nil {
		log.Printf("WARN: Session %s: failed to send %s: %v", s.ID, msg.Status, err)
		s.peerGone = true
	}
}
