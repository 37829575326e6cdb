package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"spotbroker/internal/app/auction"
	"spotbroker/internal/app/session"
	"spotbroker/internal/common"
)

// BrokerService runs one session per client connection against the
// shared scheduler.
type BrokerService struct {
	deps session.Dependencies

	wg sync.WaitGroup
}

func NewBrokerService(sched *auction.Scheduler, tasks session.TaskFactory, charger session.Charger, rebillInterval time.Duration) *BrokerService {
	return &BrokerService{
		deps: session.Dependencies{
			Scheduler:      sched,
			Tasks:          tasks,
			Charger:        charger,
			RebillInterval: rebillInterval,
		},
	}
}

// Serve blocks until the session on conn is over.
func (s *BrokerService) Serve(ctx context.Context, conn session.Conn) {
	s.wg.Add(1)
	defer s.wg.Done()

	sess := session.New(conn, s.deps)
	err := sess.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Printf("INFO: Session %s closed before a request arrived: %v", sess.ID, err)
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrBadRequest):
		log.Printf("WARN: Rejected session %s: %v", sess.ID, err)
	default:
		log.Printf("ERROR: Session %s failed: %v", sess.ID, err)
	}
}

// Wait blocks until every session has finished billing.
func (s *BrokerService) Wait() {
	s.wg.Wait()
}
