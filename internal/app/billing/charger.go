package billing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"spotbroker/internal/domain/model"
	"spotbroker/internal/domain/repository"
)

// Account identifies who is charged for a session and how.
type Account struct {
	SessionID   string
	JobID       string
	UserAccount int64
	Cost        *CostExpression
}

// Charger prices a charge request, collects it from the user's account
// and records the attempt.
type Charger struct {
	bank          Bank
	records       repository.ChargeRepository // optional
	brokerAccount int64
	now           func() time.Time
}

func NewCharger(bank Bank, records repository.ChargeRepository, brokerAccount int64) *Charger {
	return &Charger{bank: bank, records: records, brokerAccount: brokerAccount, now: time.Now}
}

// Charge transfers the evaluated amount from the user to the broker.
func (c *Charger) Charge(ctx context.Context, acct Account, req ChargeRequest) error {
	amount, err := acct.Cost.Amount(req)
	if err != nil {
		c.record(ctx, acct, req, 0, err)
		return err
	}

	err = c.bank.Transfer(ctx, acct.UserAccount, c.brokerAccount, amount)
	if err != nil {
		err = fmt.Errorf("charge session %s: %w", acct.SessionID, err)
	} else {
		log.Printf("INFO: Charged account %d %.6f for session %s (reason=%s rebuys=%d)",
			acct.UserAccount, amount, acct.SessionID, req.Reason, req.RebuyCount)
	}
	c.record(ctx, acct, req, amount, err)
	return err
}

// record writes the audit row. Failures are logged, never returned.
func (c *Charger) record(ctx context.Context, acct Account, req ChargeRequest, amount float64, chargeErr error) {
	if c.records == nil {
		return
	}
	rec := &model.ChargeRecord{
		ID:            uuid.NewString(),
		SessionID:     acct.SessionID,
		JobID:         acct.JobID,
		Reason:        req.Reason,
		SpotCost:      req.SpotCost,
		Amount:        amount,
		RunningTimeMs: req.RunningTime.Milliseconds(),
		WaitingTimeMs: req.WaitingTime.Milliseconds(),
		RebuyCount:    req.RebuyCount,
		FromAccount:   acct.UserAccount,
		ToAccount:     c.brokerAccount,
		Status:        model.ChargeStatusOK,
		CreatedAt:     c.now().UTC(),
	}
	if chargeErr != nil {
		msg := chargeErr.Error()
		rec.Status = model.ChargeStatusFailed
		rec.ErrorMessage = &msg
	}
	if err := c.records.Create(ctx, rec); err != nil {
		log.Printf("ERROR: Failed to record charge for session %s: %v", acct.SessionID, err)
	}
}
