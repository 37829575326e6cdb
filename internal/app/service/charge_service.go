package service

import (
	"context"
	"fmt"

	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
	"spotbroker/internal/domain/repository"
)

// ChargeService exposes the charge audit trail to operators.
type ChargeService struct {
	charges repository.ChargeRepository
}

func NewChargeService(charges repository.ChargeRepository) *ChargeService {
	return &ChargeService{charges: charges}
}

type AccountTotal struct {
	Account int64   `json:"account"`
	Total   float64 `json:"total"`
}

// BySession lists every charge attempt of a session, oldest first. Never nil.
func (s *ChargeService) BySession(ctx context.Context, sessionID string) ([]model.ChargeRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required: %w", common.ErrBadRequest)
	}
	records, err := s.charges.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}
	if records == nil {
		records = []model.ChargeRecord{}
	}
	return records, nil
}

func (s *ChargeService) TotalForAccount(ctx context.Context, account int64) (AccountTotal, error) {
	if account <= 0 {
		return AccountTotal{}, fmt.Errorf("invalid account %d: %w", account, common.ErrBadRequest)
	}
	total, err := s.charges.TotalChargedByAccount(ctx, account)
	if err != nil {
		return AccountTotal{}, fmt.Errorf("failed to total charges: %w", err)
	}
	return AccountTotal{Account: account, Total: total}, nil
}
