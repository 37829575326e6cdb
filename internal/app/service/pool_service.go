package service

import (
	"errors"
	"fmt"

	"spotbroker/internal/app/auction"
	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

type PoolService struct {
	sched *auction.Scheduler
}

func NewPoolService(sched *auction.Scheduler) *PoolService {
	return &PoolService{sched: sched}
}

type SetCapacityRequest struct {
	Capacity int `json:"capacity"`
}

func (s *PoolService) SetCapacity(req SetCapacityRequest) (model.PoolStats, error) {
	if err := s.sched.SetCapacity(req.Capacity); err != nil {
		if errors.Is(err, auction.ErrInvalidCapacity) {
			return model.PoolStats{}, fmt.Errorf("%v: %w", err, common.ErrValidation)
		}
		return model.PoolStats{}, err
	}
	return s.sched.Stats(), nil
}

func (s *PoolService) Stats() model.PoolStats {
	return s.sched.Stats()
}
