package model

import "time"

// KillReason says who ended a billing interval.
type KillReason string

const (
	KilledByUser     KillReason = "user"     // the job finished or the client ended it
	KilledByProvider KillReason = "provider" // the scheduler evicted it
	KilledByNone     KillReason = "none"     // periodic checkpoint, job keeps running
)

const (
	ChargeStatusOK     = "ok"
	ChargeStatusFailed = "failed"
)

// ChargeRecord is the audit row written for every charge attempt.
type ChargeRecord struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"session_id"`
	JobID         string     `json:"job_id"`
	Reason        KillReason `json:"reason"`
	SpotCost      float64    `json:"spot_cost"`
	Amount        float64    `json:"amount"`
	RunningTimeMs int64      `json:"running_time_ms"`
	WaitingTimeMs int64      `json:"waiting_time_ms"`
	RebuyCount    int        `json:"rebuy_count"`
	FromAccount   int64      `json:"from_account"`
	ToAccount     int64      `json:"to_account"`
	Status        string     `json:"status"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}
