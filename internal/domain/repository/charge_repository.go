package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

type ChargeRepository interface {
	Create(ctx context.Context, rec *model.ChargeRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]model.ChargeRecord, error)
	TotalChargedByAccount(ctx context.Context, account int64) (float64, error)
}

type sqlChargeRepository struct {
	db     *sql.DB
	driver string // "pgx" or "sqlite"
}

// NewSQLChargeRepository works with both the pgx and sqlite drivers.
func NewSQLChargeRepository(db *sql.DB, driver string) ChargeRepository {
	return &sqlChargeRepository{db: db, driver: driver}
}

// rebind turns ? placeholders into $n for Postgres.
func (r *sqlChargeRepository) rebind(query string) string {
	if r.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *sqlChargeRepository) Create(ctx context.Context, rec *model.ChargeRecord) error {
	query := r.rebind(`INSERT INTO charges (id, session_id, job_id, reason, spot_cost, amount, running_time_ms, waiting_time_ms,
	          rebuy_count, from_account, to_account, status, error_message, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.SessionID, rec.JobID, string(rec.Reason), rec.SpotCost, rec.Amount,
		rec.RunningTimeMs, rec.WaitingTimeMs, rec.RebuyCount, rec.FromAccount, rec.ToAccount,
		rec.Status, rec.ErrorMessage, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("charge record %s already exists: %w", rec.ID, common.ErrConflict)
		}
		return fmt.Errorf("sqlChargeRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlChargeRepository) ListBySession(ctx context.Context, sessionID string) ([]model.ChargeRecord, error) {
	query := r.rebind(`SELECT id, session_id, job_id, reason, spot_cost, amount, running_time_ms, waiting_time_ms,
	          rebuy_count, from_account, to_account, status, error_message, created_at
	          FROM charges WHERE session_id = ? ORDER BY created_at ASC`)

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("sqlChargeRepository.ListBySession: %w", err)
	}
	defer rows.Close()

	var records []model.ChargeRecord
	for rows.Next() {
		var rec model.ChargeRecord
		var reason, createdAt string
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.JobID, &reason, &rec.SpotCost, &rec.Amount,
			&rec.RunningTimeMs, &rec.WaitingTimeMs, &rec.RebuyCount, &rec.FromAccount, &rec.ToAccount,
			&rec.Status, &rec.ErrorMessage, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("sqlChargeRepository.ListBySession scan: %w", err)
		}
		rec.Reason = model.KillReason(reason)
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlChargeRepository.ListBySession rows: %w", err)
	}
	return records, nil
}

// TotalChargedByAccount sums successful charges taken from an account.
func (r *sqlChargeRepository) TotalChargedByAccount(ctx context.Context, account int64) (float64, error) {
	query := r.rebind(`SELECT COALESCE(SUM(amount), 0) FROM charges WHERE from_account = ? AND status = ?`)

	var total float64
	if err := r.db.QueryRowContext(ctx, query, account, model.ChargeStatusOK).Scan(&total); err != nil {
		return 0, fmt.Errorf("sqlChargeRepository.TotalChargedByAccount: %w", err)
	}
	return total, nil
}
