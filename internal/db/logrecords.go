package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"escalation-service/internal/models"
)

const logRecordColumns = `id, user_id, alert_id, type, policy_id, COALESCE(step, ''), COALESCE(channel, ''),
	COALESCE(reason, ''), error_code, using_fallback, prevent_posting, created_at`

func scanLogRecord(row pgx.Row) (models.LogRecord, error) {
	var r models.LogRecord
	err := row.Scan(&r.ID, &r.UserID, &r.AlertID, &r.Type, &r.PolicyID, &r.Step, &r.Channel,
		&r.Reason, &r.ErrorCode, &r.UsingFallback, &r.PreventPosting, &r.CreatedAt)
	return r, err
}

func (s *Store) CreateLogRecord(ctx context.Context, rec models.LogRecord) (models.LogRecord, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO escalation_log_records (
		user_id, alert_id, type, policy_id, step, channel, reason,
		error_code, using_fallback, prevent_posting, created_at
	)
	VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11)
	RETURNING id`

	err := s.q.QueryRow(ctx, query,
		rec.UserID, rec.AlertID, rec.Type, rec.PolicyID, string(rec.Step), rec.Channel,
		rec.Reason, rec.ErrorCode, rec.UsingFallback, rec.PreventPosting, rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return models.LogRecord{}, fmt.Errorf("failed to create log record: %w", err)
	}
	return rec, nil
}

func (s *Store) GetLogRecord(ctx context.Context, id int64) (models.LogRecord, error) {
	query := `SELECT ` + logRecordColumns + ` FROM escalation_log_records WHERE id = $1`
	r, err := scanLogRecord(s.q.QueryRow(ctx, query, id))
	if err != nil {
		return models.LogRecord{}, notFound(err)
	}
	return r, nil
}

func (s *Store) HasTriggered(ctx context.Context, userID, alertID int64) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1 FROM escalation_log_records
		WHERE user_id = $1 AND alert_id = $2 AND type = $3
	)`
	var exists bool
	if err := s.q.QueryRow(ctx, query, userID, alertID, models.LogTriggered).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check triggered records: %w", err)
	}
	return exists, nil
}

func (s *Store) listLogRecords(ctx context.Context, query string, args ...any) ([]models.LogRecord, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get log records: %w", err)
	}
	defer rows.Close()

	var records []models.LogRecord
	for rows.Next() {
		r, err := scanLogRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) ListLogRecordsByAlert(ctx context.Context, alertID int64, limit, offset int) ([]models.LogRecord, error) {
	query := `
	SELECT ` + logRecordColumns + `
	FROM escalation_log_records
	WHERE alert_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`
	return s.listLogRecords(ctx, query, alertID, limit, offset)
}

func (s *Store) ListLogRecordsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.LogRecord, error) {
	query := `
	SELECT ` + logRecordColumns + `
	FROM escalation_log_records
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`
	return s.listLogRecords(ctx, query, userID, limit, offset)
}
