package database

import (
	"context"
	"fmt"
	"time"

	"skyfare/internal/models"
)

func (db *DB) CreateTicketTask(ctx context.Context, task *models.TicketTask) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO ticket_queue (booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.BookingID, task.Payload, task.Status, task.RetryCount, task.LastError, now, task.NextRetryAt)
	if err != nil {
		return fmt.Errorf("create ticket task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("ticket task id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

func (db *DB) GetPendingTicketTasks(ctx context.Context, limit int) ([]models.TicketTask, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
         FROM ticket_queue
         WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
         ORDER BY created_at ASC LIMIT ?`,
		models.TicketTaskPending, models.TicketTaskRetry, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("get pending ticket tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.TicketTask
	for rows.Next() {
		var t models.TicketTask
		if err := rows.Scan(&t.ID, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount,
			&t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt); err != nil {
			return nil, fmt.Errorf("scan ticket task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ClaimTicketTask flips a pending or retry task to processing so that only
// one delivery path (channel, redis, DB poll) issues it. Returns false when
// another path already claimed or finished the task.
func (db *DB) ClaimTicketTask(ctx context.Context, id int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE ticket_queue SET status = ? WHERE id = ? AND status IN (?, ?)`,
		models.TicketTaskProcessing, id, models.TicketTaskPending, models.TicketTaskRetry)
	if err != nil {
		return false, fmt.Errorf("claim ticket task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim ticket task: %w", err)
	}
	return n == 1, nil
}

func (db *DB) UpdateTicketTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []any
	now := time.Now()

	switch status {
	case models.TicketTaskRetry:
		query = `UPDATE ticket_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []any{status, errMsg, nextRetryAt, id}
	case models.TicketTaskCompleted, models.TicketTaskFailed:
		query = `UPDATE ticket_queue SET status = ?, last_error = ?, next_retry_at = NULL, processed_at = ? WHERE id = ?`
		args = []any{status, errMsg, now, id}
	default:
		query = `UPDATE ticket_queue SET status = ?, last_error = ? WHERE id = ?`
		args = []any{status, errMsg, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update ticket task status: %w", err)
	}
	return nil
}
