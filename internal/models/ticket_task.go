package models

import "time"

const (
	TicketTaskPending    = "pending"
	TicketTaskProcessing = "processing"
	TicketTaskRetry      = "retry"
	TicketTaskCompleted  = "completed"
	TicketTaskFailed     = "failed"
)

// TicketTask is a queued ticket-issuance job created when a booking is
// confirmed. The worker drains these with retry and backoff.
type TicketTask struct {
	ID          int64      `json:"id"`
	BookingID   int64      `json:"booking_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}
