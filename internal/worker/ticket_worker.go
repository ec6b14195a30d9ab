package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skyfare/internal/database"
	"skyfare/internal/logging"
	"skyfare/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TicketPayload is persisted in TicketTask.Payload as JSON.
type TicketPayload struct {
	BookingID  int64    `json:"booking_id"`
	Reference  string   `json:"reference"`
	FlightID   int64    `json:"flight_id"`
	FareCode   string   `json:"fare_code"`
	Passengers []string `json:"passengers"`
}

// TicketIssuer hands a confirmed booking off to the ticketing backend.
type TicketIssuer interface {
	IssueTickets(ctx context.Context, payload TicketPayload) error
}

// TicketWorker consumes ticket_queue tasks and issues tickets for
// confirmed bookings. Tasks arrive through redis or the in-memory
// channel for low latency; the DB poll is the source of truth and
// picks up anything the fast paths dropped.
type TicketWorker struct {
	db            *database.DB
	issuer        TicketIssuer
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.TicketTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	log           zerolog.Logger
}

// NewTicketWorker builds a worker with sane defaults.
func NewTicketWorker(db *database.DB, issuer TicketIssuer, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *TicketWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}
	return &TicketWorker{
		db:            db,
		issuer:        issuer,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.TicketTask, 128),
		redisQueueKey: "tickets:queue",
		deadLetterKey: "tickets:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		log:           logging.Component(logger, "ticket_worker"),
	}
}

// SetPollInterval overrides the default DB poll cadence.
func (w *TicketWorker) SetPollInterval(d time.Duration) {
	if d > 0 {
		w.pollInterval = d
	}
}

// SetBatchSize overrides the default DB poll batch.
func (w *TicketWorker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// EnqueueTask persists the task to DB and schedules it via redis or the
// in-memory queue.
func (w *TicketWorker) EnqueueTask(ctx context.Context, payload TicketPayload) error {
	if payload.BookingID == 0 {
		return errors.New("booking id is required")
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.TicketTask{
		BookingID: payload.BookingID,
		Payload:   string(payloadBytes),
		Status:    models.TicketTaskPending,
		CreatedAt: time.Now(),
	}

	if err := w.db.CreateTicketTask(ctx, &task); err != nil {
		return fmt.Errorf("persist ticket task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.log.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.log.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}

	return nil
}

// EnqueueTicketIssue schedules issuance for a confirmed booking.
func (w *TicketWorker) EnqueueTicketIssue(ctx context.Context, booking *models.Booking) error {
	payload := TicketPayload{
		BookingID: booking.ID,
		Reference: booking.Reference,
		FlightID:  booking.FlightID,
		FareCode:  booking.FareCode,
	}
	for _, p := range booking.Passengers {
		payload.Passengers = append(payload.Passengers, p.LastName+"/"+p.FirstName)
	}
	return w.EnqueueTask(ctx, payload)
}

// Start launches the main loop; stops when ctx is done.
func (w *TicketWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ticket worker started")
	defer w.log.Info().Msg("ticket worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.db.GetPendingTicketTasks(ctx, w.batchSize)
		if err != nil {
			w.log.Error().Err(err).Msg("fetch pending tasks")
			time.Sleep(w.pollInterval)
			continue
		}
		if len(tasks) == 0 {
			time.Sleep(w.pollInterval)
			continue
		}

		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *TicketWorker) tryLocalQueue() (models.TicketTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.TicketTask{}, false
	}
}

func (w *TicketWorker) tryRedis(ctx context.Context) (models.TicketTask, bool) {
	if w.redis == nil {
		return models.TicketTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.TicketTask{}, false
		}
		w.log.Error().Err(err).Msg("redis BRPOP error")
		return models.TicketTask{}, false
	}
	if len(res) != 2 {
		return models.TicketTask{}, false
	}
	var task models.TicketTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.log.Error().Err(err).Msg("decode redis task")
		return models.TicketTask{}, false
	}
	return task, true
}

func (w *TicketWorker) processTask(ctx context.Context, task *models.TicketTask) {
	// A task persisted as pending rides both the fast path and the DB
	// poll; the claim makes sure only one of them issues the tickets.
	claimed, err := w.db.ClaimTicketTask(ctx, task.ID)
	if err != nil {
		w.log.Error().Err(err).Int64("task_id", task.ID).Msg("claim task")
		return
	}
	if !claimed {
		return
	}

	var payload TicketPayload
	if err := json.Unmarshal([]byte(task.Payload), &payload); err != nil {
		w.failTask(ctx, task, fmt.Errorf("decode payload: %w", err))
		return
	}

	if err := w.issuer.IssueTickets(ctx, payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.db.UpdateTicketTaskStatus(ctx, task.ID, models.TicketTaskCompleted, "", nil); err != nil {
		w.log.Error().Err(err).Int64("task_id", task.ID).Msg("mark completed")
	}
}

func (w *TicketWorker) retryOrFail(ctx context.Context, task *models.TicketTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		if err := w.db.UpdateTicketTaskStatus(ctx, task.ID, models.TicketTaskFailed, cause.Error(), nil); err != nil {
			w.log.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	nextDelay := w.retryPolicy.NextDelay(attempt)
	nextTime := time.Now().Add(nextDelay)
	if err := w.db.UpdateTicketTaskStatus(ctx, task.ID, models.TicketTaskRetry, cause.Error(), &nextTime); err != nil {
		w.log.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
}

func (w *TicketWorker) failTask(ctx context.Context, task *models.TicketTask, err error) {
	if uerr := w.db.UpdateTicketTaskStatus(ctx, task.ID, models.TicketTaskFailed, err.Error(), nil); uerr != nil {
		w.log.Error().Err(uerr).Int64("task_id", task.ID).Msg("mark failed")
	}
	w.pushDeadLetter(ctx, task)
}

func (w *TicketWorker) pushRedis(ctx context.Context, task models.TicketTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *TicketWorker) pushDeadLetter(ctx context.Context, task *models.TicketTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.log.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.log.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
