// Package expiry detects tasks whose deadline has passed and transitions
// them to EXPIRED. It runs in two modes sharing one decision rule: a
// targeted check for a single known task (invoked by the expiration
// schedule firing) and a periodic sweep over all tasks that catches
// expirations whose dedicated schedule failed or was never created.
package expiry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/notify"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/store"
)

// Outcome is the typed result of a targeted expiration check.
type Outcome string

// Targeted-mode outcomes.
const (
	// OutcomeExpired: the task was transitioned to EXPIRED.
	OutcomeExpired Outcome = "expired"

	// OutcomeNotFound: no task with the given id exists.
	OutcomeNotFound Outcome = "not_found"

	// OutcomeSkipped: the task does not meet the expiration rule (no
	// deadline, deadline still in the future, or a status that must not be
	// expired).
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed: a collaborator call failed; the task remains unchanged.
	OutcomeFailed Outcome = "failed"
)

// Pusher is the producing side of the durable notification queue.
type Pusher interface {
	Push(ctx context.Context, msg []byte) error
}

// SweepResult summarizes one sweep over all tasks.
type SweepResult struct {
	Scanned  int
	Expired  int
	Failed   int
	Enqueued int
	// Fallbacks counts tasks handed directly to the dispatcher after a
	// queue push failed.
	Fallbacks int
}

// Detector decides, per task, whether it must transition to EXPIRED, and
// hands expired tasks off for notification.
type Detector struct {
	tasks      store.TaskStore
	queue      Pusher
	dispatcher *notify.Dispatcher
	now        func() time.Time
	logger     *slog.Logger
}

// NewDetector creates a Detector. The queue may be nil, in which case the
// sweep always dispatches directly. If logger is nil, a default logger will
// be used.
func NewDetector(
	tasks store.TaskStore,
	queue Pusher,
	dispatcher *notify.Dispatcher,
	logger *slog.Logger,
) *Detector {
	if tasks == nil {
		panic("task store cannot be nil")
	}
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Detector{
		tasks:      tasks,
		queue:      queue,
		dispatcher: dispatcher,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "expiration_detector")),
	}
}

// WithNow returns a copy of the detector using the given clock.
func (d *Detector) WithNow(now func() time.Time) *Detector {
	clone := *d
	clone.now = now
	return &clone
}

// ShouldExpire is the shared decision rule: a task expires when it has a
// deadline strictly in the past and is neither COMPLETED nor EXPIRED. CLOSED
// tasks also pass this rule but are rejected by the terminal-status guard at
// transition time and count as skipped.
func ShouldExpire(task *domain.Task, now time.Time) bool {
	if task.Deadline.IsZero() {
		return false
	}
	if task.Status == domain.StatusCompleted || task.Status == domain.StatusExpired {
		return false
	}
	return task.Deadline.Before(now)
}

// ExpireTask is the targeted mode: fetch one known task, transition it if
// the rule holds, and dispatch notifications directly. The single-task path
// favors low latency and skips the queue indirection.
func (d *Detector) ExpireTask(ctx context.Context, id uuid.UUID) Outcome {
	log := logger.FromContextOrDefault(ctx, d.logger).With(slog.String("task_id", id.String()))

	task, err := d.tasks.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			log.Warn("task not found for targeted expiration")
			return OutcomeNotFound
		}
		log.Error("failed to fetch task", slog.String("error", err.Error()))
		return OutcomeFailed
	}

	now := d.now()
	if !ShouldExpire(task, now) {
		log.Debug("task does not meet expiration rule",
			slog.String("status", string(task.Status)),
			slog.Time("deadline", task.Deadline))
		return OutcomeSkipped
	}

	outcome, expired := d.transition(ctx, task, now, log)
	if outcome != OutcomeExpired {
		return outcome
	}

	d.dispatcher.Dispatch(ctx, expired)
	return OutcomeExpired
}

// Sweep is the periodic mode: enumerate all tasks and expire every one the
// rule matches, pushing each onto the durable queue with a direct-dispatch
// fallback. Per-task failures are logged individually and the sweep
// continues; the transitioned count is logged at the end.
func (d *Detector) Sweep(ctx context.Context) (SweepResult, error) {
	log := logger.FromContextOrDefault(ctx, d.logger)

	tasks, err := d.tasks.ListAll(ctx)
	if err != nil {
		log.Error("failed to list tasks for sweep", slog.String("error", err.Error()))
		return SweepResult{}, err
	}

	now := d.now()
	var result SweepResult
	for i := range tasks {
		task := &tasks[i]
		result.Scanned++

		if !ShouldExpire(task, now) {
			continue
		}

		taskLog := log.With(slog.String("task_id", task.ID.String()))

		outcome, expired := d.transition(ctx, task, now, taskLog)
		switch outcome {
		case OutcomeExpired:
			result.Expired++
		case OutcomeSkipped:
			continue
		default:
			result.Failed++
			continue
		}

		if d.enqueue(ctx, expired, taskLog) {
			result.Enqueued++
		} else {
			// The task is never silently stranded: a push failure falls
			// back to direct notification.
			d.dispatcher.Dispatch(ctx, expired)
			result.Fallbacks++
		}
	}

	log.Info("expiration sweep completed",
		slog.Int("scanned", result.Scanned),
		slog.Int("expired", result.Expired),
		slog.Int("failed", result.Failed),
		slog.Int("enqueued", result.Enqueued),
		slog.Int("fallbacks", result.Fallbacks))
	return result, nil
}

// transition applies the EXPIRED state change in memory and persists it via
// a targeted attribute update so concurrent edits to other fields are not
// clobbered.
func (d *Detector) transition(
	ctx context.Context,
	task *domain.Task,
	now time.Time,
	log *slog.Logger,
) (Outcome, *domain.Task) {
	if err := task.MarkExpired(now); err != nil {
		if errors.Is(err, domain.ErrTerminalStatus) {
			// CLOSED passes ShouldExpire but must stay untouched.
			log.Debug("task in terminal status, not expiring",
				slog.String("status", string(task.Status)))
			return OutcomeSkipped, nil
		}
		log.Error("failed to mark task expired", slog.String("error", err.Error()))
		return OutcomeFailed, nil
	}

	if err := d.tasks.UpdateStatusExpired(ctx, task.ID, *task.ExpiredAt); err != nil {
		log.Error("failed to persist expiration", slog.String("error", err.Error()))
		return OutcomeFailed, nil
	}

	log.Info("task expired", slog.Time("deadline", task.Deadline))
	return OutcomeExpired, task
}

// enqueue serializes the task and pushes it onto the notification queue.
// Returns false when the queue is unconfigured or the push failed.
func (d *Detector) enqueue(ctx context.Context, task *domain.Task, log *slog.Logger) bool {
	if d.queue == nil {
		log.Warn("notification queue not configured, dispatching directly")
		return false
	}

	msg, err := json.Marshal(task)
	if err != nil {
		log.Error("failed to serialize task for queue", slog.String("error", err.Error()))
		return false
	}

	if err := d.queue.Push(ctx, msg); err != nil {
		log.Error("failed to push notification message, falling back to direct dispatch",
			slog.String("error", err.Error()))
		return false
	}

	return true
}
