// Package reactor consumes task mutation records and keeps the per-task
// reminder and expiration schedules consistent with the task's deadline,
// owner, and liveness.
package reactor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskward/internal/deadline"
	"github.com/phrazzld/taskward/internal/events"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/schedule"
)

// Action classifies what a single record caused.
type Action string

// Per-record outcomes.
const (
	// ActionNone: the record required no schedule work (ignored event kind,
	// or neither deadline nor owner changed).
	ActionNone Action = "none"

	// ActionScheduled: one or more schedules were created for an insert.
	ActionScheduled Action = "scheduled"

	// ActionRescheduled: the reminder was deleted and recreated.
	ActionRescheduled Action = "rescheduled"

	// ActionDeleted: the reminder was deleted without replacement.
	ActionDeleted Action = "deleted"

	// ActionSkipped: the record was understood but scheduling was not
	// possible (missing task id, unparseable deadline, missing target).
	ActionSkipped Action = "skipped"

	// ActionFailed: processing the record panicked; the batch continued.
	ActionFailed Action = "failed"
)

// Result is the outcome of processing one mutation record.
type Result struct {
	RecordID string
	TaskID   string
	Action   Action
	Err      error
}

// Summary aggregates a batch fold.
type Summary struct {
	Processed int
	Failed    int
}

// Config carries the reactor's scheduling knobs. Empty callback targets
// degrade the corresponding schedule purpose to a logged no-op.
type Config struct {
	ReminderOffset   time.Duration
	ReminderTarget   string
	ExpirationTarget string
}

// Reactor reacts to task mutation records by creating and deleting one-shot
// schedules through the schedule adapter. It holds no mutable state and is
// safe for concurrent use.
type Reactor struct {
	schedules *schedule.Adapter
	cfg       Config
	logger    *slog.Logger
}

// New creates a Reactor. A zero ReminderOffset falls back to the default
// 60-minute offset. If logger is nil, a default logger will be used.
func New(schedules *schedule.Adapter, cfg Config, logger *slog.Logger) *Reactor {
	if schedules == nil {
		panic("schedule adapter cannot be nil")
	}

	if cfg.ReminderOffset <= 0 {
		cfg.ReminderOffset = deadline.DefaultReminderOffset
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Reactor{
		schedules: schedules,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "change_reactor")),
	}
}

// HandleRecord processes a single mutation record. It implements
// events.Handler so the reactor can be registered on the change emitter.
// Errors are folded into the returned Result; the error return is always nil
// so one bad record never aborts an emitter fan-out.
func (r *Reactor) HandleRecord(ctx context.Context, record events.ChangeRecord) error {
	r.processRecord(ctx, record)
	return nil
}

// HandleBatch folds a batch of records into per-record results. A failure in
// one record is recorded and the fold continues over the remaining records.
func (r *Reactor) HandleBatch(ctx context.Context, records []events.ChangeRecord) ([]Result, Summary) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	results := make([]Result, 0, len(records))
	var summary Summary
	for _, record := range records {
		result := r.processRecord(ctx, record)
		results = append(results, result)

		summary.Processed++
		if result.Action == ActionFailed {
			summary.Failed++
		}
	}

	log.Info("processed mutation batch",
		slog.Int("records", summary.Processed),
		slog.Int("failed", summary.Failed))
	return results, summary
}

// processRecord dispatches on the event kind and converts panics into a
// failed result so one malformed record never blocks the batch.
func (r *Reactor) processRecord(ctx context.Context, record events.ChangeRecord) (result Result) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("record processing panicked",
				slog.String("event_id", record.ID.String()),
				slog.Any("panic", rec))
			result = Result{
				RecordID: record.ID.String(),
				TaskID:   record.NewImage.TaskID(),
				Action:   ActionFailed,
				Err:      fmt.Errorf("record processing panicked: %v", rec),
			}
		}
	}()

	switch record.EventName {
	case events.EventInsert:
		result = r.handleInsert(ctx, record)
	case events.EventModify:
		result = r.handleModify(ctx, record)
	default:
		log.Debug("ignoring record of unhandled kind",
			slog.String("event_id", record.ID.String()),
			slog.String("event_name", string(record.EventName)))
		result = Result{RecordID: record.ID.String(), Action: ActionNone}
	}

	return result
}

func (r *Reactor) handleInsert(ctx context.Context, record events.ChangeRecord) Result {
	log := logger.FromContextOrDefault(ctx, r.logger)
	img := record.NewImage

	taskID := img.TaskID()
	if taskID == "" {
		log.Warn("insert record has no task id", slog.String("event_id", record.ID.String()))
		return Result{RecordID: record.ID.String(), Action: ActionSkipped}
	}

	result := Result{RecordID: record.ID.String(), TaskID: taskID, Action: ActionSkipped}

	due, err := img.Deadline()
	if err != nil {
		// Malformed input degrades to "no valid deadline"; nothing to schedule.
		log.Warn("insert record has no valid deadline",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
		return result
	}

	if r.cfg.ReminderTarget == "" {
		log.Warn("reminder target not configured, skipping reminder schedule",
			slog.String("task_id", taskID))
	} else {
		remindAt := deadline.ReminderTime(due, r.cfg.ReminderOffset)
		if r.schedules.Create(ctx, schedule.PurposeReminder, taskID, remindAt,
			r.cfg.ReminderTarget, img) {
			result.Action = ActionScheduled
		}
	}

	// Independently of the reminder, an expiration check fires at the exact
	// deadline instant when a callback target is configured.
	if r.cfg.ExpirationTarget == "" {
		log.Warn("expiration target not configured, skipping expiration schedule",
			slog.String("task_id", taskID))
	} else if r.schedules.Create(ctx, schedule.PurposeExpiration, taskID, due,
		r.cfg.ExpirationTarget, img) {
		result.Action = ActionScheduled
	}

	return result
}

func (r *Reactor) handleModify(ctx context.Context, record events.ChangeRecord) Result {
	log := logger.FromContextOrDefault(ctx, r.logger)
	newImg, oldImg := record.NewImage, record.OldImage

	taskID := newImg.TaskID()
	if taskID == "" {
		taskID = oldImg.TaskID()
	}
	if taskID == "" {
		log.Warn("modify record has no task id", slog.String("event_id", record.ID.String()))
		return Result{RecordID: record.ID.String(), Action: ActionSkipped}
	}

	result := Result{RecordID: record.ID.String(), TaskID: taskID}

	// A task that is no longer live needs no reminder.
	if newImg.Status() != events.StatusActive {
		r.schedules.Delete(ctx, schedule.PurposeReminder, taskID)
		result.Action = ActionDeleted
		return result
	}

	// Cannot reschedule without a deadline.
	if !newImg.HasDeadline() {
		r.schedules.Delete(ctx, schedule.PurposeReminder, taskID)
		result.Action = ActionDeleted
		return result
	}

	// No redundant schedule churn when neither deadline nor owner changed.
	if newImg[events.AttrDeadline] == oldImg[events.AttrDeadline] &&
		newImg.UserID() == oldImg.UserID() {
		result.Action = ActionNone
		return result
	}

	// Deadline or owner changed: always drop the stale reminder first.
	r.schedules.Delete(ctx, schedule.PurposeReminder, taskID)
	result.Action = ActionDeleted

	due, err := newImg.Deadline()
	if err != nil {
		// The delete stands; a reminder cannot be rebuilt from an
		// unparseable deadline.
		log.Warn("modify record has unparseable deadline, reminder dropped",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
		return result
	}

	if r.cfg.ReminderTarget == "" {
		log.Warn("reminder target not configured, reminder dropped without replacement",
			slog.String("task_id", taskID))
		return result
	}

	remindAt := deadline.ReminderTime(due, r.cfg.ReminderOffset)
	if r.schedules.Create(ctx, schedule.PurposeReminder, taskID, remindAt,
		r.cfg.ReminderTarget, newImg) {
		result.Action = ActionRescheduled
	}
	// When remindAt is already past, the delete stands and the stale
	// reminder is dropped rather than fired late.

	return result
}
