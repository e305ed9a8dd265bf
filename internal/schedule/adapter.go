package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/store"
)

// Adapter wraps a Store with the engine's creation and deletion policies.
// Both operations are fire-and-forget from the caller's perspective: they
// never return an error that could block the caller's mutation flow. Create
// reports success through its boolean result only.
type Adapter struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewAdapter creates a new schedule Adapter.
// If logger is nil, a default logger will be used.
func NewAdapter(scheduleStore Store, logger *slog.Logger) *Adapter {
	if scheduleStore == nil {
		panic("schedule store cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		store:  scheduleStore,
		now:    time.Now,
		logger: logger.With(slog.String("component", "schedule_adapter")),
	}
}

// WithNow returns a copy of the adapter using the given clock. Tests use
// this to pin "now".
func (a *Adapter) WithNow(now func() time.Time) *Adapter {
	clone := *a
	clone.now = now
	return &clone
}

// Create stores a one-shot schedule named after the purpose and task id.
// A fire-at instant that is not strictly in the future is a policy no-op,
// not a defect: the candidate schedule is already moot, so it is skipped
// with a log line and Create returns false. Store failures are logged and
// also yield false; they never propagate.
func (a *Adapter) Create(
	ctx context.Context,
	purpose Purpose,
	taskID string,
	fireAt time.Time,
	target string,
	payload map[string]string,
) bool {
	log := logger.FromContextOrDefault(ctx, a.logger)
	name := Name(purpose, taskID)

	if !fireAt.After(a.now()) {
		log.Info("skipping schedule for instant not strictly in the future",
			slog.String("schedule", name),
			slog.Time("fire_at", fireAt))
		return false
	}

	entry := Entry{
		Name:    name,
		FireAt:  fireAt,
		Target:  target,
		Payload: payload,
	}

	if err := a.store.Put(ctx, entry); err != nil {
		log.Error("failed to create schedule",
			slog.String("schedule", name),
			slog.Time("fire_at", fireAt),
			slog.String("error", err.Error()))
		return false
	}

	log.Info("schedule created",
		slog.String("schedule", name),
		slog.Time("fire_at", fireAt))
	return true
}

// Delete removes the schedule named after the purpose and task id,
// best-effort. A missing schedule is expected (it may never have been
// created, or already fired) and is logged at debug level. Any
// other failure is logged and swallowed so deletion never blocks the
// caller's mutation flow.
func (a *Adapter) Delete(ctx context.Context, purpose Purpose, taskID string) {
	log := logger.FromContextOrDefault(ctx, a.logger)
	name := Name(purpose, taskID)

	err := a.store.Delete(ctx, name)
	switch {
	case err == nil:
		log.Info("schedule deleted", slog.String("schedule", name))
	case store.IsNotFoundError(err):
		log.Debug("schedule not found on delete", slog.String("schedule", name))
	default:
		log.Error("failed to delete schedule",
			slog.String("schedule", name),
			slog.String("error", err.Error()))
	}
}
