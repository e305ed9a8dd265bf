// Package schedule manages named, durable, one-shot timers for tasks. The
// change reactor owns every schedule exclusively: schedules are created and
// deleted by it, never mutated in place. A change is always
// delete-then-recreate.
package schedule

import (
	"context"
	"time"
)

// Purpose distinguishes the two schedule kinds kept per task.
type Purpose string

// Known schedule purposes.
const (
	// PurposeReminder fires ahead of the deadline to send an advance notice.
	PurposeReminder Purpose = "Reminder"

	// PurposeExpiration fires exactly at the deadline to trigger expiration
	// detection for the task.
	PurposeExpiration Purpose = "Expiration"
)

// Name builds the deterministic schedule name for a purpose and task id.
// Determinism is what makes delete-then-recreate idempotent under replayed
// stream records: at most one schedule per purpose per task can ever exist.
func Name(purpose Purpose, taskID string) string {
	return string(purpose) + "_" + taskID
}

// Entry is a one-shot schedule as stored in the external scheduler.
type Entry struct {
	// Name is the deterministic schedule name from Name().
	Name string `json:"name"`

	// FireAt is the absolute instant the schedule fires.
	FireAt time.Time `json:"fire_at"`

	// Target names the callback invoked when the schedule fires.
	Target string `json:"target"`

	// Payload is the flattened task snapshot passed to the callback.
	Payload map[string]string `json:"payload,omitempty"`
}

// Store is the durable point-in-time scheduler collaborator. Implementations
// must be safe for concurrent use.
type Store interface {
	// Put stores a one-shot schedule. Storing under an existing name
	// replaces the previous entry.
	Put(ctx context.Context, entry Entry) error

	// Delete removes the named schedule.
	// Returns store.ErrScheduleNotFound when no such schedule exists.
	Delete(ctx context.Context, name string) error

	// PopDue atomically claims and removes entries whose fire-at instant is
	// at or before now, up to limit. A claimed entry is fired exactly once
	// per claim even when multiple pollers race.
	PopDue(ctx context.Context, now time.Time, limit int) ([]Entry, error)
}
