package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/domain"
)

// EventName classifies a mutation stream record.
type EventName string

// Known mutation event names. Records with any other name are ignored by
// consumers.
const (
	EventInsert EventName = "INSERT"
	EventModify EventName = "MODIFY"
	EventRemove EventName = "REMOVE"
)

// DeadlineLayout is the wire format of deadline attributes in task images:
// ISO-8601 local date-time without a zone offset.
const DeadlineLayout = "2006-01-02T15:04:05"

// StatusActive is the image status value marking a task as still live.
// It mirrors domain.StatusOpen on the wire.
const StatusActive = "open"

// Image attribute keys consumed by the lifecycle engine.
const (
	AttrTaskID   = "taskId"
	AttrName     = "name"
	AttrStatus   = "status"
	AttrDeadline = "deadline"
	AttrUserID   = "userId"
)

// TaskImage is the flattened, string-keyed snapshot of a task carried by a
// mutation record or a schedule payload.
type TaskImage map[string]string

// ImageFromTask flattens a task into the wire snapshot.
func ImageFromTask(task *domain.Task) TaskImage {
	return TaskImage{
		AttrTaskID:   task.ID.String(),
		AttrName:     task.Name,
		AttrStatus:   string(task.Status),
		AttrDeadline: task.Deadline.Format(DeadlineLayout),
		AttrUserID:   task.OwnerID.String(),
	}
}

// TaskID returns the task identifier attribute, or an empty string when the
// image carries none.
func (img TaskImage) TaskID() string {
	return img[AttrTaskID]
}

// Status returns the raw status attribute.
func (img TaskImage) Status() string {
	return img[AttrStatus]
}

// UserID returns the owner attribute.
func (img TaskImage) UserID() string {
	return img[AttrUserID]
}

// HasDeadline reports whether the image carries a deadline attribute at all.
func (img TaskImage) HasDeadline() bool {
	return img[AttrDeadline] != ""
}

// Deadline parses the deadline attribute using DeadlineLayout.
// Returns an error when the attribute is absent or malformed; callers treat
// either case as "no valid deadline" rather than propagating it.
func (img TaskImage) Deadline() (time.Time, error) {
	raw := img[AttrDeadline]
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: image has no deadline attribute", domain.ErrValidation)
	}

	t, err := time.Parse(DeadlineLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable deadline %q: %w", raw, err)
	}

	return t, nil
}

// ChangeRecord is a single task-mutation event consumed by the change
// reactor. OldImage is empty for INSERT records.
type ChangeRecord struct {
	ID        uuid.UUID `json:"id"`
	EventName EventName `json:"event_name"`
	NewImage  TaskImage `json:"new_image,omitempty"`
	OldImage  TaskImage `json:"old_image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChangeRecord builds a record with a fresh event ID and timestamp.
func NewChangeRecord(name EventName, newImage, oldImage TaskImage) ChangeRecord {
	return ChangeRecord{
		ID:        uuid.New(),
		EventName: name,
		NewImage:  newImage,
		OldImage:  oldImage,
		CreatedAt: time.Now().UTC(),
	}
}
