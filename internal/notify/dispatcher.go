// Package notify delivers expiration and reminder notifications through a
// publish/subscribe channel, resolving owner contact addresses via the
// identity provider. Every delivery step is individually fault-isolated:
// a failing step is logged and the remaining steps still run.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskward/internal/domain"
	"github.com/phrazzld/taskward/internal/events"
	"github.com/phrazzld/taskward/internal/platform/logger"
)

// Message is a plain text notification published to the channel.
type Message struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`

	// Attributes are filterable string attributes; user-facing messages
	// carry the owner under "user_id".
	Attributes map[string]string `json:"attributes,omitempty"`
}

// AttrUserID is the filterable attribute tagging user-facing messages with
// the task owner.
const AttrUserID = "user_id"

// Channel is the publish/subscribe notification collaborator.
type Channel interface {
	// Subscribe ensures the address receives messages published to the
	// channel. Subscribing an already-subscribed address is harmless.
	Subscribe(ctx context.Context, address string) error

	// Publish sends a message to all channel subscribers.
	Publish(ctx context.Context, msg Message) error
}

// ContactResolver resolves a task owner's notification address from the
// identity provider.
type ContactResolver interface {
	ResolveContact(ctx context.Context, ownerID uuid.UUID) (string, error)
}

// Report records which of the dispatch steps succeeded, for observability
// and tests. Dispatch itself never fails.
type Report struct {
	OwnerSubscribed bool
	AdminSubscribed bool
	UserPublished   bool
	AdminPublished  bool
}

// Dispatcher emits expired-task notifications to the task owner and a fixed
// administrative recipient.
type Dispatcher struct {
	channel      Channel
	contacts     ContactResolver
	adminAddress string
	logger       *slog.Logger
}

// NewDispatcher creates a Dispatcher.
// If logger is nil, a default logger will be used.
func NewDispatcher(
	channel Channel,
	contacts ContactResolver,
	adminAddress string,
	logger *slog.Logger,
) *Dispatcher {
	if channel == nil {
		panic("channel cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		channel:      channel,
		contacts:     contacts,
		adminAddress: adminAddress,
		logger:       logger.With(slog.String("component", "notification_dispatcher")),
	}
}

// Dispatch performs the four delivery steps for an expired task: subscribe
// the owner's contact address, subscribe the administrative address, publish
// the user-facing message, publish the admin-oriented message. Each step
// tolerates failure in the others; all failures are logged and none
// propagate.
func (d *Dispatcher) Dispatch(ctx context.Context, task *domain.Task) Report {
	log := logger.FromContextOrDefault(ctx, d.logger).With(
		slog.String("task_id", task.ID.String()))

	var report Report

	// Step 1: resolve and subscribe the owner's contact address.
	if d.contacts == nil {
		log.Warn("no contact resolver configured, owner subscription skipped")
	} else if address, err := d.contacts.ResolveContact(ctx, task.OwnerID); err != nil {
		log.Error("failed to resolve owner contact address",
			slog.String("owner_id", task.OwnerID.String()),
			slog.String("error", err.Error()))
	} else if err := d.channel.Subscribe(ctx, address); err != nil {
		log.Error("failed to subscribe owner address", slog.String("error", err.Error()))
	} else {
		report.OwnerSubscribed = true
	}

	// Step 2: the administrative address is always kept subscribed.
	if d.adminAddress == "" {
		log.Warn("no admin address configured, admin subscription skipped")
	} else if err := d.channel.Subscribe(ctx, d.adminAddress); err != nil {
		log.Error("failed to subscribe admin address", slog.String("error", err.Error()))
	} else {
		report.AdminSubscribed = true
	}

	// Step 3: user-facing message, tagged with the owner for filtering.
	userMsg := Message{
		Subject: "Task expired: " + task.Name,
		Body: fmt.Sprintf(
			"Your task %q (%s) passed its deadline of %s and has been marked expired.",
			task.Name, task.ID, task.Deadline.Format(time.RFC3339)),
		Attributes: map[string]string{AttrUserID: task.OwnerID.String()},
	}
	if err := d.channel.Publish(ctx, userMsg); err != nil {
		log.Error("failed to publish user notification", slog.String("error", err.Error()))
	} else {
		report.UserPublished = true
	}

	// Step 4: admin-oriented copy.
	adminMsg := Message{
		Subject: "[admin] task expired",
		Body: fmt.Sprintf(
			"Task %s (%q, owner %s) expired at deadline %s.",
			task.ID, task.Name, task.OwnerID, task.Deadline.Format(time.RFC3339)),
	}
	if err := d.channel.Publish(ctx, adminMsg); err != nil {
		log.Error("failed to publish admin notification", slog.String("error", err.Error()))
	} else {
		report.AdminPublished = true
	}

	log.Info("expiration notifications dispatched",
		slog.Bool("owner_subscribed", report.OwnerSubscribed),
		slog.Bool("admin_subscribed", report.AdminSubscribed),
		slog.Bool("user_published", report.UserPublished),
		slog.Bool("admin_published", report.AdminPublished))
	return report
}

// DispatchReminder publishes an advance notice built from a reminder
// schedule's payload snapshot. Failures are logged, never propagated.
func (d *Dispatcher) DispatchReminder(ctx context.Context, payload events.TaskImage) {
	log := logger.FromContextOrDefault(ctx, d.logger).With(
		slog.String("task_id", payload.TaskID()))

	deadlineText := payload[events.AttrDeadline]
	msg := Message{
		Subject: "Task deadline approaching: " + payload[events.AttrName],
		Body: fmt.Sprintf(
			"Task %q (%s) reaches its deadline at %s.",
			payload[events.AttrName], payload.TaskID(), deadlineText),
		Attributes: map[string]string{AttrUserID: payload.UserID()},
	}

	if err := d.channel.Publish(ctx, msg); err != nil {
		log.Error("failed to publish reminder notification", slog.String("error", err.Error()))
		return
	}

	log.Info("reminder notification published")
}
