// Package poller drains due schedules from the durable scheduler and routes
// each fired entry to its callback: reminder entries to the notification
// dispatcher, expiration entries to the targeted expiration check.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskward/internal/events"
	"github.com/phrazzld/taskward/internal/expiry"
	"github.com/phrazzld/taskward/internal/notify"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/schedule"
)

// DefaultClaimLimit bounds how many due entries one poll claims.
const DefaultClaimLimit = 100

// Config names the callback targets the poller routes on. They must match
// the targets the reactor writes into schedule entries.
type Config struct {
	ReminderTarget   string
	ExpirationTarget string
	ClaimLimit       int
}

// FireSummary aggregates one drain of due schedules.
type FireSummary struct {
	Claimed   int `json:"claimed"`
	Reminders int `json:"reminders"`
	Expired   int `json:"expired"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Poller claims due schedule entries and fires their callbacks. It holds no
// mutable state and is safe for concurrent use; the store's claim semantics
// guarantee each entry fires once even when pollers race.
type Poller struct {
	schedules  schedule.Store
	dispatcher *notify.Dispatcher
	detector   *expiry.Detector
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a Poller. A zero ClaimLimit falls back to DefaultClaimLimit.
// If logger is nil, a default logger will be used.
func New(
	schedules schedule.Store,
	dispatcher *notify.Dispatcher,
	detector *expiry.Detector,
	cfg Config,
	log *slog.Logger,
) *Poller {
	if schedules == nil {
		panic("schedule store cannot be nil")
	}
	if dispatcher == nil {
		panic("dispatcher cannot be nil")
	}
	if detector == nil {
		panic("detector cannot be nil")
	}

	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = DefaultClaimLimit
	}
	if log == nil {
		log = slog.Default()
	}

	return &Poller{
		schedules:  schedules,
		dispatcher: dispatcher,
		detector:   detector,
		cfg:        cfg,
		now:        time.Now,
		logger:     log.With(slog.String("component", "schedule_poller")),
	}
}

// WithNow returns a copy of the poller using the given clock.
func (p *Poller) WithNow(now func() time.Time) *Poller {
	clone := *p
	clone.now = now
	return &clone
}

// FireDue claims every entry due at the current instant and fires each one.
// A failing entry is logged and counted; the drain continues.
func (p *Poller) FireDue(ctx context.Context) (FireSummary, error) {
	log := logger.FromContextOrDefault(ctx, p.logger)

	entries, err := p.schedules.PopDue(ctx, p.now(), p.cfg.ClaimLimit)
	if err != nil {
		log.Error("failed to claim due schedules", slog.String("error", err.Error()))
		return FireSummary{}, err
	}

	var summary FireSummary
	for _, entry := range entries {
		summary.Claimed++

		entryLog := log.With(
			slog.String("schedule", entry.Name),
			slog.String("target", entry.Target))

		switch entry.Target {
		case p.cfg.ReminderTarget:
			p.dispatcher.DispatchReminder(ctx, events.TaskImage(entry.Payload))
			summary.Reminders++

		case p.cfg.ExpirationTarget:
			taskID, err := uuid.Parse(events.TaskImage(entry.Payload).TaskID())
			if err != nil {
				entryLog.Warn("expiration entry has no valid task id",
					slog.String("error", err.Error()))
				summary.Skipped++
				continue
			}

			switch p.detector.ExpireTask(ctx, taskID) {
			case expiry.OutcomeExpired:
				summary.Expired++
			case expiry.OutcomeFailed:
				summary.Failed++
			default:
				// A not-found or skipped task means the schedule outlived
				// its purpose; consuming it is the correct end state.
				summary.Skipped++
			}

		default:
			entryLog.Warn("schedule entry has unknown target")
			summary.Skipped++
		}
	}

	if summary.Claimed > 0 {
		log.Info("fired due schedules",
			slog.Int("claimed", summary.Claimed),
			slog.Int("reminders", summary.Reminders),
			slog.Int("expired", summary.Expired),
			slog.Int("skipped", summary.Skipped),
			slog.Int("failed", summary.Failed))
	}
	return summary, nil
}

// Run polls at the given interval until the context is canceled.
func (p *Poller) Run(ctx context.Context, interval time.Duration) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	log.Info("schedule poller started", slog.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("schedule poller stopped")
			return
		case <-ticker.C:
			if _, err := p.FireDue(ctx); err != nil {
				log.Error("poll iteration failed", slog.String("error", err.Error()))
			}
		}
	}
}
