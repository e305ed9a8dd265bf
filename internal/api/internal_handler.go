package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/taskward/internal/api/shared"
	"github.com/phrazzld/taskward/internal/expiry"
	"github.com/phrazzld/taskward/internal/platform/logger"
	"github.com/phrazzld/taskward/internal/poller"
)

// InternalHandler exposes the operational trigger endpoints under /internal.
// Routing must gate them on the ops group.
type InternalHandler struct {
	poller   *poller.Poller
	detector *expiry.Detector
	logger   *slog.Logger
}

// NewInternalHandler creates a new InternalHandler.
func NewInternalHandler(p *poller.Poller, detector *expiry.Detector, log *slog.Logger) *InternalHandler {
	if log == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for InternalHandler")
	}

	return &InternalHandler{
		poller:   p,
		detector: detector,
		logger:   log.With(slog.String("component", "internal_handler")),
	}
}

// FireSchedules handles POST /internal/schedules/fire requests. It drains
// every schedule due now, same as one poll tick, and reports the counters.
func (h *InternalHandler) FireSchedules(w http.ResponseWriter, r *http.Request) {
	summary, err := h.poller.FireDue(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to fire due schedules", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summary)
}

// ExpireTask handles POST /internal/tasks/{id}/expire requests: the targeted
// expiration check for a single known task.
func (h *InternalHandler) ExpireTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	outcome := h.detector.ExpireTask(r.Context(), taskID)
	log.Debug("targeted expiration check finished",
		slog.String("task_id", taskID.String()),
		slog.String("outcome", string(outcome)))

	response := ExpireTaskResponse{TaskID: taskID.String(), Outcome: string(outcome)}
	switch outcome {
	case expiry.OutcomeNotFound:
		shared.RespondWithJSON(w, r, http.StatusNotFound, response)
	case expiry.OutcomeFailed:
		shared.RespondWithJSON(w, r, http.StatusInternalServerError, response)
	default:
		shared.RespondWithJSON(w, r, http.StatusOK, response)
	}
}

// Sweep handles POST /internal/sweep requests: a full expiration sweep over
// all tasks, identical to the scheduled periodic run.
func (h *InternalHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.detector.Sweep(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to run expiration sweep", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SweepResponse{
		Scanned:   result.Scanned,
		Expired:   result.Expired,
		Failed:    result.Failed,
		Enqueued:  result.Enqueued,
		Fallbacks: result.Fallbacks,
	})
}
