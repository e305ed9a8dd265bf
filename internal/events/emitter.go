package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler defines an interface for components that consume mutation records.
type Handler interface {
	// HandleRecord processes the given record within the provided context.
	// Returns an error if the record cannot be handled successfully.
	HandleRecord(ctx context.Context, record ChangeRecord) error
}

// Emitter defines an interface for components that publish mutation records.
// This allows services to emit change events without direct knowledge of the
// reactor consuming them.
type Emitter interface {
	// Emit publishes the given record to all registered handlers.
	Emit(ctx context.Context, record ChangeRecord) error
}

// InMemoryEmitter is a simple implementation of the Emitter interface that
// stores registered handlers in memory and dispatches records to them. It is
// the in-process stand-in for the source system's datastore change stream.
type InMemoryEmitter struct {
	handlers []Handler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEmitter creates a new instance of InMemoryEmitter.
func NewInMemoryEmitter(logger *slog.Logger) *InMemoryEmitter {
	return &InMemoryEmitter{
		handlers: make([]Handler, 0),
		logger:   logger.With("component", "in_memory_emitter"),
	}
}

// RegisterHandler adds a new handler to receive records.
func (e *InMemoryEmitter) RegisterHandler(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new record handler", "handler_count", len(e.handlers))
}

// Emit publishes the given record to all registered handlers. If any handler
// returns an error, the record is still delivered to all other handlers, and
// the first error encountered is returned.
func (e *InMemoryEmitter) Emit(ctx context.Context, record ChangeRecord) error {
	e.mu.RLock()
	handlers := make([]Handler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	e.logger.Debug("emitting record",
		"event_id", record.ID,
		"event_name", record.EventName,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		e.logger.Warn("no handlers registered for record",
			"event_id", record.ID,
			"event_name", record.EventName)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleRecord(ctx, record); err != nil {
			e.logger.Error("handler failed to process record",
				"error", err,
				"handler_index", i,
				"event_id", record.ID,
				"event_name", record.EventName)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
