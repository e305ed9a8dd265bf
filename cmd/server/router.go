package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/taskward/internal/api"
	apiMiddleware "github.com/phrazzld/taskward/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	taskHandler := api.NewTaskHandler(app.taskService, app.logger)
	internalHandler := api.NewInternalHandler(app.poller, app.detector, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.verifier)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Task lifecycle endpoints
			r.Post("/tasks", taskHandler.CreateTask)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Patch("/tasks/{id}", taskHandler.UpdateTask)
			r.Post("/tasks/{id}/complete", taskHandler.CompleteTask)
			r.Post("/tasks/{id}/close", taskHandler.CloseTask)
		})

		// Internal trigger endpoints, gated on the ops group claim.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(authMiddleware.RequireGroup(app.config.Auth.OpsGroup))

			r.Post("/internal/schedules/fire", internalHandler.FireSchedules)
			r.Post("/internal/tasks/{id}/expire", internalHandler.ExpireTask)
			r.Post("/internal/sweep", internalHandler.Sweep)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
