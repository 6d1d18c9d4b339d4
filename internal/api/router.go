package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qdispatch/internal/queue"
)

// NewRouter builds the HTTP surface over the given client.
func NewRouter(client *queue.Client, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	h := NewTaskHandler(client, logger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/tasks", h.SubmitTask)
		r.Post("/tasks/iter", h.SubmitIter)
		r.Get("/tasks/{id}", h.GetTask)
		r.Get("/tasks/{id}/result", h.GetTaskResult)

		r.Post("/chains", h.SubmitChain)

		r.Get("/groups/{id}/results", h.GetGroupResults)
		r.Get("/groups/{id}/tasks", h.GetGroupTasks)
		r.Get("/groups/{id}/count", h.GetGroupCount)
		r.Delete("/groups/{id}", h.DeleteGroup)

		r.Delete("/cache/{id}", h.DeleteCached)
		r.Get("/queue/size", h.GetQueueSize)

		r.Post("/schedules", h.CreateSchedule)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
