// Package api exposes the queue client over HTTP: task and chain submission,
// polling retrieval of results and groups, and schedule creation.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"qdispatch/internal/domain"
	"qdispatch/internal/queue"
)

// maxRequestBody caps submission bodies at 1 MiB.
const maxRequestBody = 1 << 20

// TaskHandler handles task submission and retrieval requests.
type TaskHandler struct {
	client    *queue.Client
	validator *validator.Validate
	logger    *slog.Logger
}

// NewTaskHandler creates a TaskHandler over the given client.
func NewTaskHandler(client *queue.Client, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		client:    client,
		validator: validator.New(),
		logger:    logger.With(slog.String("component", "api")),
	}
}

func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid request format", nil)
		return false
	}
	if err := h.validator.Struct(v); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "validation error: "+err.Error(), nil)
		return false
	}
	return true
}

// SubmitTask handles POST /api/tasks.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.client.Submit(r.Context(), req.Func, req.Args, req.Kwargs, &queue.Options{
		Hook:   req.Hook,
		Group:  req.Group,
		Save:   req.Save,
		Sync:   req.Sync,
		Cached: req.Cached,
	})
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to submit task", err)
		return
	}
	RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{ID: id})
}

// SubmitIter handles POST /api/tasks/iter.
func (h *TaskHandler) SubmitIter(w http.ResponseWriter, r *http.Request) {
	var req SubmitIterRequest
	if !h.decode(w, r, &req) {
		return
	}

	group, err := h.client.SubmitIter(r.Context(), req.Func, req.ArgSets, &queue.Options{
		Cached: req.Cached,
		Sync:   req.Sync,
	})
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to submit iterator group", err)
		return
	}
	RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{ID: group})
}

// SubmitChain handles POST /api/chains.
func (h *TaskHandler) SubmitChain(w http.ResponseWriter, r *http.Request) {
	var req SubmitChainRequest
	if !h.decode(w, r, &req) {
		return
	}

	steps := make([]domain.Step, 0, len(req.Steps))
	for _, s := range req.Steps {
		steps = append(steps, domain.Step{Func: s.Func, Args: s.Args, Kwargs: s.Kwargs})
	}
	group, err := h.client.SubmitChain(r.Context(), steps, &queue.ChainOptions{
		Group:  req.Group,
		Cached: req.Cached,
		Sync:   req.Sync,
	})
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to submit chain", err)
		return
	}
	RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{ID: group})
}

// GetTask handles GET /api/tasks/{id}. Query: wait_ms, cached.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wait, cached := retrievalParams(r)

	rec, err := h.client.Fetch(r.Context(), id, wait, cached)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to fetch task", err)
		return
	}
	if rec == nil {
		RespondWithError(w, r, http.StatusNotFound, "task not found", nil)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, taskToResponse(rec))
}

// GetTaskResult handles GET /api/tasks/{id}/result. Query: wait_ms, cached.
func (h *TaskHandler) GetTaskResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wait, cached := retrievalParams(r)

	// A task result can legitimately be null, so absence is decided on the
	// record, not the value.
	rec, err := h.client.Fetch(r.Context(), id, wait, cached)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to fetch result", err)
		return
	}
	if rec == nil {
		RespondWithError(w, r, http.StatusNotFound, "result not available", nil)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, ResultResponse{Result: rec.Result})
}

// GetGroupResults handles GET /api/groups/{id}/results.
// Query: wait_ms, cached, failures, count.
func (h *TaskHandler) GetGroupResults(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wait, cached := retrievalParams(r)
	failures := boolParam(r, "failures")
	count := intParam(r, "count")

	results, err := h.client.ResultGroup(r.Context(), id, failures, wait, count, cached)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to fetch group results", err)
		return
	}
	if results == nil {
		RespondWithError(w, r, http.StatusNotFound, "group not found", nil)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, GroupResultsResponse{Results: results})
}

// GetGroupTasks handles GET /api/groups/{id}/tasks.
// Query: wait_ms, cached, failures, count.
func (h *TaskHandler) GetGroupTasks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wait, cached := retrievalParams(r)
	failures := boolParam(r, "failures")
	count := intParam(r, "count")

	recs, err := h.client.FetchGroup(r.Context(), id, failures, wait, count, cached)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to fetch group tasks", err)
		return
	}
	if recs == nil {
		RespondWithError(w, r, http.StatusNotFound, "group not found", nil)
		return
	}
	out := make([]TaskResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, taskToResponse(rec))
	}
	RespondWithJSON(w, r, http.StatusOK, out)
}

// GetGroupCount handles GET /api/groups/{id}/count. Query: cached, failures.
func (h *TaskHandler) GetGroupCount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cached := boolParam(r, "cached")
	failures := boolParam(r, "failures")

	n, err := h.client.GroupCount(r.Context(), id, failures, cached)
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to count group", err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, CountResponse{Count: n})
}

// DeleteGroup handles DELETE /api/groups/{id}. Query: cached, tasks.
func (h *TaskHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cached := boolParam(r, "cached")
	deleteTasks := boolParam(r, "tasks")

	if err := h.client.DeleteGroup(r.Context(), id, deleteTasks, cached); err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to delete group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCached handles DELETE /api/cache/{id}.
func (h *TaskHandler) DeleteCached(w http.ResponseWriter, r *http.Request) {
	if err := h.client.DeleteCached(r.Context(), chi.URLParam(r, "id")); err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to delete cache entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetQueueSize handles GET /api/queue/size.
func (h *TaskHandler) GetQueueSize(w http.ResponseWriter, r *http.Request) {
	n, err := h.client.QueueSize(r.Context())
	if err != nil {
		RespondWithError(w, r, http.StatusInternalServerError, "failed to read queue size", err)
		return
	}
	RespondWithJSON(w, r, http.StatusOK, CountResponse{Count: n})
}

// CreateSchedule handles POST /api/schedules.
func (h *TaskHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}

	s, err := h.client.CreateSchedule(r.Context(), &domain.Schedule{
		Name:    req.Name,
		Func:    req.Func,
		Args:    req.Args,
		Kwargs:  req.Kwargs,
		Hook:    req.Hook,
		Type:    domain.ScheduleType(req.Type),
		Minutes: req.Minutes,
		Cron:    req.Cron,
		Repeats: req.Repeats,
		NextRun: req.NextRun,
	})
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid schedule: "+err.Error(), nil)
		return
	}
	RespondWithJSON(w, r, http.StatusCreated, scheduleToResponse(s))
}

// retrievalParams reads the shared polling query parameters: wait_ms (negative
// blocks without deadline, absent means a single check) and cached.
func retrievalParams(r *http.Request) (time.Duration, bool) {
	wait := time.Duration(intParam(r, "wait_ms")) * time.Millisecond
	if wait < 0 {
		wait = -1
	}
	return wait, boolParam(r, "cached")
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func intParam(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
