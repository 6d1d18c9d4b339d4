package api

import (
	"time"

	"qdispatch/internal/domain"
)

// SubmitTaskRequest is the body of POST /api/tasks.
type SubmitTaskRequest struct {
	Func   string         `json:"func"   validate:"required"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
	Hook   string         `json:"hook"`
	Group  string         `json:"group"`
	Save   *bool          `json:"save"`
	Sync   *bool          `json:"sync"`
	Cached *bool          `json:"cached"`
}

// SubmitIterRequest is the body of POST /api/tasks/iter.
type SubmitIterRequest struct {
	Func    string `json:"func"     validate:"required"`
	ArgSets []any  `json:"arg_sets" validate:"required,min=1"`
	Cached  *bool  `json:"cached"`
	Sync    *bool  `json:"sync"`
}

// ChainStepRequest is one step of POST /api/chains.
type ChainStepRequest struct {
	Func   string         `json:"func" validate:"required"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// SubmitChainRequest is the body of POST /api/chains.
type SubmitChainRequest struct {
	Steps  []ChainStepRequest `json:"steps" validate:"required,min=1,dive"`
	Group  string             `json:"group"`
	Cached *bool              `json:"cached"`
	Sync   *bool              `json:"sync"`
}

// SubmitResponse acknowledges an asynchronous submission.
type SubmitResponse struct {
	ID string `json:"id"`
}

// TaskResponse is the serialized finished record.
type TaskResponse struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Func    string         `json:"func"`
	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Group   string         `json:"group,omitempty"`
	Started time.Time      `json:"started"`
	Stopped time.Time      `json:"stopped"`
	Result  any            `json:"result"`
	Success bool           `json:"success"`
}

// ResultResponse carries a bare result value.
type ResultResponse struct {
	Result any `json:"result"`
}

// GroupResultsResponse carries a group's result values.
type GroupResultsResponse struct {
	Results []any `json:"results"`
}

// CountResponse carries a single counter value.
type CountResponse struct {
	Count int `json:"count"`
}

// CreateScheduleRequest is the body of POST /api/schedules.
type CreateScheduleRequest struct {
	Name    string         `json:"name"`
	Func    string         `json:"func" validate:"required"`
	Args    []any          `json:"args"`
	Kwargs  map[string]any `json:"kwargs"`
	Hook    string         `json:"hook"`
	Type    string         `json:"type" validate:"required"`
	Minutes int            `json:"minutes"`
	Cron    string         `json:"cron"`
	Repeats int            `json:"repeats"`
	NextRun time.Time      `json:"next_run"`
}

// ScheduleResponse is the serialized stored schedule.
type ScheduleResponse struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Func    string    `json:"func"`
	Type    string    `json:"type"`
	NextRun time.Time `json:"next_run"`
}

func taskToResponse(rec *domain.TaskRecord) TaskResponse {
	return TaskResponse{
		ID:      rec.ID,
		Name:    rec.Name,
		Func:    rec.Func,
		Args:    rec.Args,
		Kwargs:  rec.Kwargs,
		Group:   rec.Group,
		Started: rec.Started,
		Stopped: rec.Stopped,
		Result:  rec.Result,
		Success: rec.Success,
	}
}

func scheduleToResponse(s *domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:      s.ID,
		Name:    s.Name,
		Func:    s.Func,
		Type:    string(s.Type),
		NextRun: s.NextRun,
	}
}
