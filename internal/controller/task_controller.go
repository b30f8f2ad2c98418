package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tasklocal/marketplace/internal/domain/task"
	"github.com/tasklocal/marketplace/internal/service"
)

type TaskController struct {
	taskService  *service.TaskService
	authzService *service.AuthzService
}

func NewTaskController(taskService *service.TaskService, authzService *service.AuthzService) *TaskController {
	return &TaskController{taskService: taskService, authzService: authzService}
}

func (h *TaskController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	clientID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	t, err := h.taskService.CreateTask(r.Context(), service.CreateTaskRequest{
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		BudgetMinor: req.BudgetMinor,
		Currency:    req.Currency,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromTask(t))
}

func (h *TaskController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid task id", Code: "invalid_id"})
		return
	}

	t, err := h.taskService.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromTask(t))
}

func (h *TaskController) List(w http.ResponseWriter, r *http.Request) {
	filter := task.ListFilter{}
	q := r.URL.Query()

	if v := q.Get("client_id"); v != "" {
		id, err := uuid.Parse(v)
		if err == nil {
			filter.ClientID = &id
		}
	}
	if v := q.Get("status"); v != "" {
		st := task.Status(v)
		filter.Status = &st
	}
	if v := q.Get("category"); v != "" {
		filter.Category = &v
	}
	filter.SortBy = q.Get("sort_by")
	filter.SortOrder = q.Get("sort_order")
	filter.Limit, filter.Offset = paginationParams(r)

	tasks, err := h.taskService.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, FromTask(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Claim lets a contractor take an open task.
func (h *TaskController) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid task id", Code: "invalid_id"})
		return
	}

	contractorID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.taskService.Claim(r.Context(), id, contractorID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromAssignment(a))
}

// Complete marks an assigned task done.
func (h *TaskController) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid task id", Code: "invalid_id"})
		return
	}

	actorID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.taskService.Complete(r.Context(), id, actorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "done"})
}

// Cancel cancels a task.
func (h *TaskController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid task id", Code: "invalid_id"})
		return
	}

	actorID, err := h.authzService.CallerID(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.taskService.Cancel(r.Context(), id, actorID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
