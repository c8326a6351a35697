package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskmgmt-api/internal/api/shared"
	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/platform/logger"
	"github.com/phrazzld/taskmgmt-api/internal/redact"
	"github.com/phrazzld/taskmgmt-api/internal/service"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService       service.TaskService
	assignmentService service.AssignmentService
	userService       service.UserService
	logger            *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	taskService service.TaskService,
	assignmentService service.AssignmentService,
	userService service.UserService,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService:       taskService,
		assignmentService: assignmentService,
		userService:       userService,
		logger:            logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /tasks requests.
// It returns a page of all tasks ordered per the pagination parameters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	pageReq := shared.ParsePageRequest(r)

	page, err := h.taskService.FindAll(r.Context(), pageReq)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.respondTaskPage(w, r, page)
}

// SearchTasks handles GET /tasks/search requests.
// It returns tasks whose title or description contains the query, matched
// case-insensitively.
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	pageReq := shared.ParsePageRequest(r)

	page, err := h.taskService.Search(r.Context(), query, pageReq)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.respondTaskPage(w, r, page)
}

// ListTasksByCompleted handles GET /tasks/completed/{completed} requests.
func (h *TaskHandler) ListTasksByCompleted(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	completed, err := getPathBool(r, "completed")
	if err != nil {
		log.Warn("invalid completed filter", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Completed filter must be true or false")
		return
	}

	page, err := h.taskService.FindByCompleted(r.Context(), completed, shared.ParsePageRequest(r))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.respondTaskPage(w, r, page)
}

// ListTasksByPriority handles GET /tasks/priority/{priority} requests.
func (h *TaskHandler) ListTasksByPriority(w http.ResponseWriter, r *http.Request) {
	priority, err := domain.ParsePriority(chi.URLParam(r, "priority"))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	page, err := h.taskService.FindByPriority(r.Context(), priority, shared.ParsePageRequest(r))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	h.respondTaskPage(w, r, page)
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := h.taskService.FindByID(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(r.Context(), task, nil))
}

// CreateTask handles POST /tasks requests.
// It validates the request shape, resolves the optional assignee, and
// persists the new task.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req TaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		log.Warn("validation error", slog.String("error", redact.Error(err)))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	task, err := taskFromRequest(req)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err = h.taskService.Create(r.Context(), task)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("task created",
		slog.Int64("task_id", task.ID),
		slog.Bool("assigned", task.IsAssigned()))
	shared.RespondWithJSON(w, r, http.StatusCreated, h.taskToResponse(r.Context(), task, nil))
}

// UpdateTask handles PUT /tasks/{id} requests.
// The update is a full replace: an absent userId unassigns the task even if
// it previously had an owner.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req TaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.Int64("task_id", id))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		log.Warn("validation error",
			slog.String("error", redact.Error(err)),
			slog.Int64("task_id", id))
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	updated, err := taskFromRequest(req)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := h.taskService.Update(r.Context(), id, updated)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(r.Context(), task, nil))
}

// CompleteTask handles PATCH /tasks/{id}/complete requests.
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	var req CompleteTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format",
			slog.String("error", redact.Error(err)),
			slog.Int64("task_id", id))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	task, err := h.taskService.SetCompleted(r.Context(), id, *req.Completed)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(r.Context(), task, nil))
}

// DeleteTask handles DELETE /tasks/{id} requests.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.taskService.Delete(r.Context(), id); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AssignTask handles PUT /tasks/{id}/assign/{userId} requests.
// Assigning a task to its current owner is a no-op that still succeeds.
func (h *TaskHandler) AssignTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	userID, err := getPathID(r, "userId")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := h.assignmentService.Assign(r.Context(), taskID, userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("task assigned",
		slog.Int64("task_id", taskID),
		slog.Int64("user_id", userID))
	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(r.Context(), task, nil))
}

// UnassignTask handles DELETE /tasks/{id}/assign requests.
// Unassigning an already-unowned task is idempotent.
func (h *TaskHandler) UnassignTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathID(r, "id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	task, err := h.assignmentService.Unassign(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.taskToResponse(r.Context(), task, nil))
}

// respondTaskPage maps a page of tasks to its response representation,
// resolving each distinct assignee once per request.
func (h *TaskHandler) respondTaskPage(
	w http.ResponseWriter,
	r *http.Request,
	page store.Page[*domain.Task],
) {
	cache := make(map[int64]*AssignedUser)
	response := store.MapPage(page, func(task *domain.Task) TaskResponse {
		return h.taskToResponse(r.Context(), task, cache)
	})
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// taskToResponse converts a domain.Task to a TaskResponse, resolving the
// assignee summary when the task is owned. A failed assignee lookup is
// logged and leaves the summary empty rather than failing the response.
func (h *TaskHandler) taskToResponse(
	ctx context.Context,
	task *domain.Task,
	cache map[int64]*AssignedUser,
) TaskResponse {
	response := TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		DueDate:     task.DueDate,
		Priority:    string(task.Priority),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if task.UserID == nil {
		return response
	}

	if cache != nil {
		if summary, ok := cache[*task.UserID]; ok {
			response.AssignedUser = summary
			return response
		}
	}

	user, err := h.userService.GetUser(ctx, *task.UserID)
	if err != nil {
		logger.FromContextOrDefault(ctx, h.logger).Warn("failed to resolve assignee",
			slog.Int64("task_id", task.ID),
			slog.Int64("user_id", *task.UserID),
			slog.String("error", redact.Error(err)))
		return response
	}

	summary := &AssignedUser{
		ID:       user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	}
	if cache != nil {
		cache[*task.UserID] = summary
	}
	response.AssignedUser = summary

	return response
}

// taskFromRequest builds a domain task from a validated request body.
func taskFromRequest(req TaskRequest) (*domain.Task, error) {
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(req.Title, req.Description, priority, *req.DueDate)
	if err != nil {
		return nil, err
	}

	task.Completed = req.Completed
	task.UserID = req.UserID

	return task, nil
}
