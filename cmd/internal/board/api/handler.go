package boardapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	authapi "taskboard/cmd/internal/auth/api"
	"taskboard/cmd/internal/board"
)

// Handler wires the task endpoints to the board service.
type Handler struct {
	log          *slog.Logger
	tasks        *board.Service
	maxBodyBytes int64
}

// NewHandler constructs a board Handler.
func NewHandler(log *slog.Logger, tasks *board.Service, maxBodyBytes int64) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if tasks == nil {
		return nil, errors.New("boardapi: nil task service")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{log: log, tasks: tasks, maxBodyBytes: maxBodyBytes}, nil
}

// Register wires task routes onto the mux. The caller is expected to wrap
// the mux (or these routes) in the auth middleware; without a principal in
// the context every route answers 401.
func (h *Handler) Register(mux *http.ServeMux, authed func(http.Handler) http.Handler) {
	if h == nil || mux == nil {
		return
	}
	if authed == nil {
		authed = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle("/tasks", authed(http.HandlerFunc(h.handleTasks)))
	mux.Handle("/tasks/", authed(http.HandlerFunc(h.handleTaskByID)))
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (board.Actor, bool) {
	p, ok := authapi.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token_invalid", "authentication required")
		return board.Actor{}, false
	}
	return board.Actor{UserID: p.UserID, Role: p.Role}, true
}

func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.List(r.Context(), actor)
	if err != nil {
		writeBoardError(h.log, w, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, tasksResponse{Tasks: out})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "title is required")
		return
	}

	task, err := h.tasks.Create(r.Context(), actor, board.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  req.AssignedTo,
	})
	if err != nil {
		writeBoardError(h.log, w, err)
		return
	}

	h.log.Info("board.task.create.ok", "task_id", task.ID, "actor_id", actor.UserID)
	writeJSON(w, http.StatusCreated, toTaskResponse(task))
}

func (h *Handler) handleTaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/tasks/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "not_found", "no such task")
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case sub == "" && r.Method == http.MethodPatch:
		h.handleUpdate(w, r, id)
	case sub == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case sub == "move" && r.Method == http.MethodPost:
		h.handleMove(w, r, id)
	case sub == "" || sub == "move":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "not_found", "no such resource")
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), actor, id)
	if err != nil {
		writeBoardError(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	task, err := h.tasks.Update(r.Context(), actor, board.UpdateTaskInput{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		SetAssignee: req.AssignedTo.Set,
		AssignedTo:  req.AssignedTo.Value,
	})
	if err != nil {
		writeBoardError(h.log, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req moveTaskRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	status, ok := board.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid_transition", "unknown status")
		return
	}

	task, err := h.tasks.Move(r.Context(), actor, id, status, time.Now().UTC())
	if err != nil {
		writeBoardError(h.log, w, err)
		return
	}

	h.log.Info("board.task.move.ok", "task_id", task.ID, "status", task.Status.String(), "actor_id", actor.UserID)
	writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), actor, id); err != nil {
		writeBoardError(h.log, w, err)
		return
	}

	h.log.Info("board.task.delete.ok", "task_id", id, "actor_id", actor.UserID)
	w.WriteHeader(http.StatusNoContent)
}
