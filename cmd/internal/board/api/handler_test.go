package boardapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/cmd/identity"
	authapi "taskboard/cmd/internal/auth/api"
	"taskboard/cmd/internal/board"
)

// memStore is a minimal in-memory board.Store for handler tests.
type memStore struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]board.Task
}

func newMemStore() *memStore { return &memStore{tasks: make(map[string]board.Task)} }

func (m *memStore) CreateTask(_ context.Context, in board.CreateTaskInput) (board.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	now := time.Now().UTC()
	createdBy := in.CreatedBy
	t := board.Task{
		ID:          "task-" + strconv.Itoa(m.seq),
		Title:       in.Title,
		Description: in.Description,
		Status:      board.StatusBacklog,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   &createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memStore) GetTaskByID(_ context.Context, id string) (board.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return board.Task{}, board.NotFoundError{Op: "mem.GetTaskByID", Resource: "task"}
	}
	return t, nil
}

func (m *memStore) ListTasks(_ context.Context) ([]board.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]board.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) UpdateTask(_ context.Context, in board.UpdateTaskInput) (board.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[in.ID]
	if !ok {
		return board.Task{}, board.NotFoundError{Op: "mem.UpdateTask", Resource: "task"}
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.SetAssignee {
		t.AssignedTo = in.AssignedTo
	}
	m.tasks[in.ID] = t
	return t, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id string, from, to board.Status, _ time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	m.tasks[id] = t
	return true, nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return board.NotFoundError{Op: "mem.DeleteTask", Resource: "task"}
	}
	delete(m.tasks, id)
	return nil
}

var (
	adminP  = authapi.Principal{UserID: "u-admin", Role: identity.RoleAdmin}
	memberP = authapi.Principal{UserID: "u-member", Role: identity.RoleMember}
	otherP  = authapi.Principal{UserID: "u-other", Role: identity.RoleMember}
)

// asPrincipal injects a principal the way the auth middleware would.
func asPrincipal(p authapi.Principal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p.UserID != "" {
				r = r.WithContext(authapi.ContextWithPrincipal(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type testEnv struct {
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc, err := board.NewService(newMemStore(), nil)
	require.NoError(t, err)
	h, err := NewHandler(nil, svc, 1<<20)
	require.NoError(t, err)
	return &testEnv{handler: h}
}

func (e *testEnv) do(t *testing.T, p authapi.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	e.handler.Register(mux, asPrincipal(p))

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createTask(t *testing.T, assignee *string) taskResponse {
	t.Helper()
	rec := e.do(t, adminP, http.MethodPost, "/tasks", createTaskRequest{
		Title:      "test task",
		AssignedTo: assignee,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)

	task := env.createTask(t, nil)
	assert.Equal(t, "BACKLOG", task.Status)
	require.NotNil(t, task.CreatedBy)
	assert.Equal(t, adminP.UserID, *task.CreatedBy)

	rec := env.do(t, memberP, http.MethodPost, "/tasks", createTaskRequest{Title: "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, adminP, http.MethodPost, "/tasks", createTaskRequest{Title: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, authapi.Principal{}, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListIsBoardWide(t *testing.T) {
	env := newTestEnv(t)
	env.createTask(t, nil)
	assignee := memberP.UserID
	env.createTask(t, &assignee)

	rec := env.do(t, otherP, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp tasksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Tasks, 2)
}

func TestMoveStatusCodes(t *testing.T) {
	env := newTestEnv(t)
	assignee := memberP.UserID
	task := env.createTask(t, &assignee)

	// Assignee advances.
	rec := env.do(t, memberP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "IN_PROGRESS"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Non-assignee member is rejected on a legal edge.
	rec = env.do(t, otherP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "REVIEW"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, memberP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "REVIEW"})
	require.Equal(t, http.StatusOK, rec.Code)

	// Closing is ADMIN only, even for the assignee.
	rec = env.do(t, memberP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "DONE"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, adminP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "DONE"})
	require.Equal(t, http.StatusOK, rec.Code)

	// No edge out of DONE, and unknown statuses never parse.
	rec = env.do(t, adminP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "BACKLOG"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = env.do(t, adminP, http.MethodPost, "/tasks/"+task.ID+"/move", moveTaskRequest{Status: "ARCHIVED"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, adminP, http.MethodPost, "/tasks/missing/move", moveTaskRequest{Status: "IN_PROGRESS"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTaskAssignmentTriState(t *testing.T) {
	env := newTestEnv(t)
	assignee := memberP.UserID
	task := env.createTask(t, &assignee)

	// Title-only patch leaves the assignment unchanged.
	rec := env.do(t, adminP, http.MethodPatch, "/tasks/"+task.ID, map[string]any{"title": "renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp taskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "renamed", resp.Title)
	require.NotNil(t, resp.AssignedTo)
	assert.Equal(t, assignee, *resp.AssignedTo)

	// Explicit null clears it.
	req := httptest.NewRequest(http.MethodPatch, "/tasks/"+task.ID, strings.NewReader(`{"assigned_to": null}`))
	mux := http.NewServeMux()
	env.handler.Register(mux, asPrincipal(adminP))
	recRaw := httptest.NewRecorder()
	mux.ServeHTTP(recRaw, req)
	require.Equal(t, http.StatusOK, recRaw.Code, recRaw.Body.String())
	require.NoError(t, json.Unmarshal(recRaw.Body.Bytes(), &resp))
	assert.Nil(t, resp.AssignedTo)

	// Members cannot edit.
	rec = env.do(t, memberP, http.MethodPatch, "/tasks/"+task.ID, map[string]any{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteTask(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, nil)

	rec := env.do(t, memberP, http.MethodDelete, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, adminP, http.MethodDelete, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, adminP, http.MethodDelete, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, adminP, http.MethodGet, "/tasks/"+task.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
