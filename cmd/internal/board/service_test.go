package board

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/cmd/identity"
)

// memTaskStore is an in-memory Store with the same compare-and-swap status
// semantics as the Postgres implementation.
type memTaskStore struct {
	mu    sync.Mutex
	seq   int
	tasks map[string]Task
}

func newMemTaskStore() *memTaskStore { return &memTaskStore{tasks: make(map[string]Task)} }

func (m *memTaskStore) CreateTask(_ context.Context, in CreateTaskInput) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	createdBy := in.CreatedBy
	t := Task{
		ID:          "task-" + strconv.Itoa(m.seq),
		Title:       in.Title,
		Description: in.Description,
		Status:      StatusBacklog,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   &createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.tasks[t.ID] = t
	return t, nil
}

func (m *memTaskStore) GetTaskByID(_ context.Context, id string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, NotFoundError{Op: "mem.GetTaskByID", Resource: "task"}
	}
	return t, nil
}

func (m *memTaskStore) ListTasks(_ context.Context) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	return out, nil
}

func (m *memTaskStore) UpdateTask(_ context.Context, in UpdateTaskInput) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[in.ID]
	if !ok {
		return Task{}, NotFoundError{Op: "mem.UpdateTask", Resource: "task"}
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

func (m *memTaskStore) UpdateStatus(_ context.Context, id string, from, to Status, _ time.Time) (bool, error) {
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

func (m *memTaskStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return NotFoundError{Op: "mem.DeleteTask", Resource: "task"}
	}
	delete(m.tasks, id)
	return nil
}

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var (
	adminActor  = Actor{UserID: "u-admin", Role: identity.RoleAdmin}
	memberActor = Actor{UserID: "u-member", Role: identity.RoleMember}
	otherActor  = Actor{UserID: "u-other", Role: identity.RoleMember}
)

func newTestService(t *testing.T) (*Service, *memTaskStore, *recordingPublisher) {
	t.Helper()
	store := newMemTaskStore()
	events := &recordingPublisher{}
	svc, err := NewService(store, events)
	require.NoError(t, err)
	return svc, store, events
}

func TestServiceCreateIsAdminOnly(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, adminActor, CreateTaskInput{Title: "ship it"})
	require.NoError(t, err)
	assert.Equal(t, StatusBacklog, task.Status)
	require.NotNil(t, task.CreatedBy)
	assert.Equal(t, adminActor.UserID, *task.CreatedBy)

	_, err = svc.Create(ctx, memberActor, CreateTaskInput{Title: "sneaky"})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Equal(t, []EventType{EventTaskCreated}, events.types())
}

// The full lifecycle from the shared-board model: ADMIN creates and assigns,
// the assignee walks the task forward, only ADMIN can close it, and DONE is
// terminal.
func TestServiceAssignedTaskLifecycle(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	assignee := memberActor.UserID

	task, err := svc.Create(ctx, adminActor, CreateTaskInput{
		Title:      "implement rotation",
		AssignedTo: &assignee,
	})
	require.NoError(t, err)

	// Assignee advances the task.
	task, err = svc.Move(ctx, memberActor, task.ID, StatusInProgress, now)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, task.Status)

	task, err = svc.Move(ctx, memberActor, task.ID, StatusReview, now)
	require.NoError(t, err)
	assert.Equal(t, StatusReview, task.Status)

	// Closing is an ADMIN edge even for the assignee.
	_, err = svc.Move(ctx, memberActor, task.ID, StatusDone, now)
	assert.ErrorIs(t, err, ErrForbidden)

	task, err = svc.Move(ctx, adminActor, task.ID, StatusDone, now)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, task.Status)

	// No edge leaves DONE, not even for ADMIN.
	_, err = svc.Move(ctx, adminActor, task.ID, StatusBacklog, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, []EventType{EventTaskCreated, EventTaskMoved, EventTaskMoved, EventTaskMoved}, events.types())
}

func TestServiceNonAssigneeMemberNeverMoves(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	assignee := memberActor.UserID

	task, err := svc.Create(ctx, adminActor, CreateTaskInput{Title: "t", AssignedTo: &assignee})
	require.NoError(t, err)

	for _, from := range []Status{StatusBacklog, StatusInProgress, StatusReview} {
		_, err := store.UpdateStatus(ctx, task.ID, task.Status, from, now)
		require.NoError(t, err)
		got, err := store.GetTaskByID(ctx, task.ID)
		require.NoError(t, err)
		task = got

		for _, to := range []Status{StatusBacklog, StatusInProgress, StatusReview, StatusDone} {
			if to == from {
				continue
			}
			_, err := svc.Move(ctx, otherActor, task.ID, to, now)
			assert.Error(t, err, "non-assignee member moved %s -> %s", from, to)
			assert.NotErrorIs(t, err, ErrConflict)
		}
	}
}

func TestServiceMoveConcurrentConflict(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Now().UTC()
	assignee := memberActor.UserID

	task, err := svc.Create(ctx, adminActor, CreateTaskInput{Title: "t", AssignedTo: &assignee})
	require.NoError(t, err)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Move(ctx, adminActor, task.ID, StatusInProgress, now)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts, invalid int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case IsConflict(err):
			conflicts++
		case IsInvalidTransition(err):
			// The loser may also observe the already-moved status on read.
			invalid++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one move must apply")
	assert.Equal(t, 1, conflicts+invalid, "the other must be rejected")
}

func TestServiceUpdateAndDelete(t *testing.T) {
	svc, _, events := newTestService(t)
	ctx := context.Background()

	task, err := svc.Create(ctx, adminActor, CreateTaskInput{Title: "before"})
	require.NoError(t, err)

	title := "after"
	desc := "details"
	assignee := memberActor.UserID
	updated, err := svc.Update(ctx, adminActor, UpdateTaskInput{
		ID:          task.ID,
		Title:       &title,
		Description: &desc,
		SetAssignee: true,
		AssignedTo:  &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, assignee, *updated.AssignedTo)

	// Clearing the assignment is distinct from leaving it unchanged.
	updated, err = svc.Update(ctx, adminActor, UpdateTaskInput{ID: task.ID, SetAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)

	_, err = svc.Update(ctx, memberActor, UpdateTaskInput{ID: task.ID, Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.Delete(ctx, memberActor, task.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.Delete(ctx, adminActor, task.ID))
	assert.ErrorIs(t, svc.Delete(ctx, adminActor, task.ID), ErrNotFound)

	_, err = svc.Get(ctx, memberActor, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t,
		[]EventType{EventTaskCreated, EventTaskUpdated, EventTaskUpdated, EventTaskDeleted},
		events.types())
}

func TestServiceListVisibleToMembers(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, adminActor, CreateTaskInput{Title: title})
		require.NoError(t, err)
	}

	// MEMBER sees the whole board, including tasks not assigned to them.
	tasks, err := svc.List(ctx, otherActor)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	_, err = svc.List(ctx, Actor{})
	assert.ErrorIs(t, err, ErrForbidden)
}
