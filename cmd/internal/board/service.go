package board

import (
	"context"
	"time"
)

// Service is the single entry point for task reads and mutations. It is the
// only caller of the workflow engine and the access-control policy; nothing
// reaches the store without passing both.
type Service struct {
	store  Store
	events Publisher
}

// NewService constructs a Service. A nil publisher disables event fan-out.
func NewService(store Store, events Publisher) (*Service, error) {
	if store == nil {
		return nil, OpError{Op: "board.NewService", Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if events == nil {
		events = NopPublisher{}
	}
	return &Service{store: store, events: events}, nil
}

// Create creates a task in BACKLOG. ADMIN only.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateTaskInput) (Task, error) {
	if err := CanCreateTask(actor); err != nil {
		return Task{}, err
	}
	in.CreatedBy = actor.UserID

	t, err := s.store.CreateTask(ctx, in)
	if err != nil {
		return Task{}, err
	}
	s.publish(EventTaskCreated, t)
	return t, nil
}

// Get returns one task. Any authenticated user.
func (s *Service) Get(ctx context.Context, actor Actor, id string) (Task, error) {
	if err := CanReadTasks(actor); err != nil {
		return Task{}, err
	}
	return s.store.GetTaskByID(ctx, id)
}

// List returns the whole board. Any authenticated user; MEMBER visibility is
// board-wide, not limited to own assignments.
func (s *Service) List(ctx context.Context, actor Actor) ([]Task, error) {
	if err := CanReadTasks(actor); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx)
}

// Update edits title, description, or assignment. ADMIN only. Status is not
// editable here; Move is the only way to change it.
func (s *Service) Update(ctx context.Context, actor Actor, in UpdateTaskInput) (Task, error) {
	if err := CanEditTask(actor); err != nil {
		return Task{}, err
	}

	t, err := s.store.UpdateTask(ctx, in)
	if err != nil {
		return Task{}, err
	}
	s.publish(EventTaskUpdated, t)
	return t, nil
}

// Move requests a status transition. The workflow engine decides; on an
// allowed edge the write is a compare-and-swap against the status the
// decision was made for, so a concurrent move invalidates this one with
// ErrConflict instead of applying a decision made against stale state.
func (s *Service) Move(ctx context.Context, actor Actor, id string, to Status, now time.Time) (Task, error) {
	const op = "board.Move"

	if err := CanReadTasks(actor); err != nil {
		return Task{}, err
	}
	if !to.Valid() {
		return Task{}, OpError{Op: op, Kind: ErrInvalidTransition, Msg: "unknown status"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	t, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}

	if err := CanTransition(t.Status, to, actor.Role, actor.IsAssigneeOf(t)); err != nil {
		return Task{}, err
	}

	won, err := s.store.UpdateStatus(ctx, id, t.Status, to, now)
	if err != nil {
		return Task{}, err
	}
	if !won {
		return Task{}, OpError{Op: op, Kind: ErrConflict, Msg: "task changed concurrently"}
	}

	moved, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		return Task{}, err
	}
	s.publish(EventTaskMoved, moved)
	return moved, nil
}

// Delete removes a task in any status. ADMIN only.
func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	if err := CanDeleteTask(actor); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.events.Publish(Event{Type: EventTaskDeleted, TaskID: id, At: time.Now().UTC()})
	return nil
}

func (s *Service) publish(typ EventType, t Task) {
	snapshot := t
	s.events.Publish(Event{Type: typ, TaskID: t.ID, Task: &snapshot, At: time.Now().UTC()})
}
