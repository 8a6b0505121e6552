package board

import (
	"context"
	"time"
)

// Task is a work item on the board.
//
// AssignedTo and CreatedBy reference users by id and are nullable: deleting a
// user detaches their tasks rather than deleting them. The *Name fields are
// display names resolved by the store at read time; they are never written.
type Task struct {
	ID          string
	Title       string
	Description string
	Status      Status
	AssignedTo  *string
	CreatedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	AssignedToName *string
	CreatedByName  *string
}

// CreateTaskInput carries the fields for a new task. Status is always
// BACKLOG at creation; it is not a caller choice.
type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  *string
	CreatedBy   string
	Now         time.Time
}

// UpdateTaskInput is a partial update of the freely editable fields. Nil
// means "leave unchanged". Assignment is tri-state: SetAssignee false leaves
// it alone, SetAssignee true with nil AssignedTo clears it.
type UpdateTaskInput struct {
	ID          string
	Title       *string
	Description *string
	SetAssignee bool
	AssignedTo  *string
	Now         time.Time
}

// Store is the task persistence gateway.
//
// UpdateStatus is a compare-and-swap on the status column: it succeeds only
// if the task is still in the expected current status, so two concurrent
// moves of the same task cannot both apply.
type Store interface {
	CreateTask(ctx context.Context, in CreateTaskInput) (Task, error)
	GetTaskByID(ctx context.Context, id string) (Task, error)
	ListTasks(ctx context.Context) ([]Task, error)
	UpdateTask(ctx context.Context, in UpdateTaskInput) (Task, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) (bool, error)
	DeleteTask(ctx context.Context, id string) error
}
