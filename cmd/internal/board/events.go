package board

import "time"

// EventType tags a board change for subscribers.
type EventType string

const (
	EventTaskCreated EventType = "task.created"
	EventTaskUpdated EventType = "task.updated"
	EventTaskMoved   EventType = "task.moved"
	EventTaskDeleted EventType = "task.deleted"
)

// Event is a write-once record of a board mutation, published after the
// write has been committed. Task is the post-mutation snapshot; for deletes
// only TaskID is meaningful.
type Event struct {
	Type   EventType `json:"type"`
	TaskID string    `json:"taskId"`
	Task   *Task     `json:"task,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher receives board events. Publish must not block the caller for
// long; slow consumers are the publisher's problem.
type Publisher interface {
	Publish(Event)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
