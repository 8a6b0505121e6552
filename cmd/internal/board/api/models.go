package boardapi

import (
	"encoding/json"
	"time"

	"taskboard/cmd/internal/board"
)

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`

	// AssignedTo is tri-state: absent leaves the assignment unchanged, an
	// explicit null clears it, a user id sets it.
	AssignedTo nullableString `json:"assigned_to"`
}

type moveTaskRequest struct {
	Status string `json:"status"`
}

type taskResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Status         string    `json:"status"`
	AssignedTo     *string   `json:"assigned_to"`
	AssignedToName *string   `json:"assigned_to_name"`
	CreatedBy      *string   `json:"created_by"`
	CreatedByName  *string   `json:"created_by_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type tasksResponse struct {
	Tasks []taskResponse `json:"tasks"`
}

func toTaskResponse(t board.Task) taskResponse {
	return taskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status.String(),
		AssignedTo:     t.AssignedTo,
		AssignedToName: t.AssignedToName,
		CreatedBy:      t.CreatedBy,
		CreatedByName:  t.CreatedByName,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// nullableString distinguishes an absent JSON field from an explicit null.
type nullableString struct {
	Set   bool
	Value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}
