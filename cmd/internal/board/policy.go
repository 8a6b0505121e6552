package board

import "taskboard/cmd/identity"

// Actor is the authenticated identity a request acts as, extracted from a
// verified access token.
type Actor struct {
	UserID string
	Role   identity.Role
}

// IsAssigneeOf reports whether the actor is the task's current assignee.
func (a Actor) IsAssigneeOf(t Task) bool {
	return t.AssignedTo != nil && *t.AssignedTo == a.UserID
}

// The non-transition authorization rules. Reads are open to every
// authenticated user (the board is shared; MEMBER visibility is not limited
// to own assignments); every structural mutation is ADMIN only.

// CanCreateTask reports whether the actor may create tasks.
func CanCreateTask(a Actor) error {
	if a.Role != identity.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanEditTask reports whether the actor may edit title, description, or
// assignment.
func CanEditTask(a Actor) error {
	if a.Role != identity.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanDeleteTask reports whether the actor may delete a task, in any status.
func CanDeleteTask(a Actor) error {
	if a.Role != identity.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// CanReadTasks reports whether the actor may list and view tasks.
func CanReadTasks(a Actor) error {
	if !a.Role.Valid() || a.UserID == "" {
		return ErrForbidden
	}
	return nil
}
