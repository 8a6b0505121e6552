package board

import "taskboard/cmd/identity"

// edge is a directed (from, to) pair in the workflow graph.
type edge struct {
	from Status
	to   Status
}

// actorRule encodes who may traverse an edge.
type actorRule int

const (
	// adminOrAssignee: an ADMIN, or a MEMBER who is the task's assignee.
	adminOrAssignee actorRule = iota
	// adminOnly: an ADMIN regardless of assignment.
	adminOnly
)

// transitions is the complete workflow graph. Any (from, to) pair not listed
// here does not exist: no self-loops, no skipping, no moving backward from
// BACKLOG or IN_PROGRESS, no edges out of DONE.
var transitions = map[edge]actorRule{
	{StatusBacklog, StatusInProgress}: adminOrAssignee,
	{StatusInProgress, StatusReview}:  adminOrAssignee,
	{StatusReview, StatusDone}:        adminOnly,
	{StatusReview, StatusInProgress}:  adminOnly, // rejection back to work
}

// CanTransition decides whether the actor may move a task from one status to
// another. It is a pure function of its arguments and never mutates anything.
//
// The two failure kinds are distinct on purpose: a pair that is not an edge of
// the graph fails with ErrInvalidTransition for every actor, while a real edge
// attempted by the wrong actor fails with ErrForbidden.
func CanTransition(from, to Status, role identity.Role, isAssignee bool) error {
	if !from.Valid() || !to.Valid() {
		return ErrInvalidTransition
	}

	rule, ok := transitions[edge{from, to}]
	if !ok {
		return ErrInvalidTransition
	}

	switch rule {
	case adminOnly:
		if role != identity.RoleAdmin {
			return ErrForbidden
		}
	case adminOrAssignee:
		if role != identity.RoleAdmin && !isAssignee {
			return ErrForbidden
		}
	}
	return nil
}
