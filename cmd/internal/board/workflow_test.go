package board

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskboard/cmd/identity"
)

func TestCanTransitionAllowedEdges(t *testing.T) {
	tests := []struct {
		name       string
		from, to   Status
		role       identity.Role
		isAssignee bool
	}{
		{"backlog to in_progress by admin", StatusBacklog, StatusInProgress, identity.RoleAdmin, false},
		{"backlog to in_progress by assignee member", StatusBacklog, StatusInProgress, identity.RoleMember, true},
		{"in_progress to review by admin", StatusInProgress, StatusReview, identity.RoleAdmin, false},
		{"in_progress to review by assignee member", StatusInProgress, StatusReview, identity.RoleMember, true},
		{"review to done by admin", StatusReview, StatusDone, identity.RoleAdmin, false},
		{"review back to in_progress by admin", StatusReview, StatusInProgress, identity.RoleAdmin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, CanTransition(tt.from, tt.to, tt.role, tt.isAssignee))
		})
	}
}

func TestCanTransitionForbiddenActors(t *testing.T) {
	tests := []struct {
		name       string
		from, to   Status
		role       identity.Role
		isAssignee bool
	}{
		{"non-assignee member backlog to in_progress", StatusBacklog, StatusInProgress, identity.RoleMember, false},
		{"non-assignee member in_progress to review", StatusInProgress, StatusReview, identity.RoleMember, false},
		{"assignee member review to done", StatusReview, StatusDone, identity.RoleMember, true},
		{"assignee member review back to in_progress", StatusReview, StatusInProgress, identity.RoleMember, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to, tt.role, tt.isAssignee)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

// TestCanTransitionClosedGraph walks every (from, to, role, isAssignee)
// combination and checks the complement of the edge table is rejected with
// ErrInvalidTransition, regardless of actor.
func TestCanTransitionClosedGraph(t *testing.T) {
	statuses := []Status{StatusBacklog, StatusInProgress, StatusReview, StatusDone}
	allowed := map[[2]Status]bool{
		{StatusBacklog, StatusInProgress}: true,
		{StatusInProgress, StatusReview}:  true,
		{StatusReview, StatusDone}:        true,
		{StatusReview, StatusInProgress}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			if allowed[[2]Status{from, to}] {
				continue
			}
			for _, role := range []identity.Role{identity.RoleAdmin, identity.RoleMember} {
				for _, isAssignee := range []bool{false, true} {
					err := CanTransition(from, to, role, isAssignee)
					assert.ErrorIs(t, err, ErrInvalidTransition,
						"%s -> %s by %s (assignee=%v) must not be an edge", from, to, role, isAssignee)
				}
			}
		}
	}
}

func TestCanTransitionRejectsUnknownStatus(t *testing.T) {
	assert.ErrorIs(t, CanTransition("LIMBO", StatusDone, identity.RoleAdmin, false), ErrInvalidTransition)
	assert.ErrorIs(t, CanTransition(StatusBacklog, "LIMBO", identity.RoleAdmin, false), ErrInvalidTransition)
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"BACKLOG", "IN_PROGRESS", "REVIEW", "DONE"} {
		got, ok := ParseStatus(s)
		assert.True(t, ok)
		assert.Equal(t, s, got.String())
	}
	for _, s := range []string{"", "backlog", "Backlog", "ARCHIVED", "IN PROGRESS"} {
		_, ok := ParseStatus(s)
		assert.False(t, ok, "%q must not parse", s)
	}
}
