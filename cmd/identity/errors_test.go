package identity

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	emailConflict := ConflictError{Op: "identity.CreateUser", Field: "email"}
	lastAdmin := ConflictError{Op: "identity.DeleteUser", Field: "last_admin"}
	missing := NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	badInput := OpError{Op: "identity.UpdateUser", Kind: ErrInvalidInput, Msg: "blank name"}

	assert.True(t, IsConflict(emailConflict))
	assert.False(t, IsLastAdmin(emailConflict))

	assert.True(t, IsConflict(lastAdmin))
	assert.True(t, IsLastAdmin(lastAdmin))

	assert.True(t, IsNotFound(missing))
	assert.False(t, IsConflict(missing))

	assert.True(t, IsInvalidInput(badInput))
	assert.ErrorIs(t, badInput, ErrInvalidInput)

	// Classification survives wrapping.
	wrapped := fmt.Errorf("handler: %w", lastAdmin)
	assert.True(t, IsLastAdmin(wrapped))
	assert.True(t, errors.Is(NotFoundError{Op: "x"}, ErrNotFound))
}
