package identity

import (
	"context"
	"time"
)

// User is taskboard's security principal. Identity is immutable; name, email,
// and role are mutable through ADMIN-gated updates.
type User struct {
	ID        string
	Name      string
	Email     string
	EmailNorm string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth couples a user with its stored credential hash for login checks.
// It never leaves the auth path; public responses carry User only.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration request. Password is hashed by the
// store; the plain text is never persisted.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Now      time.Time
}

// UpdateUserInput describes a partial user update. Nil fields are left
// unchanged.
type UpdateUserInput struct {
	ID    string
	Name  *string
	Email *string
	Role  *Role
	Now   time.Time
}

// Store is the user-registry persistence boundary.
//
// Implementations must enforce:
//   - email uniqueness on the normalized form (ConflictError{Field: "email"})
//   - the last-admin invariant: deleting or demoting the sole remaining ADMIN
//     fails with ConflictError{Field: "last_admin"}, checked inside the same
//     transaction as the write.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)

	// GetUserAuthByEmail resolves a user by normalized email together with the
	// stored password hash. Returns NotFoundError when absent.
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)

	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, in UpdateUserInput) (User, error)

	// DeleteUser removes a user. Tasks assigned to the user lose their
	// assignment (the schema clears it); tasks created by the user are
	// reassigned to nobody's benefit and simply keep a dangling-free reference
	// via ON DELETE rules. The caller is responsible for revoking the user's
	// sessions afterwards.
	DeleteUser(ctx context.Context, id string) error

	CountAdmins(ctx context.Context) (int, error)
}
