package app

import (
	"context"
	"fmt"
	"time"

	"taskboard/cmd/identity"
)

// ensureBootstrapAdmin creates the first admin account when the users table
// holds none and bootstrap credentials are configured. Without an admin no
// user can ever be created through the API, so a fresh deployment needs this
// seam exactly once.
func ensureBootstrapAdmin(ctx context.Context, log Logger, users identity.Store, cfg Config) error {
	n, err := users.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: count admins: %w", err)
	}
	if n > 0 {
		return nil
	}

	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		log.Warn("bootstrap.admin.skipped",
			"reason", "no admin exists and TASKBOARD_BOOTSTRAP_ADMIN_EMAIL/PASSWORD are not set")
		return nil
	}

	u, err := users.CreateUser(ctx, identity.CreateUserInput{
		Name:     cfg.BootstrapAdminName,
		Email:    cfg.BootstrapAdminEmail,
		Password: cfg.BootstrapAdminPassword,
		Role:     identity.RoleAdmin,
		Now:      time.Now().UTC(),
	})
	if err != nil {
		// A concurrent replica may have won the race; an existing admin is
		// the goal state either way.
		if identity.IsConflict(err) {
			log.Info("bootstrap.admin.exists")
			return nil
		}
		return fmt.Errorf("bootstrap: create admin: %w", err)
	}

	log.Info("bootstrap.admin.created", "user_id", u.ID, "email", u.Email)
	return nil
}
