package authapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"taskboard/cmd/identity"
	"taskboard/cmd/internal/invite"
)

type createInviteRequest struct {
	TTL     string  `json:"ttl"`
	MaxUses int     `json:"max_uses"`
	Note    *string `json:"note"`
}

type inviteResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	MaxUses   int       `json:"max_uses"`
	Note      *string   `json:"note,omitempty"`
}

type registerRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleInvites lets admins mint registration invites. The plain token is
// returned exactly once and never stored.
func (h *Handler) handleInvites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req createInviteRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	var ttl time.Duration
	if strings.TrimSpace(req.TTL) != "" {
		d, err := time.ParseDuration(req.TTL)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "ttl must be a positive duration")
			return
		}
		ttl = d
	}

	inv, plain, err := h.invites.CreateInvite(r.Context(), invite.CreateInput{
		CreatedBy: &p.UserID,
		TTL:       ttl,
		MaxUses:   req.MaxUses,
		Note:      req.Note,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, invite.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid invite parameters")
			return
		}
		h.log.Error("auth.invite.create.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.log.Info("auth.invite.created", "invite_id", inv.ID, "created_by", p.UserID, "max_uses", inv.MaxUses)
	writeJSON(w, http.StatusCreated, inviteResponse{
		ID:        inv.ID,
		Token:     plain,
		ExpiresAt: inv.ExpiresAt,
		MaxUses:   inv.MaxUses,
		Note:      inv.Note,
	})
}

// handleRegister redeems an invite for a new member account and issues a
// session. The invite use is consumed before the account insert, so a failed
// insert burns the use; admins can mint another.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" || strings.TrimSpace(req.Name) == "" ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "token, name, email, and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	pending := "pending:" + identity.NormalizeEmail(req.Email)

	if _, err := h.invites.ConsumeInvite(ctx, invite.ConsumeInput{
		Token:      req.Token,
		ConsumedBy: &pending,
		Now:        now,
	}); err != nil {
		switch {
		case errors.Is(err, invite.ErrNotFound), errors.Is(err, invite.ErrNotActive):
			h.log.Warn("auth.register.invite_rejected")
			writeError(w, http.StatusForbidden, "invite_invalid", "invite is invalid or no longer active")
		case errors.Is(err, invite.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid invite token")
		default:
			h.log.Error("auth.register.invite.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	user, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     identity.RoleMember,
		Now:      now,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid registration details")
		default:
			h.log.Error("auth.register.create.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	issued, _, err := h.sessions.Login(ctx, req.Email, req.Password, now)
	if err != nil {
		// The account exists; the client can log in normally.
		h.log.Error("auth.register.session.fail", "user_id", user.ID, "err", err)
		writeJSON(w, http.StatusCreated, meResponse{User: toUserResponse(user)})
		return
	}

	h.log.Info("auth.register.ok", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, loginResponse{
		User:    toUserResponse(user),
		Session: toSessionResponse(issued),
	})
}
