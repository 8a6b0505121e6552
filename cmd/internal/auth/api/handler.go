package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"taskboard/cmd/identity"
	"taskboard/cmd/internal/auth/session"
	"taskboard/cmd/internal/invite"
	"taskboard/cmd/security/token"
)

// Handler wires HTTP auth endpoints to the identity and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	invites  *invite.Service

	ipLimiter         *loginLimiter
	identifierLimiter *loginLimiter
}

// NewHandler constructs an auth Handler. A nil invites service disables the
// invite-based registration routes.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, invites *invite.Service) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if users == nil {
		return nil, errors.New("authapi: nil user store")
	}
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}

	return &Handler{
		log:               log,
		cfg:               cfg,
		users:             users,
		sessions:          sessions,
		invites:           invites,
		ipLimiter:         newLoginLimiter(cfg.LoginIPMax, cfg.LoginIPWindow),
		identifierLimiter: newLoginLimiter(cfg.LoginUserMax, cfg.LoginUserWindow),
	}, nil
}

// Register wires auth and user-management routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/auth/refresh", h.handleRefresh)
	mux.HandleFunc("/auth/logout", h.handleLogout)
	mux.Handle("/me", h.RequireAuth(http.HandlerFunc(h.handleMe)))
	mux.Handle("/users", h.RequireAuth(http.HandlerFunc(h.handleUsers)))
	mux.Handle("/users/", h.RequireAuth(http.HandlerFunc(h.handleUserByID)))
	if h.invites != nil {
		mux.HandleFunc("/auth/register", h.handleRegister)
		mux.Handle("/invites", h.RequireAuth(http.HandlerFunc(h.handleInvites)))
	}
}

// Principal is the authenticated identity extracted from a verified access
// token.
type Principal struct {
	UserID string
	Role   identity.Role
}

type principalKey struct{}

// PrincipalFromContext returns the authenticated principal set by RequireAuth.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ContextWithPrincipal returns a context carrying the principal, for handlers
// mounted behind an out-of-band authentication path.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// RequireAuth verifies the bearer access token and stores the principal in
// the request context. Expired tokens are distinguished from invalid ones so
// clients know to refresh instead of re-login.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "token_invalid", "missing bearer token")
			return
		}

		claims, err := h.sessions.ValidateAccess(raw, time.Now().UTC())
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "token_expired", "access token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "token_invalid", "invalid access token")
			return
		}

		role, ok := identity.ParseRole(claims.Role)
		if !ok {
			writeError(w, http.StatusUnauthorized, "token_invalid", "invalid access token")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, Principal{UserID: claims.UserID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---- session endpoints ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "email and password are required")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()
	ip := clientIP(r, h.cfg.TrustProxy)
	ipK := ipKey(ip)
	idK := identifierKey(identity.NormalizeEmail(email))

	if blocked, retryAfter := h.ipLimiter.Blocked(ipK, now); blocked {
		h.log.Warn("auth.login.rate_limited", "key", "ip")
		writeRateLimited(w, retryAfter)
		return
	}
	if blocked, retryAfter := h.identifierLimiter.Blocked(idK, now); blocked {
		h.log.Warn("auth.login.rate_limited", "key", "identifier")
		writeRateLimited(w, retryAfter)
		return
	}

	issued, user, err := h.sessions.Login(ctx, email, req.Password, now)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			h.ipLimiter.RecordFailure(ipK, now)
			h.identifierLimiter.RecordFailure(idK, now)
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
			return
		}
		h.log.Error("auth.login.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	h.ipLimiter.Clear(ipK)
	h.identifierLimiter.Clear(idK)
	h.log.Info("auth.login.ok", "user_id", user.ID)

	writeJSON(w, http.StatusOK, loginResponse{
		User:    toUserResponse(user),
		Session: toSessionResponse(issued),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req refreshRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	issued, err := h.sessions.Refresh(r.Context(), req.RefreshToken, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrTokenExpired):
			writeError(w, http.StatusUnauthorized, "token_expired", "refresh token expired")
		case errors.Is(err, session.ErrTokenInvalid):
			// Includes the reuse-detection path; the client cannot tell a
			// stolen-then-replayed token from a garbage one, on purpose.
			h.log.Warn("auth.refresh.rejected")
			writeError(w, http.StatusUnauthorized, "token_invalid", "invalid refresh token")
		default:
			h.log.Error("auth.refresh.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{Session: toSessionResponse(issued)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req logoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	if err := h.sessions.Logout(r.Context(), req.RefreshToken, time.Now().UTC()); err != nil {
		h.log.Error("auth.logout.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token_invalid", "authentication required")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), p.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "token_invalid", "unknown subject")
			return
		}
		h.log.Error("auth.me.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

// ---- user management (ADMIN only) ----

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "token_invalid", "authentication required")
		return Principal{}, false
	}
	if p.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "admin role required")
		return Principal{}, false
	}
	return p, true
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListUsers(w, r)
	case http.MethodPost:
		h.handleCreateUser(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.log.Error("auth.users.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, usersResponse{Users: out})
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req createUserRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "role must be ADMIN or MEMBER")
		return
	}

	user, err := h.users.CreateUser(r.Context(), identity.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("auth.users.create.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	h.log.Info("auth.users.create.ok", "user_id", user.ID, "role", user.Role.String())
	writeJSON(w, http.StatusCreated, meResponse{User: toUserResponse(user)})
}

func (h *Handler) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not_found", "no such user")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGetUser(w, r, id)
	case http.MethodPatch:
		h.handleUpdateUser(w, r, id)
	case http.MethodDelete:
		h.handleDeleteUser(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), id)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", "no such user")
			return
		}
		h.log.Error("auth.users.get.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	in := identity.UpdateUserInput{ID: id, Name: req.Name, Email: req.Email}
	if req.Role != nil {
		role, ok := identity.ParseRole(*req.Role)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "role must be ADMIN or MEMBER")
			return
		}
		in.Role = &role
	}

	user, err := h.users.UpdateUser(r.Context(), in)
	if err != nil {
		switch {
		case identity.IsLastAdmin(err):
			writeError(w, http.StatusConflict, "last_admin", "cannot demote the last admin")
		case identity.IsConflict(err):
			writeError(w, http.StatusConflict, "email_taken", "email already registered")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", "no such user")
		case identity.IsInvalidInput(err):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.log.Error("auth.users.update.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, meResponse{User: toUserResponse(user)})
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	ctx := r.Context()
	if err := h.users.DeleteUser(ctx, id); err != nil {
		switch {
		case identity.IsLastAdmin(err):
			writeError(w, http.StatusConflict, "last_admin", "cannot delete the last admin")
		case identity.IsNotFound(err):
			writeError(w, http.StatusNotFound, "not_found", "no such user")
		default:
			h.log.Error("auth.users.delete.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return
	}

	// A deleted user must not keep working sessions.
	if err := h.sessions.RevokeAll(ctx, id, time.Now().UTC()); err != nil {
		h.log.Error("auth.users.delete.revoke_sessions.fail", "err", err, "user_id", id)
	}

	h.log.Info("auth.users.delete.ok", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
