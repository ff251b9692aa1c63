package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atinyakov/GophBank/internal/middleware"
	"github.com/atinyakov/GophBank/internal/models"
)

// UserService defines the user operations required by UserHandler.
type UserService interface {
	Register(context.Context, models.Registration) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	User(ctx context.Context, id string) (models.User, error)
	Users(context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.ProfileUpdate) error
	DeleteUser(ctx context.Context, id string) error
}

// UserHandler handles registration, login, profiles and user administration.
type UserHandler struct {
	// Users performs the underlying user operations.
	Users UserService
	// Secret signs issued tokens.
	Secret []byte
	// TTL is the lifetime of issued tokens.
	TTL time.Duration
}

// LoginRequest is the JSON payload of a login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a member and responds with its id.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Registration
	if !decode(w, r, &req) {
		return
	}
	u, err := h.Users.Register(r.Context(), req)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "user registered successfully",
		"user_id": u.ID,
	})
}

// Login checks credentials and issues a bearer token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	u, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(w, err)
		return
	}
	token, err := middleware.NewToken(h.Secret, u, h.TTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"token":   token,
		"user":    u,
	})
}

// Profile returns the caller.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	h.respondUser(w, r, middleware.ClaimsFromContext(r.Context()).UserID)
}

// UpdateProfile changes the caller's editable fields.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if !decode(w, r, &req) {
		return
	}
	if err := h.Users.UpdateProfile(r.Context(), middleware.ClaimsFromContext(r.Context()).UserID, req); err != nil {
		fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "profile updated successfully")
}

// List returns every user. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.Users(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// Get returns one user. Admin only.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respondUser(w, r, chi.URLParam(r, "userID"))
}

// Delete removes a user with their accounts and loans. Admin only.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		fail(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "user deleted successfully")
}

func (h *UserHandler) respondUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := h.Users.User(r.Context(), id)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
