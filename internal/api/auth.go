package api

import (
	"net/http"
	"time"

	"github.com/xtrntr/auction/internal/models"
)

type userJSON struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func userView(u *models.User) userJSON {
	return userJSON{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Username, email, and password are required")
		return
	}

	user, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, "Failed to register user")
		return
	}
	token, err := h.AuthService.IssueToken(user)
	if err != nil {
		h.writeError(w, r, err, "Failed to register user")
		return
	}

	respond(w, http.StatusCreated, "User registered successfully", map[string]any{
		"user":  userView(user),
		"token": token,
	})
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, token, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, "Failed to log in")
		return
	}

	respond(w, http.StatusOK, "Login successful", map[string]any{
		"user":  userView(user),
		"token": token,
	})
}

// Profile returns the authenticated user
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	respond(w, http.StatusOK, "Profile retrieved successfully", map[string]any{"user": userView(user)})
}
