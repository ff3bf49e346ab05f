package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/auth"
	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// UsersHandler handles user management endpoints (superadmin only).
type UsersHandler struct {
	*deps
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// List handles GET /api/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := store.ListUsers(r.Context(), h.DB)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	jsonResponse(w, http.StatusOK, users)
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "name, email and password required")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleBorrower
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Name, req.Email, hash, req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("new_user", user.ID).Str("role", user.Role).Msg("user created")
	jsonResponse(w, http.StatusCreated, user)
}

// Get handles GET /api/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Update handles PUT /api/users/{id}.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// A superadmin demoting themselves could lock everyone out.
	if claims := GetClaims(r.Context()); claims.UserID == id && req.Role != "" && req.Role != claims.Role {
		jsonError(w, http.StatusBadRequest, "cannot change your own role")
		return
	}

	user, err := store.UpdateUser(r.Context(), h.DB, id, req.Name, req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("target_user", id).Str("role", user.Role).Msg("user updated")
	jsonResponse(w, http.StatusOK, user)
}

// ResetPassword handles PUT /api/users/{id}/password.
func (h *UsersHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := model.ValidatePassword(req.Password); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, id, hash); err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("target_user", id).Msg("user password reset")
	jsonResponse(w, http.StatusOK, message{"password reset"})
}

// Delete handles DELETE /api/users/{id}.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "user")
	if !ok {
		return
	}

	if GetClaims(r.Context()).UserID == id {
		jsonError(w, http.StatusBadRequest, "cannot delete yourself")
		return
	}

	if err := store.DeleteUser(r.Context(), h.DB, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("deleted_user", id).Msg("user deleted")
	jsonResponse(w, http.StatusOK, message{"user deleted"})
}
