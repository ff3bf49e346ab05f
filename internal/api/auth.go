package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/auth"
	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	*deps
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      *model.User `json:"user"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "email and password required")
		return
	}

	log := zerolog.Ctx(r.Context())
	user, err := store.GetUserByEmail(r.Context(), h.DB, req.Email)
	if model.KindOf(err) == model.KindNotFound {
		log.Warn().Str("email", req.Email).Str("remote", r.RemoteAddr).Msg("login failed")
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		log.Warn().Str("email", req.Email).Str("remote", r.RemoteAddr).Msg("login failed")
		jsonError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.Issuer.GenerateToken(user.ID, user.Name, user.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	log.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("user logged in")
	jsonResponse(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(h.Issuer.Expiry().Seconds()),
		User:      user,
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := store.GetUser(r.Context(), h.DB, GetClaims(r.Context()).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, user)
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		h.writeError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Msg("user logged out")
	jsonResponse(w, http.StatusOK, message{"logged out"})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "current and new password required")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		jsonError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, claims.UserID, hash); err != nil {
		h.writeError(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Msg("user changed own password")
	jsonResponse(w, http.StatusOK, message{"password updated"})
}
