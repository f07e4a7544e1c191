package handler

import (
	"net/http"

	"github.com/capecontrol/backend/internal/handler/dto"
	"github.com/capecontrol/backend/internal/middleware"
	"github.com/capecontrol/backend/internal/service"
)

// handleRegister creates an account.
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Account details"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /auth/users/ [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[dto.RegisterRequest](r)
	if err != nil {
		respondError(w, http.StatusBadRequest, dto.MsgMalformedJSON)
		return
	}

	user, err := h.authService.Register(r.Context(), service.RegisterParams{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// handleMe returns the authenticated account.
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security TokenAuth
// @Router /auth/users/me/ [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, dto.MsgNotAuthenticated)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// handleLogin exchanges credentials for an API token.
// @Summary Obtain token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /auth/token/login/ [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[dto.LoginRequest](r)
	if err != nil {
		respondError(w, http.StatusBadRequest, dto.MsgMalformedJSON)
		return
	}

	token, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.TokenResponse{AuthToken: token.Key})
}

// handleLogout revokes the caller's token.
// @Summary Revoke token
// @Tags auth
// @Success 204
// @Failure 401 {object} dto.ErrorResponse
// @Security TokenAuth
// @Router /auth/token/logout/ [post]
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.GetUserFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, dto.MsgNotAuthenticated)
		return
	}

	if err := h.authService.Logout(r.Context(), user); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
