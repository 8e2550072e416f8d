package handlers

import (
	"errors"
	"net/http"

	"travel-marketplace/internal/models"
	"travel-marketplace/internal/services"

	"github.com/rs/zerolog"
)

type AuthHandler struct {
	userService *services.UserService
	authService *services.AuthService
	logger      zerolog.Logger
}

func NewAuthHandler(userService *services.UserService, authService *services.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		logger:      logger,
	}
}

type tokenResponse struct {
	User         *models.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Registration failed")
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.respondWithTokens(w, http.StatusCreated, user, true)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Authenticate(r.Context(), &req)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.logger.Warn().Str("email", req.Email).Msg("Login failed")
		respondWithError(w, http.StatusUnauthorized, "authentication_failed", "Invalid email or password")
		return
	}
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user, true)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new token pair. Access tokens are
// refused here just as refresh tokens are refused on protected routes.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "validation_failed", "refresh_token is required")
		return
	}

	claims, err := h.authService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Refresh rejected")
		respondWithError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired refresh token")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	h.respondWithTokens(w, http.StatusOK, user, true)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, code int, user *models.User, withRefresh bool) {
	token, err := h.authService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "token_generation_failed", "Failed to generate token")
		return
	}

	resp := tokenResponse{User: user, Token: token}
	if withRefresh {
		resp.RefreshToken, err = h.authService.GenerateRefreshToken(user.ID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "token_generation_failed", "Failed to generate token")
			return
		}
	}
	respondWithJSON(w, code, resp)
}
