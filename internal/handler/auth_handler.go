package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"voting-service/internal/config"
	"voting-service/internal/service"
	"voting-service/internal/util"
)

// AuthHandler handles login and logout.
type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	token, sess, err := h.authService.Login(ctx, req.Email, req.Password, requestMeta(r))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Login failed")
		return
	}

	setSessionCookie(w, h.cfg, token, sess.ExpiresAt)

	respondWithJSON(w, http.StatusOK, successResponse(loginResponse{
		UserID: sess.UserID.String(),
		Email:  sess.Email,
		Role:   string(sess.Role),
	}, "Logged in"))

	util.Info("Login via HTTP", zap.String("user_id", sess.UserID.String()))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(h.cfg.Session.CookieName); err == nil && cookie.Value != "" {
		if err := h.authService.Logout(ctx, cookie.Value, requestMeta(r)); err != nil {
			respondWithError(w, http.StatusInternalServerError, err, "Logout failed")
			return
		}
	}

	clearSessionCookie(w, h.cfg)
	respondWithJSON(w, http.StatusOK, successResponse(nil, "Logged out"))
}
