package handler

import (
	"log/slog"
	"net/http"

	"github.com/adpanel/adpanel/internal/ctxkeys"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/service"
)

type AuthHandler struct {
	authService         *service.AuthService
	subscriptionService *service.SubscriptionService
}

func NewAuthHandler(authService *service.AuthService, subscriptionService *service.SubscriptionService) *AuthHandler {
	return &AuthHandler{
		authService:         authService,
		subscriptionService: subscriptionService,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type meResponse struct {
	User           *model.User         `json:"user"`
	Capabilities   model.Capabilities  `json:"capabilities"`
	Subscription   *model.Subscription `json:"subscription"`
	ImpersonatedBy string              `json:"impersonated_by,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	userID, err := h.authService.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"user_id": userID})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, user, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token, User: user})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())

	sub, err := h.subscriptionService.Current(r.Context(), user.ID)
	if err != nil {
		// The account view still renders without subscription details
		slog.Warn("failed to load subscription", "error", err, "user_id", user.ID)
	}

	writeJSON(w, http.StatusOK, meResponse{
		User:           user,
		Capabilities:   user.Capabilities(),
		Subscription:   sub,
		ImpersonatedBy: ctxkeys.Impersonator(r.Context()),
	})
}
