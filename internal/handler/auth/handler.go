package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/middleware"
	"github.com/zhouzirui/aria/backend/internal/model/chat"
	authservice "github.com/zhouzirui/aria/backend/internal/service/auth"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

// Service registers and authenticates users.
type Service interface {
	Register(ctx context.Context, in authservice.RegisterInput) (authservice.Result, error)
	Login(ctx context.Context, in authservice.LoginInput) (authservice.Result, error)
	Profile(ctx context.Context, userID string) (chat.User, error)
}

// Handler 账号注册与登录
type Handler struct {
	svc Service
}

func New(svc Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册鉴权路由，这些路由不需要 token
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
}

// RegisterProtectedRoutes 注册需要 token 的账号路由
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Profile(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, user)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in authservice.RegisterInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, res)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in authservice.LoginInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, res)
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, authservice.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, authservice.ErrUsernameTaken), errors.Is(err, authservice.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, authservice.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, authservice.ErrUserNotFound):
		status = http.StatusNotFound
	default:
		log.Printf("[auth] unexpected error: %v", err)
	}
	utils.RespondError(w, status, authservice.Message(err))
}
