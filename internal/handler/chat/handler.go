package chat

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aria/backend/internal/middleware"
	"github.com/zhouzirui/aria/backend/internal/model/chat"
	"github.com/zhouzirui/aria/backend/internal/service/conversation"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Pipeline answers one inbound message.
type Pipeline interface {
	Handle(ctx context.Context, in conversation.Inbound) (conversation.Reply, error)
}

// History reads stored turns.
type History interface {
	LoadRecentTurns(ctx context.Context, userID string, limit int, order chat.Order) ([]chat.Turn, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	pipeline Pipeline
	history  History
}

// New 创建聊天处理器
func New(pipeline Pipeline, history History) *Handler {
	return &Handler{pipeline: pipeline, history: history}
}

// RegisterRoutes 注册聊天相关的路由，调用方负责挂载鉴权中间件
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/history", h.handleHistory)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message   string `json:"message"`
		PersonaID string `json:"personaId"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.pipeline.Handle(r.Context(), conversation.Inbound{
		UserID:      middleware.UserID(r.Context()),
		DisplayName: middleware.Username(r.Context()),
		PersonaID:   payload.PersonaID,
		Text:        payload.Message,
	})
	if err != nil {
		status, message := MapError(err)
		utils.RespondError(w, status, message)
		return
	}

	utils.RespondJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	order, ok := chat.ParseOrder(r.URL.Query().Get("order"))
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	turns, err := h.history.LoadRecentTurns(r.Context(), middleware.UserID(r.Context()), limit, order)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": turns})
}

// MapError converts pipeline input errors to a status and message. Other
// errors are unexpected and map to 500.
func MapError(err error) (int, string) {
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest, "Message cannot be empty"
	case errors.Is(err, conversation.ErrMessageTooLong):
		return http.StatusBadRequest, "Message is too long"
	default:
		return http.StatusInternalServerError, "failed to generate reply"
	}
}
