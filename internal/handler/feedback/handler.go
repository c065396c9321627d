package feedback

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/analysis/intent"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

// Learner accepts labelled examples for the intent model.
type Learner interface {
	AddFeedback(s, label string) (pending int, retrained bool, err error)
}

// Handler 接收意图纠正反馈
type Handler struct {
	learner Learner
}

func New(learner Learner) *Handler {
	return &Handler{learner: learner}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/feedback", h.handleFeedback)
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text   string `json:"text"`
		Intent string `json:"intent"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pending, retrained, err := h.learner.AddFeedback(payload.Text, payload.Intent)
	if err != nil {
		if errors.Is(err, intent.ErrUnknownLabel) || errors.Is(err, intent.ErrEmptyFeedback) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("[feedback] retrain failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "retrain failed")
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]any{
		"pending":   pending,
		"retrained": retrained,
	})
}
