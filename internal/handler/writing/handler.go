package writing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aria/backend/internal/analysis/writing"
	"github.com/zhouzirui/aria/backend/internal/service/rewrite"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

const maxPassageLength = 10000

// Rewriter restates a passage in the requested style.
type Rewriter interface {
	Rewrite(ctx context.Context, passage string, style writing.Style) rewrite.Result
}

// Handler 文本写作分析与改写
type Handler struct {
	analyzer *writing.Analyzer
	rewriter Rewriter
}

// New 创建写作处理器，rewriter 为空时 improvedText 始终为空
func New(analyzer *writing.Analyzer, rewriter Rewriter) *Handler {
	return &Handler{analyzer: analyzer, rewriter: rewriter}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)
	r.Post("/improve", h.handleAnalyze)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text  string `json:"text"`
		Style string `json:"style"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	passage := strings.TrimSpace(payload.Text)
	if passage == "" {
		utils.RespondError(w, http.StatusBadRequest, "Please enter some text to analyze")
		return
	}
	if utf8.RuneCountInString(passage) > maxPassageLength {
		utils.RespondError(w, http.StatusBadRequest, "text is too long")
		return
	}

	style, err := writing.ParseStyle(payload.Style)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "style must be formal, creative, technical or casual")
		return
	}

	result, err := h.analyzer.Analyze(passage, style)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, writing.ErrUnknownStyle) {
			status = http.StatusBadRequest
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	resp := analyzeResponse{
		Analysis:     result,
		OriginalText: passage,
		Timestamp:    time.Now().UTC(),
	}
	if h.rewriter != nil {
		rw := h.rewriter.Rewrite(r.Context(), passage, style)
		resp.ImprovedText = rw.Text
		resp.Provider = rw.Provider
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

type analyzeResponse struct {
	writing.Analysis
	OriginalText string    `json:"originalText"`
	ImprovedText string    `json:"improvedText"`
	Provider     string    `json:"provider,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
