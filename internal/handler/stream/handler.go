package stream

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	chathandler "github.com/zhouzirui/aria/backend/internal/handler/chat"
	"github.com/zhouzirui/aria/backend/internal/middleware"
	"github.com/zhouzirui/aria/backend/internal/service/conversation"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

// Pipeline answers one inbound message.
type Pipeline interface {
	Handle(ctx context.Context, in conversation.Inbound) (conversation.Reply, error)
}

// Handler delivers a chat reply as Server-Sent Events.
type Handler struct {
	pipeline Pipeline
}

// New creates a new stream handler
func New(pipeline Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Persona  string `json:"persona,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Meta is the payload of the "meta" event.
type Meta struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Sentiment  string  `json:"sentiment"`
	Mood       string  `json:"mood"`
	Provider   string  `json:"provider"`
	Timestamp  string  `json:"timestamp"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

// handleStream runs the pipeline first so input errors still get a plain
// JSON 400, then emits start, message, meta and end.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	userID := middleware.UserID(ctx)
	reply, err := h.pipeline.Handle(ctx, conversation.Inbound{
		UserID:      userID,
		DisplayName: middleware.Username(ctx),
		PersonaID:   r.URL.Query().Get("personaId"),
		Text:        r.URL.Query().Get("message"),
	})
	if err != nil {
		status, message := chathandler.MapError(err)
		utils.RespondError(w, status, message)
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	utils.SendSSEEvent(w, flusher, "start", StreamResponse{Event: "start", Persona: reply.PersonaID})
	utils.SendSSEEvent(w, flusher, "message", StreamResponse{Event: "message", Content: reply.Response})
	utils.SendSSEEvent(w, flusher, "meta", Meta{
		Intent:     reply.Intent,
		Confidence: reply.Confidence,
		Sentiment:  reply.Sentiment,
		Mood:       reply.Mood,
		Provider:   reply.Provider,
		Timestamp:  reply.Timestamp.Format("2006-01-02 15:04:05"),
	})
	utils.SendSSEEvent(w, flusher, "end", StreamResponse{Event: "end", Finished: true})

	log.Printf("[stream] completed response for user=%s, persona=%s", userID, reply.PersonaID)
}
