package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	writingAnalysis "github.com/zhouzirui/aria/backend/internal/analysis/writing"
	authhandler "github.com/zhouzirui/aria/backend/internal/handler/auth"
	"github.com/zhouzirui/aria/backend/internal/handler/chat"
	"github.com/zhouzirui/aria/backend/internal/handler/feedback"
	"github.com/zhouzirui/aria/backend/internal/handler/persona"
	"github.com/zhouzirui/aria/backend/internal/handler/stream"
	"github.com/zhouzirui/aria/backend/internal/handler/writing"
	"github.com/zhouzirui/aria/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/aria/backend/internal/middleware"
	personaModel "github.com/zhouzirui/aria/backend/internal/model/persona"
	"github.com/zhouzirui/aria/backend/pkg/utils"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Personas personaModel.Store
	Pipeline chat.Pipeline
	History  chat.History
	Auth     authhandler.Service
	Tokens   middlewarePkg.TokenParser
	Learner  feedback.Learner
	Writing  *writingAnalysis.Analyzer
	Rewriter writing.Rewriter
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(api chi.Router) {
		// public
		accounts := authhandler.New(deps.Auth)
		accounts.RegisterRoutes(api)
		persona.New(deps.Personas).RegisterRoutes(api)
		if deps.Writing != nil {
			writing.New(deps.Writing, deps.Rewriter).RegisterRoutes(api)
		}

		api.Group(func(protected chi.Router) {
			protected.Use(middlewarePkg.Auth(deps.Tokens))

			accounts.RegisterProtectedRoutes(protected)
			chat.New(deps.Pipeline, deps.History).RegisterRoutes(protected)
			stream.New(deps.Pipeline).RegisterRoutes(protected)
			ws.New(deps.Pipeline, deps.Personas).RegisterRoutes(protected)
			if deps.Learner != nil {
				feedback.New(deps.Learner).RegisterRoutes(protected)
			}
		})
	})

	return r
}
