// Package app assembles the response pipeline from configuration. Both the
// HTTP server and the command line tester start from here.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/analysis/intent"
	"github.com/zhouzirui/aria/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/aria/backend/internal/analysis/writing"
	"github.com/zhouzirui/aria/backend/internal/config"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
	"github.com/zhouzirui/aria/backend/internal/model/persona"
	"github.com/zhouzirui/aria/backend/internal/service/completion"
	"github.com/zhouzirui/aria/backend/internal/service/conversation"
	"github.com/zhouzirui/aria/backend/internal/service/enhance"
	"github.com/zhouzirui/aria/backend/internal/service/fallback"
	"github.com/zhouzirui/aria/backend/internal/service/prompt"
	"github.com/zhouzirui/aria/backend/internal/service/rewrite"
)

// Services is the assembled pipeline plus the pieces handlers use directly.
type Services struct {
	Tables       *knowledge.Tables
	Personas     persona.Store
	Classifier   *intent.Classifier
	Sentiment    *sentiment.Analyzer
	Writing      *writing.Analyzer
	Completion   *completion.Client
	Rewriter     *rewrite.Rewriter
	Orchestrator *conversation.Orchestrator
}

// LoadTables reads the knowledge file when one is configured, otherwise the
// embedded defaults.
func LoadTables(cfg config.PipelineConfig) (*knowledge.Tables, error) {
	if cfg.KnowledgeFile == "" {
		return knowledge.Default()
	}
	tables, err := knowledge.LoadFile(cfg.KnowledgeFile)
	if err != nil {
		return nil, fmt.Errorf("load knowledge file: %w", err)
	}
	log.Printf("[app] knowledge tables loaded from %s", cfg.KnowledgeFile)
	return tables, nil
}

// Build wires every pipeline stage. store may be nil, in which case turns
// are not persisted and no history is sent to providers.
func Build(ctx context.Context, cfg *config.Config, store conversation.Store) (*Services, error) {
	tables, err := LoadTables(cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	providers, err := completion.Build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build completion providers: %w", err)
	}
	client := completion.NewClient(providers, cfg.Completion.Timeout)
	if len(providers) == 0 {
		log.Println("[app] no completion providers configured, every reply comes from the fallback tables")
	} else {
		log.WithField("providers", client.Providers()).Info("[app] completion providers ready")
	}

	items := persona.Seed()
	if cfg.Pipeline.PersonasFile != "" {
		if items, err = persona.LoadFile(cfg.Pipeline.PersonasFile); err != nil {
			return nil, err
		}
	}
	personas := persona.NewMemoryStore(items)
	if _, ok := personas.FindByID(cfg.Pipeline.DefaultPersona); !ok {
		return nil, fmt.Errorf("default persona %q is not defined", cfg.Pipeline.DefaultPersona)
	}
	analyzer := sentiment.NewAnalyzer(tables.Sentiment)
	classifier := intent.NewClassifier(tables, intent.Config{RetrainThreshold: cfg.Pipeline.RetrainThreshold})
	responder := fallback.NewResponder(tables)
	enhancer := enhance.NewEnhancer(tables, responder, cfg.Pipeline.MinResponseLength)
	// canned replies must clear the same minimum as provider text
	if err := tables.ValidateReplyLength(enhancer.MinLength()); err != nil {
		return nil, fmt.Errorf("MIN_RESPONSE_LENGTH=%d: %w", enhancer.MinLength(), err)
	}

	deps := conversation.Dependencies{
		Classifier: classifier,
		Sentiment:  analyzer,
		Completer:  client,
		Fallback:   responder,
		Enhancer:   enhancer,
		Store:      store,
		Personas:   personas,
		Prompts:    prompt.NewManager(),
	}

	orch := conversation.New(deps, conversation.Options{
		MaxMessageLength: cfg.Pipeline.MaxMessageLength,
		HistoryLimit:     cfg.Pipeline.HistoryLimit,
		DefaultPersona:   cfg.Pipeline.DefaultPersona,
	})

	return &Services{
		Tables:       tables,
		Personas:     personas,
		Classifier:   classifier,
		Sentiment:    analyzer,
		Writing:      writing.NewAnalyzer(analyzer),
		Completion:   client,
		Rewriter:     rewrite.NewRewriter(client, enhancer),
		Orchestrator: orch,
	}, nil
}
