// Package conversation runs one inbound message through classification,
// completion, fallback and enhancement and returns exactly one reply.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/analysis/intent"
	"github.com/zhouzirui/aria/backend/internal/analysis/mood"
	"github.com/zhouzirui/aria/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
	"github.com/zhouzirui/aria/backend/internal/model/chat"
	"github.com/zhouzirui/aria/backend/internal/model/persona"
	"github.com/zhouzirui/aria/backend/internal/service/completion"
	"github.com/zhouzirui/aria/backend/internal/service/enhance"
	"github.com/zhouzirui/aria/backend/internal/service/prompt"
)

const (
	DefaultMaxMessageLength = 2000
	DefaultHistoryLimit     = 10
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrMessageTooLong = errors.New("message is too long")
)

// State names a pipeline stage.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateClassified State = "CLASSIFIED"
	StateCompleting State = "COMPLETING"
	StateEnhancing  State = "ENHANCING"
	StateDone       State = "DONE"
)

// Classifier labels a message. Implementations never fail.
type Classifier interface {
	Classify(s string) intent.Result
}

// Completer asks remote providers for a reply.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) completion.Outcome
}

// Fallback produces a canned reply addressed to name.
type Fallback interface {
	FallbackFor(s, name string) string
}

// Store persists conversation turns. Callers always state the order.
type Store interface {
	SaveTurn(ctx context.Context, turn chat.Turn) error
	LoadRecentTurns(ctx context.Context, userID string, limit int, order chat.Order) ([]chat.Turn, error)
}

// Dependencies are the collaborators of an Orchestrator. Classifier, Store,
// Completer and Personas may be nil.
type Dependencies struct {
	Classifier Classifier
	Sentiment  *sentiment.Analyzer
	Completer  Completer
	Fallback   Fallback
	Enhancer   *enhance.Enhancer
	Store      Store
	Personas   persona.Store
	Prompts    *prompt.Manager
}

// Options are the pipeline limits.
type Options struct {
	MaxMessageLength int
	HistoryLimit     int
	DefaultPersona   string
	Now              func() time.Time
}

// Inbound is one user message with the caller's identity.
type Inbound struct {
	UserID      string
	DisplayName string
	PersonaID   string
	Text        string
}

// Reply is the single response to an accepted message.
type Reply struct {
	Response   string               `json:"response"`
	Intent     string               `json:"intent"`
	Confidence float64              `json:"confidence"`
	Timestamp  time.Time            `json:"timestamp"`
	Sentiment  string               `json:"sentiment"`
	Mood       string               `json:"mood"`
	Provider   string               `json:"provider"`
	PersonaID  string               `json:"personaId,omitempty"`
	Attempts   []completion.Attempt `json:"attempts,omitempty"`
}

// FallbackProvider marks replies that came from the canned responder.
const FallbackProvider = "fallback"

// Orchestrator holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	deps Dependencies
	opts Options
}

// New panics on a missing Fallback or Enhancer; without them the pipeline
// cannot guarantee a reply.
func New(deps Dependencies, opts Options) *Orchestrator {
	if deps.Fallback == nil || deps.Enhancer == nil {
		panic("conversation: fallback and enhancer are required")
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = DefaultMaxMessageLength
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// HandleMessage is Handle without display name or persona selection.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID, text string) (Reply, error) {
	return o.Handle(ctx, Inbound{UserID: userID, Text: text})
}

// Handle returns an error only for input that fails validation.
func (o *Orchestrator) Handle(ctx context.Context, in Inbound) (Reply, error) {
	logger := log.WithFields(log.Fields{"user": in.UserID, "persona": in.PersonaID})

	// RECEIVED
	text, err := o.validate(in.Text)
	if err != nil {
		logger.WithField("state", StateReceived).Infof("[conversation] rejected message: %v", err)
		return Reply{}, err
	}

	// CLASSIFIED
	result := o.classify(text)
	sentimentLabel := string(sentiment.Neutral)
	if o.deps.Sentiment != nil {
		sentimentLabel = string(o.deps.Sentiment.Label(text))
	}
	logger.WithFields(log.Fields{
		"state":      StateClassified,
		"intent":     result.Label,
		"confidence": result.Confidence,
		"source":     result.Source,
	}).Debug("[conversation] classified")

	// COMPLETING
	p, hasPersona := o.persona(in.PersonaID)
	var systemPrompt string
	if hasPersona && o.deps.Prompts != nil {
		systemPrompt = o.deps.Prompts.BuildSystemPrompt(p, in.DisplayName, &prompt.Guidance{
			Intent:    result.Label,
			Sentiment: sentimentLabel,
		})
	}

	var outcome completion.Outcome
	if o.deps.Completer != nil {
		outcome = o.deps.Completer.Complete(ctx, completion.Request{
			Message:       text,
			PersonaPrompt: systemPrompt,
			History:       o.history(ctx, in.UserID),
		})
	}

	reply := Reply{
		Intent:     result.Label,
		Confidence: result.Confidence,
		Sentiment:  sentimentLabel,
		PersonaID:  p.ID,
		Attempts:   outcome.Attempts,
	}

	final, ok := outcome.Final()
	if !ok {
		logger.WithFields(log.Fields{
			"state":    StateCompleting,
			"attempts": len(outcome.Attempts),
		}).Infof("[conversation] no provider answered, using fallback: %v", outcome.Err())
		reply.Response = o.deps.Fallback.FallbackFor(text, in.DisplayName)
		reply.Provider = FallbackProvider
	} else {
		// ENHANCING
		enhanced := o.deps.Enhancer.Apply(enhance.Input{
			Raw:      final.Text,
			Original: text,
			Name:     in.DisplayName,
			Echoes:   []string{systemPrompt},
		})
		reply.Response = enhanced.Text
		reply.Provider = final.Provider
		if enhanced.Replaced {
			reply.Provider = FallbackProvider
		}
		logger.WithFields(log.Fields{
			"state":      StateEnhancing,
			"provider":   final.Provider,
			"replaced":   enhanced.Replaced,
			"decoration": enhanced.Decoration,
		}).Debug("[conversation] enhanced provider reply")
	}

	// DONE
	reply.Timestamp = o.opts.Now()
	reply.Mood = string(mood.Analyze(text, reply.Response).Mood)
	o.persist(ctx, in.UserID, text, reply)

	logger.WithFields(log.Fields{
		"state":    StateDone,
		"intent":   reply.Intent,
		"provider": reply.Provider,
	}).Info("[conversation] reply ready")
	return reply, nil
}

func (o *Orchestrator) validate(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if n := utf8.RuneCountInString(text); n > o.opts.MaxMessageLength {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrMessageTooLong, n, o.opts.MaxMessageLength)
	}
	return text, nil
}

func (o *Orchestrator) classify(text string) intent.Result {
	if o.deps.Classifier == nil {
		return intent.Result{Label: knowledge.ErrorLabel, Confidence: 0}
	}
	return o.deps.Classifier.Classify(text)
}

func (o *Orchestrator) persona(id string) (persona.Persona, bool) {
	if o.deps.Personas == nil {
		return persona.Persona{}, false
	}
	if id != "" {
		if p, ok := o.deps.Personas.FindByID(id); ok {
			return p, true
		}
	}
	return o.deps.Personas.FindByID(o.opts.DefaultPersona)
}

func (o *Orchestrator) history(ctx context.Context, userID string) []completion.Message {
	if o.deps.Store == nil || userID == "" {
		return nil
	}
	turns, err := o.deps.Store.LoadRecentTurns(ctx, userID, o.opts.HistoryLimit, chat.OldestFirst)
	if err != nil {
		log.Printf("[conversation] load history for user=%s failed: %v", userID, err)
		return nil
	}

	msgs := make([]completion.Message, 0, len(turns))
	for _, t := range turns {
		msgs = append(msgs, completion.Message{Role: string(t.Speaker), Content: t.Text})
	}
	return msgs
}

// persist writes the user and assistant turns. Failures are logged only;
// the reply has already been produced.
func (o *Orchestrator) persist(ctx context.Context, userID, text string, reply Reply) {
	if o.deps.Store == nil || userID == "" {
		return
	}

	confidence := reply.Confidence
	turns := []chat.Turn{
		{
			ID:         uuid.NewString(),
			UserID:     userID,
			Speaker:    chat.SpeakerUser,
			Text:       text,
			Timestamp:  reply.Timestamp,
			Sentiment:  reply.Sentiment,
			Intent:     reply.Intent,
			Confidence: &confidence,
		},
		{
			ID:        uuid.NewString(),
			UserID:    userID,
			Speaker:   chat.SpeakerAssistant,
			Text:      reply.Response,
			Timestamp: reply.Timestamp.Add(time.Millisecond),
			Sentiment: o.sentimentOf(reply.Response),
			Mood:      reply.Mood,
			Provider:  reply.Provider,
		},
	}
	for _, t := range turns {
		if err := o.deps.Store.SaveTurn(ctx, t); err != nil {
			log.Printf("[conversation] save %s turn for user=%s failed: %v", t.Speaker, userID, err)
		}
	}
}

func (o *Orchestrator) sentimentOf(s string) string {
	if o.deps.Sentiment == nil {
		return string(sentiment.Neutral)
	}
	return string(o.deps.Sentiment.Label(s))
}
