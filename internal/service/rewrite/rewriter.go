// Package rewrite asks the completion providers to restate a passage in a
// target writing style.
package rewrite

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/analysis/writing"
	"github.com/zhouzirui/aria/backend/internal/service/completion"
)

// Completer asks remote providers for text.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) completion.Outcome
}

// Cleaner strips echoed prompt text from provider output.
type Cleaner interface {
	Strip(raw string, echoes ...string) string
}

// Result is one rewrite. Text is empty when no provider answered usefully.
type Result struct {
	Text     string
	Provider string
	Attempts []completion.Attempt
}

type Rewriter struct {
	completer Completer
	cleaner   Cleaner
}

func NewRewriter(completer Completer, cleaner Cleaner) *Rewriter {
	return &Rewriter{completer: completer, cleaner: cleaner}
}

// Prompt is the instruction sent to the providers.
func Prompt(passage string, style writing.Style) string {
	return fmt.Sprintf("Transform this text into a %s style while maintaining its meaning: %s", style, passage)
}

// Rewrite never fails; a total provider failure yields an empty Text so the
// caller can still return the analysis.
func (r *Rewriter) Rewrite(ctx context.Context, passage string, style writing.Style) Result {
	if r == nil || r.completer == nil {
		return Result{}
	}

	prompt := Prompt(passage, style)
	outcome := r.completer.Complete(ctx, completion.Request{Message: prompt})
	res := Result{Attempts: outcome.Attempts}

	final, ok := outcome.Final()
	if !ok {
		log.WithField("attempts", len(outcome.Attempts)).Warn("[rewrite] no provider produced a rewrite")
		return res
	}

	text := final.Text
	if r.cleaner != nil {
		text = r.cleaner.Strip(text, prompt)
	}
	if text == "" {
		return res
	}
	res.Text = text
	res.Provider = final.Provider
	return res
}
