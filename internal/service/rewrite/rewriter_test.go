package rewrite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/aria/backend/internal/analysis/writing"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
	"github.com/zhouzirui/aria/backend/internal/service/completion"
	"github.com/zhouzirui/aria/backend/internal/service/enhance"
	"github.com/zhouzirui/aria/backend/internal/service/fallback"
)

type fakeProvider struct {
	name  string
	reply func(req completion.Request) (string, error)
	seen  []completion.Request
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Complete(_ context.Context, req completion.Request) (string, error) {
	p.seen = append(p.seen, req)
	return p.reply(req)
}

func newRewriter(providers ...completion.Provider) *Rewriter {
	tables := knowledge.MustDefault()
	e := enhance.NewEnhancer(tables, fallback.NewResponder(tables), 0)
	return NewRewriter(completion.NewClient(providers, 0), e)
}

func TestRewriteStripsPromptEcho(t *testing.T) {
	p := &fakeProvider{name: "fake", reply: func(req completion.Request) (string, error) {
		return req.Message + " Greetings, esteemed colleague.", nil
	}}

	got := newRewriter(p).Rewrite(context.Background(), "hey buddy", writing.Formal)

	assert.Equal(t, "Greetings, esteemed colleague.", got.Text)
	assert.Equal(t, "fake", got.Provider)
	if assert.Len(t, p.seen, 1) {
		assert.Equal(t, "Transform this text into a formal style while maintaining its meaning: hey buddy", p.seen[0].Message)
	}
}

func TestRewriteStripsRolePrefix(t *testing.T) {
	p := &fakeProvider{name: "fake", reply: func(completion.Request) (string, error) {
		return "Assistant: Once upon a quiet evening...", nil
	}}

	got := newRewriter(p).Rewrite(context.Background(), "it was night", writing.Creative)
	assert.Equal(t, "Once upon a quiet evening...", got.Text)
}

func TestRewriteEmptyWhenAllProvidersFail(t *testing.T) {
	p := &fakeProvider{name: "down", reply: func(completion.Request) (string, error) {
		return "", errors.New("boom")
	}}

	got := newRewriter(p).Rewrite(context.Background(), "hey buddy", writing.Casual)
	assert.Empty(t, got.Text)
	assert.Empty(t, got.Provider)
	assert.Len(t, got.Attempts, 1)
}

func TestRewriteEmptyWhenOnlyEchoReturned(t *testing.T) {
	p := &fakeProvider{name: "parrot", reply: func(req completion.Request) (string, error) {
		return req.Message, nil
	}}

	got := newRewriter(p).Rewrite(context.Background(), "hey buddy", writing.Formal)
	assert.Empty(t, got.Text)
}

func TestNilRewriterReturnsEmpty(t *testing.T) {
	var r *Rewriter
	assert.Empty(t, r.Rewrite(context.Background(), "x", writing.Formal).Text)
}
