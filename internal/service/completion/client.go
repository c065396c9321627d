// Package completion calls remote text-generation providers in priority
// order and reports the first usable reply.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	ErrNoProviders        = errors.New("completion: no providers configured")
	ErrAllProvidersFailed = errors.New("completion: all providers failed")
	ErrEmptyCompletion    = errors.New("completion: empty completion")
	ErrMalformedPayload   = errors.New("completion: malformed payload")
)

// StatusError reports a non-200 answer from a provider.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
}

// Message is one prior conversation turn passed as context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is what every provider receives.
type Request struct {
	Message       string
	PersonaPrompt string
	History       []Message
}

// Provider is one remote text-generation strategy. Complete returns the
// plain reply text or an error; it must respect ctx cancellation.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Attempt is the tagged result of calling one provider.
type Attempt struct {
	Provider  string        `json:"provider"`
	Succeeded bool          `json:"succeeded"`
	Text      string        `json:"-"`
	Err       error         `json:"-"`
	Error     string        `json:"error,omitempty"`
	Latency   time.Duration `json:"-"`
	LatencyMs int64         `json:"latencyMs"`
}

// Outcome collects every attempt made for one request.
type Outcome struct {
	Attempts []Attempt
}

// Succeeded reports whether any provider produced text.
func (o Outcome) Succeeded() bool {
	_, ok := o.Final()
	return ok
}

// Final returns the successful attempt, if any.
func (o Outcome) Final() (Attempt, bool) {
	if n := len(o.Attempts); n > 0 && o.Attempts[n-1].Succeeded {
		return o.Attempts[n-1], true
	}
	return Attempt{}, false
}

// Err explains a failed outcome; nil on success.
func (o Outcome) Err() error {
	if o.Succeeded() {
		return nil
	}
	if len(o.Attempts) == 0 {
		return ErrNoProviders
	}
	return ErrAllProvidersFailed
}

// Client walks its providers in order. It holds no mutable state.
type Client struct {
	providers []Provider
	timeout   time.Duration
}

// NewClient keeps providers in the given priority order. Each attempt gets
// its own timeout.
func NewClient(providers []Provider, timeout time.Duration) *Client {
	return &Client{
		providers: append([]Provider(nil), providers...),
		timeout:   timeout,
	}
}

// Providers returns the provider names in priority order.
func (c *Client) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Complete tries every provider from the top of the list until one
// succeeds. It never returns an error; inspect the Outcome instead.
func (c *Client) Complete(ctx context.Context, req Request) Outcome {
	var out Outcome
	for _, p := range c.providers {
		attempt := c.attempt(ctx, p, req)
		out.Attempts = append(out.Attempts, attempt)

		fields := log.Fields{
			"provider":   attempt.Provider,
			"succeeded":  attempt.Succeeded,
			"latency_ms": attempt.Latency.Milliseconds(),
		}
		if attempt.Succeeded {
			log.WithFields(fields).Debug("[completion] provider answered")
			return out
		}
		fields["error"] = attempt.Error
		log.WithFields(fields).Warn("[completion] provider failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}
	return out
}

func (c *Client) attempt(ctx context.Context, p Provider, req Request) (a Attempt) {
	a.Provider = p.Name()
	start := time.Now()

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	defer func() {
		a.Latency = time.Since(start)
		a.LatencyMs = a.Latency.Milliseconds()
		if r := recover(); r != nil {
			a.Succeeded = false
			a.Text = ""
			a.Err = fmt.Errorf("%s: provider panic: %v", a.Provider, r)
		}
		if a.Err != nil {
			a.Error = a.Err.Error()
		}
	}()

	text, err := p.Complete(callCtx, req)
	if err != nil {
		a.Err = err
		return a
	}
	text = strings.TrimSpace(text)
	if text == "" {
		a.Err = fmt.Errorf("%s: %w", a.Provider, ErrEmptyCompletion)
		return a
	}

	a.Succeeded = true
	a.Text = text
	return a
}
