// Package fallback is the terminal responder of the pipeline: it always has a
// canned reply, chosen by keyword bucket.
package fallback

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/zhouzirui/aria/backend/internal/analysis/text"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
)

// GeneralBucket names the default candidate list.
const GeneralBucket = "general"

const defaultName = "there"

// lastResort guards against a misconfigured table; Validate rejects empty
// general lists, so it should never be used.
const lastResort = "I'm here for you. Tell me more!"

// Responder maps a message to a canned reply. Tables are read-only; the
// random source is guarded because rand.Rand is not goroutine-safe.
type Responder struct {
	buckets []knowledge.Bucket
	general []string

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customises a Responder.
type Option func(*Responder)

// WithRand injects the random source, letting tests fix the seed.
func WithRand(rng *rand.Rand) Option {
	return func(r *Responder) {
		r.rng = rng
	}
}

// NewResponder builds a Responder over the knowledge buckets.
func NewResponder(tables *knowledge.Tables, opts ...Option) *Responder {
	r := &Responder{
		buckets: append([]knowledge.Bucket(nil), tables.Buckets...),
		general: append([]string(nil), tables.General...),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return r
}

// Fallback returns a canned reply for s addressed to nobody in particular.
func (r *Responder) Fallback(s string) string {
	return r.FallbackFor(s, "")
}

// FallbackFor returns a canned reply with {name} replaced by name.
func (r *Responder) FallbackFor(s, name string) string {
	_, candidates := r.Candidates(s)
	if len(candidates) == 0 {
		return lastResort
	}

	r.mu.Lock()
	choice := candidates[r.rng.Intn(len(candidates))]
	r.mu.Unlock()

	return Personalize(choice, name)
}

// Candidates returns the bucket name and the unpersonalised replies that
// Fallback chooses from for s.
func (r *Responder) Candidates(s string) (string, []string) {
	m := text.NewMatcher(s)
	for _, b := range r.buckets {
		if m.Any(b.Keywords) {
			return b.Name, b.Responses
		}
	}
	return GeneralBucket, r.general
}

// Personalize fills the {name} placeholder.
func Personalize(template, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultName
	}
	return strings.ReplaceAll(template, knowledge.NamePlaceholder, name)
}
