// Package enhance cleans up raw provider text and adds a tone cue.
package enhance

import (
	"strings"
	"unicode/utf8"

	"github.com/zhouzirui/aria/backend/internal/analysis/text"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
)

// DefaultMinLength is the shortest provider reply accepted, in runes.
const DefaultMinLength = 10

// Fallback supplies a replacement for unusable provider output.
type Fallback interface {
	FallbackFor(s, name string) string
}

// Input carries everything Enhance needs for one reply.
type Input struct {
	Raw      string
	Original string
	Name     string
	// Echoes are prompt fragments some providers repeat back verbatim.
	Echoes []string
}

// Result reports what the enhancer did.
type Result struct {
	Text       string
	Replaced   bool
	Decoration string
}

// Enhancer is immutable after construction.
type Enhancer struct {
	prefixes    []string
	decorations []knowledge.Decoration
	minLength   int
	fallback    Fallback
}

// NewEnhancer wires the enhancer to the knowledge tables. minLength <= 0
// selects DefaultMinLength.
func NewEnhancer(tables *knowledge.Tables, fallback Fallback, minLength int) *Enhancer {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Enhancer{
		prefixes:    append([]string(nil), tables.StripPrefixes...),
		decorations: append([]knowledge.Decoration(nil), tables.Decorations...),
		minLength:   minLength,
		fallback:    fallback,
	}
}

// MinLength returns the acceptance threshold.
func (e *Enhancer) MinLength() int {
	return e.minLength
}

// Enhance is the two-argument form used when no name or echoes are known.
func (e *Enhancer) Enhance(raw, original string) string {
	return e.Apply(Input{Raw: raw, Original: original}).Text
}

// Apply strips noise from in.Raw, replaces it when too short and appends at
// most one decoration chosen from in.Original.
func (e *Enhancer) Apply(in Input) Result {
	cleaned := e.clean(in.Raw, in.Echoes)

	res := Result{Text: cleaned}
	if utf8.RuneCountInString(cleaned) < e.minLength {
		res.Text = strings.TrimSpace(e.fallback.FallbackFor(in.Original, in.Name))
		res.Replaced = true
	}

	res.Text, res.Decoration = e.decorate(res.Text, in.Original)
	return res
}

// Strip removes echoed prompt fragments and role prefixes without any length
// check or decoration.
func (e *Enhancer) Strip(raw string, echoes ...string) string {
	return e.clean(raw, echoes)
}

func (e *Enhancer) clean(raw string, echoes []string) string {
	out := raw
	for _, echo := range echoes {
		if echo = strings.TrimSpace(echo); echo != "" {
			out = strings.ReplaceAll(out, echo, "")
		}
	}
	out = strings.TrimSpace(out)

	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range e.prefixes {
			if len(out) >= len(prefix) && strings.EqualFold(out[:len(prefix)], prefix) {
				out = strings.TrimSpace(out[len(prefix):])
				stripped = true
			}
		}
	}
	return out
}

func (e *Enhancer) decorate(reply, original string) (string, string) {
	m := text.NewMatcher(original)
	for _, d := range e.decorations {
		if d.Suffix == "" || !m.Any(d.Keywords) {
			continue
		}
		if strings.Contains(reply, d.Suffix) {
			return reply, ""
		}
		return reply + " " + d.Suffix, d.Trigger
	}
	return reply, ""
}
