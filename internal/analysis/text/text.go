// Package text contains the normalisation and keyword matching shared by the
// analyzers, the fallback responder and the enhancer.
package text

import (
	"strings"
	"unicode"
)

// Normalize lowercases s and folds curly apostrophes.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}

// Tokens splits s into lowercase word tokens. Apostrophes stay inside words
// so "how's" and "you're" survive as single tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'')
	})
}

// Matcher answers keyword queries against one normalised message.
type Matcher struct {
	tokens map[string]struct{}
	padded string
}

// NewMatcher prepares s for repeated keyword lookups.
func NewMatcher(s string) Matcher {
	toks := Tokens(s)
	set := make(map[string]struct{}, len(toks))
	for _, tok := range toks {
		set[tok] = struct{}{}
	}
	return Matcher{tokens: set, padded: " " + strings.Join(toks, " ") + " "}
}

// Has reports whether keyword occurs as a whole word, or as a whole phrase
// when it contains several words.
func (m Matcher) Has(keyword string) bool {
	kw := Tokens(keyword)
	switch len(kw) {
	case 0:
		return false
	case 1:
		_, ok := m.tokens[kw[0]]
		return ok
	default:
		return strings.Contains(m.padded, " "+strings.Join(kw, " ")+" ")
	}
}

// Any reports whether at least one keyword matches.
func (m Matcher) Any(keywords []string) bool {
	for _, kw := range keywords {
		if m.Has(kw) {
			return true
		}
	}
	return false
}

// Empty reports whether the message had no word tokens.
func (m Matcher) Empty() bool {
	return len(m.tokens) == 0
}
