// Package sentiment scores text against fixed positive/negative vocabularies.
package sentiment

import (
	"github.com/zhouzirui/aria/backend/internal/analysis/text"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
)

// Label is the coarse polarity of a message.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// Score holds the raw vocabulary hits behind a Label.
type Score struct {
	Label    Label
	Positive int
	Negative int
}

// Analyzer counts vocabulary occurrences. It is immutable and safe for
// concurrent use.
type Analyzer struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewAnalyzer builds an Analyzer from the knowledge vocabulary.
func NewAnalyzer(vocab knowledge.Vocabulary) *Analyzer {
	return &Analyzer{
		positive: toSet(vocab.Positive),
		negative: toSet(vocab.Negative),
	}
}

// Analyze returns the majority polarity; equal counts yield Neutral.
func (a *Analyzer) Analyze(s string) Score {
	score := Score{Label: Neutral}
	for _, tok := range text.Tokens(s) {
		if _, ok := a.positive[tok]; ok {
			score.Positive++
		}
		if _, ok := a.negative[tok]; ok {
			score.Negative++
		}
	}
	switch {
	case score.Positive > score.Negative:
		score.Label = Positive
	case score.Negative > score.Positive:
		score.Label = Negative
	}
	return score
}

// Label is a shortcut for Analyze(s).Label.
func (a *Analyzer) Label(s string) Label {
	return a.Analyze(s).Label
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		for _, tok := range text.Tokens(w) {
			set[tok] = struct{}{}
		}
	}
	return set
}
