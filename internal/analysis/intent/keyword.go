package intent

import (
	"github.com/zhouzirui/aria/backend/internal/analysis/text"
	"github.com/zhouzirui/aria/backend/internal/knowledge"
)

const (
	keywordConfidence = 0.7
	generalConfidence = 0.3
)

// KeywordClassifier picks the first intent whose keyword list matches.
type KeywordClassifier struct {
	intents []knowledge.Intent
}

// NewKeywordClassifier keeps intents in the given order; order decides ties.
func NewKeywordClassifier(intents []knowledge.Intent) *KeywordClassifier {
	return &KeywordClassifier{intents: append([]knowledge.Intent(nil), intents...)}
}

// Classify never fails: no match yields ("general", 0.3).
func (k *KeywordClassifier) Classify(s string) Result {
	m := text.NewMatcher(s)
	for _, in := range k.intents {
		if m.Any(in.Keywords) {
			return Result{Label: in.Label, Confidence: keywordConfidence, Source: SourceKeyword}
		}
	}
	return Result{Label: knowledge.GeneralLabel, Confidence: generalConfidence, Source: SourceKeyword}
}
