// Package writing computes lightweight style metrics for a passage of text
// and turns them into suggestions for a target writing style.
package writing

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/aria/backend/internal/analysis/sentiment"
	"github.com/zhouzirui/aria/backend/internal/analysis/text"
)

// Style is a target register.
type Style string

const (
	Formal    Style = "formal"
	Creative  Style = "creative"
	Technical Style = "technical"
	Casual    Style = "casual"
)

var ErrUnknownStyle = errors.New("writing: unknown style")

type styleRules struct {
	tone       string
	complexity string
	rules      []string
}

var styles = map[Style]styleRules{
	Formal:    {tone: "professional", complexity: "high", rules: []string{"Use sophisticated vocabulary", "Maintain professional tone"}},
	Creative:  {tone: "imaginative", complexity: "moderate", rules: []string{"Use vivid descriptions", "Employ metaphors and similes"}},
	Technical: {tone: "precise", complexity: "high", rules: []string{"Use domain-specific terminology", "Maintain clarity"}},
	Casual:    {tone: "friendly", complexity: "low", rules: []string{"Use conversational tone", "Keep sentences simple"}},
}

// informal markers stand in for pronoun/interjection/particle tags
var informalWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`i me my mine you your yours we us our he she him her it they them
		oh wow hey yeah yep nope ok okay lol um uh hmm well gonna wanna gotta kinda
		not to up out off just really so like`) {
		informalWords[w] = struct{}{}
	}
}

// Analysis is the metric set returned for a passage.
type Analysis struct {
	Style           Style    `json:"style"`
	Tone            string   `json:"tone"`
	ComplexityScore float64  `json:"complexityScore"`
	FormalityScore  float64  `json:"formalityScore"`
	SentimentScore  float64  `json:"sentimentScore"`
	Sentiment       string   `json:"sentiment"`
	WordCount       int      `json:"wordCount"`
	SentenceCount   int      `json:"sentenceCount"`
	KeyPhrases      []string `json:"keyPhrases,omitempty"`
	Suggestions     []string `json:"suggestions"`
}

// Analyzer is stateless apart from the shared sentiment vocabulary.
type Analyzer struct {
	sentiment *sentiment.Analyzer
}

func NewAnalyzer(s *sentiment.Analyzer) *Analyzer {
	return &Analyzer{sentiment: s}
}

// ParseStyle maps user input to a Style; empty input means Formal.
func ParseStyle(raw string) (Style, error) {
	style := Style(strings.ToLower(strings.TrimSpace(raw)))
	if style == "" {
		return Formal, nil
	}
	if _, ok := styles[style]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, raw)
	}
	return style, nil
}

// Analyze scores passage against style.
func (a *Analyzer) Analyze(passage string, style Style) (Analysis, error) {
	rules, ok := styles[style]
	if !ok {
		return Analysis{}, fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}

	tokens := text.Tokens(passage)
	score := a.sentiment.Analyze(passage)

	result := Analysis{
		Style:           style,
		Tone:            rules.tone,
		ComplexityScore: complexity(tokens),
		FormalityScore:  formality(tokens),
		SentimentScore:  float64(score.Positive-score.Negative) / float64(len(tokens)+1),
		Sentiment:       string(score.Label),
		WordCount:       len(tokens),
		SentenceCount:   countSentences(passage),
		KeyPhrases:      keyPhrases(passage),
	}
	result.Suggestions = suggest(result, style, rules)
	return result, nil
}

func complexity(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	long := 0
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) > 6 {
			long++
		}
	}
	return float64(long) / float64(len(tokens))
}

func formality(tokens []string) float64 {
	formal, informal := 0, 0
	for _, tok := range tokens {
		if _, ok := informalWords[tok]; ok {
			informal++
			continue
		}
		if utf8.RuneCountInString(tok) > 3 || unicode.IsDigit([]rune(tok)[0]) {
			formal++
		}
	}
	return float64(formal) / float64(informal+1)
}

func countSentences(passage string) int {
	count := 0
	inSentence := false
	for _, r := range passage {
		switch {
		case r == '.' || r == '!' || r == '?':
			if inSentence {
				count++
				inSentence = false
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			inSentence = true
		}
	}
	if inSentence {
		count++
	}
	return count
}

// keyPhrases collects runs of capitalised words that do not open a sentence.
func keyPhrases(passage string) []string {
	var phrases []string
	var current []string
	sentenceStart := true
	flush := func() {
		if len(current) > 0 {
			phrases = append(phrases, strings.Join(current, " "))
			current = nil
		}
	}
	for _, field := range strings.Fields(passage) {
		word := strings.TrimFunc(field, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if word != "" && !sentenceStart && unicode.IsUpper([]rune(word)[0]) {
			current = append(current, word)
		} else {
			flush()
		}
		sentenceStart = strings.ContainsAny(field[len(field)-1:], ".!?")
		if sentenceStart {
			flush()
		}
	}
	flush()
	return phrases
}

func suggest(a Analysis, style Style, rules styleRules) []string {
	var out []string
	if a.ComplexityScore < 0.3 && (style == Formal || style == Technical) {
		out = append(out, "Consider using more sophisticated vocabulary")
	}
	if a.FormalityScore < 1.5 && style == Formal {
		out = append(out, "Increase formality by using more professional language")
	}
	if a.SentenceCount > 0 && a.WordCount/a.SentenceCount > 25 && style == Casual {
		out = append(out, "Break long sentences into shorter ones")
	}
	return append(out, rules.rules...)
}
