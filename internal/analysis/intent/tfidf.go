package intent

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/zhouzirui/aria/backend/internal/analysis/text"
)

// ErrNoSignal is returned when a message shares no vocabulary with the model.
var ErrNoSignal = errors.New("intent: message has no known terms")

// smoothing is the additive (Lidstone) prior for feature likelihoods.
const smoothing = 0.1

// Sample is one labelled training sentence.
type Sample struct {
	Text  string
	Label string
}

// Model is a TF-IDF weighted multinomial naive Bayes classifier. A fitted
// Model is never mutated, so it can be shared between goroutines.
type Model struct {
	vocab     map[string]int
	idf       []float64
	labels    []string
	logPrior  []float64
	logLikely [][]float64
	trainedOn int
}

// Fit trains a new Model from scratch.
func Fit(samples []Sample) (*Model, error) {
	docs := make([][]string, 0, len(samples))
	labelIdx := map[string]int{}
	var labels []string
	for _, s := range samples {
		if s.Label == "" {
			continue
		}
		toks := text.Tokens(s.Text)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, toks)
		if _, ok := labelIdx[s.Label]; !ok {
			labelIdx[s.Label] = -1
			labels = append(labels, s.Label)
		}
	}
	if len(labels) < 2 {
		return nil, fmt.Errorf("intent: need at least two labels to fit, got %d", len(labels))
	}
	sort.Strings(labels)
	for i, l := range labels {
		labelIdx[l] = i
	}

	m := &Model{vocab: map[string]int{}, labels: labels}
	df := []int{}
	for _, doc := range docs {
		seen := map[int]bool{}
		for _, tok := range doc {
			idx, ok := m.vocab[tok]
			if !ok {
				idx = len(m.vocab)
				m.vocab[tok] = idx
				df = append(df, 0)
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}

	n := float64(len(docs))
	m.idf = make([]float64, len(df))
	for i, d := range df {
		m.idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	featSum := make([][]float64, len(labels))
	for i := range featSum {
		featSum[i] = make([]float64, len(m.vocab))
	}
	classCount := make([]float64, len(labels))

	docIdx := 0
	for _, s := range samples {
		if s.Label == "" || len(text.Tokens(s.Text)) == 0 {
			continue
		}
		c := labelIdx[s.Label]
		classCount[c]++
		for idx, w := range m.vectorize(docs[docIdx]) {
			featSum[c][idx] += w
		}
		docIdx++
	}

	m.logPrior = make([]float64, len(labels))
	m.logLikely = make([][]float64, len(labels))
	vocabSize := float64(len(m.vocab))
	for c := range labels {
		m.logPrior[c] = math.Log(classCount[c] / n)
		total := 0.0
		for _, w := range featSum[c] {
			total += w
		}
		denom := total + smoothing*vocabSize
		m.logLikely[c] = make([]float64, len(m.vocab))
		for j, w := range featSum[c] {
			m.logLikely[c][j] = math.Log((w + smoothing) / denom)
		}
	}
	m.trainedOn = len(docs)
	return m, nil
}

// Predict returns the most probable label and its posterior probability.
func (m *Model) Predict(s string) (string, float64, error) {
	vec := m.vectorize(text.Tokens(s))
	if len(vec) == 0 {
		return "", 0, ErrNoSignal
	}

	scores := make([]float64, len(m.labels))
	best := 0
	for c := range m.labels {
		score := m.logPrior[c]
		for idx, w := range vec {
			score += w * m.logLikely[c][idx]
		}
		scores[c] = score
		if score > scores[best] {
			best = c
		}
	}

	// softmax relative to the best score keeps exp() in range
	sum := 0.0
	for _, score := range scores {
		sum += math.Exp(score - scores[best])
	}
	confidence := 1 / sum
	if math.IsNaN(confidence) {
		return "", 0, fmt.Errorf("intent: degenerate posterior for %q", s)
	}
	return m.labels[best], clamp01(confidence), nil
}

// Labels lists the labels the model was fitted on.
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

// TrainedOn reports the number of documents used to fit the model.
func (m *Model) TrainedOn() int {
	return m.trainedOn
}

// vectorize returns l2-normalised tf-idf weights keyed by vocabulary index.
// Unknown tokens are dropped.
func (m *Model) vectorize(tokens []string) map[int]float64 {
	tf := map[int]float64{}
	for _, tok := range tokens {
		if idx, ok := m.vocab[tok]; ok {
			tf[idx]++
		}
	}
	norm := 0.0
	for idx, count := range tf {
		w := count * m.idf[idx]
		tf[idx] = w
		norm += w * w
	}
	if norm == 0 {
		return nil
	}
	norm = math.Sqrt(norm)
	for idx := range tf {
		tf[idx] /= norm
	}
	return tf
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
