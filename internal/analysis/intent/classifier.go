// Package intent assigns a coarse intent label to inbound messages. A fitted
// TF-IDF model is tried first; the keyword table answers whenever the model
// is missing or cannot decide.
package intent

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/zhouzirui/aria/backend/internal/knowledge"
)

// DefaultRetrainThreshold is the feedback volume that triggers a refit.
const DefaultRetrainThreshold = 50

var (
	ErrUnknownLabel  = errors.New("intent: unknown label")
	ErrEmptyFeedback = errors.New("intent: feedback text is empty")
)

// Source tells which path produced a Result.
type Source string

const (
	SourceModel   Source = "model"
	SourceKeyword Source = "keyword"
)

// Result is a ClassificationResult. Confidence is always within [0,1].
type Result struct {
	Label      string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// Config tunes the classifier.
type Config struct {
	RetrainThreshold int
	// DisableModel skips fitting and always uses the keyword table.
	DisableModel bool
}

// Classifier combines the statistical model with the keyword fallback. The
// model pointer is swapped wholesale on retrain.
type Classifier struct {
	model     atomic.Pointer[Model]
	keywords  *KeywordClassifier
	labels    map[string]bool
	base      []Sample
	threshold int

	mu       sync.Mutex
	feedback []Sample
}

// NewClassifier fits the initial model from the knowledge training set. A
// failed fit is logged and leaves the keyword path in charge.
func NewClassifier(tables *knowledge.Tables, cfg Config) *Classifier {
	threshold := cfg.RetrainThreshold
	if threshold <= 0 {
		threshold = DefaultRetrainThreshold
	}

	c := &Classifier{
		keywords:  NewKeywordClassifier(tables.Intents),
		labels:    map[string]bool{},
		threshold: threshold,
	}
	for _, label := range tables.Labels() {
		c.labels[label] = true
	}
	for _, ex := range tables.Training {
		for _, sentence := range ex.Examples {
			c.base = append(c.base, Sample{Text: sentence, Label: ex.Label})
		}
	}

	if cfg.DisableModel {
		return c
	}
	model, err := Fit(c.base)
	if err != nil {
		log.Printf("[intent] model fit failed, keyword fallback only: %v", err)
		return c
	}
	c.model.Store(model)
	log.Printf("[intent] model fitted on %d samples, labels=%s", model.TrainedOn(), strings.Join(model.Labels(), ","))
	return c
}

// Classify returns the model prediction, or the keyword result when the
// model is unavailable or errors.
func (c *Classifier) Classify(s string) Result {
	if model := c.model.Load(); model != nil {
		label, confidence, err := model.Predict(s)
		if err == nil {
			return Result{Label: label, Confidence: confidence, Source: SourceModel}
		}
		if !errors.Is(err, ErrNoSignal) {
			log.Printf("[intent] model predict failed, use keyword fallback: %v", err)
		}
	}
	return c.keywords.Classify(s)
}

// ModelReady reports whether a fitted model is installed.
func (c *Classifier) ModelReady() bool {
	return c.model.Load() != nil
}

// KnownLabel reports whether label can be produced by Classify.
func (c *Classifier) KnownLabel(label string) bool {
	return c.labels[label]
}

// AddFeedback records a labelled example. When the pending count reaches
// the threshold the model is refitted on base + feedback and replaced.
func (c *Classifier) AddFeedback(s, label string) (pending int, retrained bool, err error) {
	label = strings.TrimSpace(label)
	if !c.labels[label] {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if strings.TrimSpace(s) == "" {
		return 0, false, ErrEmptyFeedback
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.feedback = append(c.feedback, Sample{Text: s, Label: label})
	if len(c.feedback) < c.threshold {
		return len(c.feedback), false, nil
	}

	samples := make([]Sample, 0, len(c.base)+len(c.feedback))
	samples = append(samples, c.base...)
	samples = append(samples, c.feedback...)
	model, fitErr := Fit(samples)
	if fitErr != nil {
		return len(c.feedback), false, fmt.Errorf("intent: retrain: %w", fitErr)
	}

	c.model.Store(model)
	c.base = samples
	c.feedback = nil
	log.Printf("[intent] model retrained on %d samples", model.TrainedOn())
	return 0, true, nil
}
