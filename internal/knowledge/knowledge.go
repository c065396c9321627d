// Package knowledge holds the keyword tables, canned replies and the labelled
// training set that drive the response pipeline. Tables are loaded once at
// startup and treated as read-only afterwards.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// GeneralLabel is the intent reported when nothing else matches.
const GeneralLabel = "general"

// NamePlaceholder is replaced with the user's display name in canned replies.
const NamePlaceholder = "{name}"

// ErrorLabel is reported only when the classifier is missing entirely.
const ErrorLabel = "error"

// Intent maps an intent label to the keywords that select it.
type Intent struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Bucket groups canned replies under a keyword trigger.
type Bucket struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	Responses []string `yaml:"responses"`
}

// Decoration is a cosmetic suffix appended when the user message matches.
type Decoration struct {
	Trigger  string   `yaml:"trigger"`
	Keywords []string `yaml:"keywords"`
	Suffix   string   `yaml:"suffix"`
}

// Vocabulary lists the words used by the sentiment counter.
type Vocabulary struct {
	Positive []string `yaml:"positive"`
	Negative []string `yaml:"negative"`
}

// Example is a labelled group of training sentences.
type Example struct {
	Label    string   `yaml:"label"`
	Examples []string `yaml:"examples"`
}

// Tables is the full knowledge set.
type Tables struct {
	Intents       []Intent     `yaml:"intents"`
	Buckets       []Bucket     `yaml:"buckets"`
	General       []string     `yaml:"general"`
	Sentiment     Vocabulary   `yaml:"sentiment"`
	Decorations   []Decoration `yaml:"decorations"`
	StripPrefixes []string     `yaml:"strip_prefixes"`
	Training      []Example    `yaml:"training"`
}

// Default returns the tables compiled into the binary.
func Default() (*Tables, error) {
	return Parse(defaultTables)
}

// MustDefault is Default for tests and package-level wiring.
func MustDefault() *Tables {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFile reads tables from path. An empty path yields the embedded defaults.
func LoadFile(path string) (*Tables, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file %q: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML document.
func Parse(raw []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode knowledge tables: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the invariants the pipeline relies on.
func (t *Tables) Validate() error {
	if len(t.General) == 0 {
		return errors.New("knowledge: general replies must not be empty")
	}
	for _, reply := range t.General {
		if strings.TrimSpace(reply) == "" {
			return errors.New("knowledge: general reply must not be blank")
		}
	}
	for _, b := range t.Buckets {
		if b.Name == "" {
			return errors.New("knowledge: bucket without name")
		}
		if len(b.Responses) == 0 {
			return fmt.Errorf("knowledge: bucket %q has no responses", b.Name)
		}
		for _, reply := range b.Responses {
			if strings.TrimSpace(reply) == "" {
				return fmt.Errorf("knowledge: bucket %q has a blank response", b.Name)
			}
		}
	}
	for _, in := range t.Intents {
		if in.Label == "" || in.Label == ErrorLabel {
			return fmt.Errorf("knowledge: invalid intent label %q", in.Label)
		}
	}
	return nil
}

// ValidateReplyLength checks that every canned reply has at least min runes
// once {name} is filled. The placeholder counts as empty, so any display name
// only makes the reply longer.
func (t *Tables) ValidateReplyLength(min int) error {
	check := func(where, reply string) error {
		bare := strings.TrimSpace(strings.ReplaceAll(reply, NamePlaceholder, ""))
		if n := utf8.RuneCountInString(bare); n < min {
			return fmt.Errorf("knowledge: %s reply %q has %d runes, minimum is %d", where, reply, n, min)
		}
		return nil
	}
	for _, reply := range t.General {
		if err := check(GeneralLabel, reply); err != nil {
			return err
		}
	}
	for _, b := range t.Buckets {
		for _, reply := range b.Responses {
			if err := check(b.Name, reply); err != nil {
				return err
			}
		}
	}
	return nil
}

// Labels returns every label the classifier may report, general included.
func (t *Tables) Labels() []string {
	seen := map[string]bool{GeneralLabel: true}
	labels := []string{GeneralLabel}
	add := func(label string) {
		if label != "" && !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	for _, in := range t.Intents {
		add(in.Label)
	}
	for _, ex := range t.Training {
		add(ex.Label)
	}
	return labels
}
