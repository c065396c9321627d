package persona

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidPersona = errors.New("persona: invalid definition")

// Store exposes persona retrieval for HTTP handlers and the pipeline.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore keeps personas in declaration order with a case-insensitive
// id index. It is immutable after construction.
type MemoryStore struct {
	items []Persona
	index map[string]int
}

// NewMemoryStore indexes items. A later persona with an id already seen
// replaces the earlier one in place.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{index: make(map[string]int, len(items))}
	for _, item := range items {
		key := normalizeID(item.ID)
		if key == "" {
			continue
		}
		if pos, ok := s.index[key]; ok {
			s.items[pos] = item
			continue
		}
		s.index[key] = len(s.items)
		s.items = append(s.items, item)
	}
	return s
}

// List returns a copy in declaration order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID ignores case and surrounding spaces.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	pos, ok := s.index[normalizeID(id)]
	if !ok {
		return Persona{}, false
	}
	return s.items[pos], true
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// LoadFile reads a YAML list of personas and merges it over Seed, so a file
// can override a built-in character or add new ones.
func LoadFile(path string) ([]Persona, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file %q: %w", path, err)
	}
	extra, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("persona file %q: %w", path, err)
	}
	return append(Seed(), extra...), nil
}

// Parse decodes and validates a YAML persona list.
func Parse(raw []byte) ([]Persona, error) {
	var doc struct {
		Personas []Persona `yaml:"personas"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}
	for i, p := range doc.Personas {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%w: entry %d needs id and name", ErrInvalidPersona, i)
		}
		doc.Personas[i].ID = normalizeID(p.ID)
	}
	return doc.Personas, nil
}
