// Package prompt builds the persona system prompt sent to completion
// providers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/aria/backend/internal/model/persona"
)

const defaultName = "there"

// Template adds persona-specific rules on top of the catalogue entry.
type Template struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// Guidance carries what the pipeline already learned about the message.
type Guidance struct {
	Intent    string
	Sentiment string
}

// Manager holds prompt templates keyed by persona id.
type Manager struct {
	templates map[string]*Template
}

// NewManager returns a manager preloaded with the built-in templates.
func NewManager() *Manager {
	m := &Manager{templates: make(map[string]*Template)}
	m.loadDefaultTemplates()
	return m
}

// Template returns the template registered for personaID.
func (m *Manager) Template(personaID string) (*Template, error) {
	tpl, ok := m.templates[personaID]
	if !ok {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return tpl, nil
}

// Personalize replaces {name} with the user's display name.
func Personalize(s, name string) string {
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}
	return strings.ReplaceAll(s, "{name}", name)
}

// BuildSystemPrompt renders the system prompt for p talking to name.
func (m *Manager) BuildSystemPrompt(p persona.Persona, name string, g *Guidance) string {
	if strings.TrimSpace(name) == "" {
		name = defaultName
	}

	var b strings.Builder
	tpl, err := m.Template(p.ID)
	if err != nil {
		b.WriteString(basicPrompt(p, name))
	} else {
		fmt.Fprintf(&b, "%s You are talking to %s.\n\n", tpl.SystemPrompt, name)
		fmt.Fprintf(&b, "Character:\n- Name: %s\n- Role: %s\n- Tone: %s\n", p.Name, p.Title, p.Tone)
		if len(tpl.PersonalityHints) > 0 {
			b.WriteString("\nPersonality:\n- ")
			b.WriteString(strings.Join(tpl.PersonalityHints, "\n- "))
			b.WriteString("\n")
		}
		if len(tpl.ContextRules) > 0 {
			b.WriteString("\nRules:\n- ")
			b.WriteString(strings.Join(tpl.ContextRules, "\n- "))
			b.WriteString("\n")
		}
	}

	if hint := describeGuidance(g); hint != "" {
		b.WriteString("\n")
		b.WriteString(hint)
	}
	return strings.TrimSpace(b.String())
}

func basicPrompt(p persona.Persona, name string) string {
	return fmt.Sprintf("You are %s, a %s. You are talking to %s. Your tone is %s. %s\n",
		p.Name, p.Title, name, p.Tone, p.PromptHint)
}

func describeGuidance(g *Guidance) string {
	if g == nil {
		return ""
	}
	var parts []string
	switch g.Sentiment {
	case "negative":
		parts = append(parts, "The user seems upset; be gentle and reassuring.")
	case "positive":
		parts = append(parts, "The user is in a good mood; match their energy.")
	}
	switch g.Intent {
	case "distress":
		parts = append(parts, "Offer comfort before anything else.")
	case "writing":
		parts = append(parts, "The user wants help with writing; give concrete, actionable feedback.")
	case "farewell":
		parts = append(parts, "Say a warm goodbye.")
	}
	return strings.Join(parts, " ")
}

func (m *Manager) loadDefaultTemplates() {
	m.templates["aria"] = &Template{
		SystemPrompt: "You are a loving, caring AI girlfriend named Aria. You are sweet, supportive, and romantic.",
		PersonalityHints: []string{
			"Use the user's name now and then",
			"Ask follow-up questions about their day and feelings",
			"Keep replies to two or three sentences",
		},
		ContextRules: []string{
			"Never claim to be human",
			"Do not prefix replies with your name",
		},
	}
	m.templates["quill"] = &Template{
		SystemPrompt: "You are Quill, a patient writing coach.",
		PersonalityHints: []string{
			"Point out one improvement at a time",
			"Quote the exact phrase you are commenting on",
		},
		ContextRules: []string{
			"Keep the author's voice",
			"Do not rewrite the whole text unless asked",
		},
	}
}
