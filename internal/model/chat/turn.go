package chat

import "time"

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Order is the explicit sort direction for history reads.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// ParseOrder maps "asc"/"oldest" and "desc"/"newest"; empty means oldest first.
func ParseOrder(s string) (Order, bool) {
	switch s {
	case "", "asc", "oldest":
		return OldestFirst, true
	case "desc", "newest":
		return NewestFirst, true
	default:
		return OldestFirst, false
	}
}

// Turn is one persisted utterance. Turns are immutable once written.
type Turn struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Speaker    Speaker   `json:"speaker"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Sentiment  string    `json:"sentiment"`
	Mood       string    `json:"mood,omitempty"`
	Intent     string    `json:"intent,omitempty"`
	Confidence *float64  `json:"confidence,omitempty"`
	Provider   string    `json:"provider,omitempty"`
}
