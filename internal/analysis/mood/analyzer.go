// Package mood infers the tone of an exchange for the mood_label stored with
// each conversation turn.
package mood

import (
	"math"
	"strings"

	"github.com/zhouzirui/aria/backend/internal/analysis/text"
)

// Label is the mood attached to a turn.
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Excited  Label = "excited"
	Tender   Label = "tender"
	Comfort  Label = "comfort"
	Romantic Label = "romantic"
)

// Decision is the detected mood and its intensity on a 1-5 scale.
type Decision struct {
	Mood  Label   `json:"mood"`
	Scale float32 `json:"scale"`
	Score int     `json:"score"`
}

type bucket struct {
	label    Label
	keywords []string
}

// ordered so equal scores resolve the same way on every call
var keywordBuckets = []bucket{
	{Romantic, []string{"love", "miss you", "adore", "kiss", "darling", "sweetheart", "romantic", "babe", "honey", "cuddle"}},
	{Happy, []string{"happy", "glad", "great", "awesome", "lol", "haha", "thanks", "thank you", "yay", "fun", "smile", "enjoy", "nice"}},
	{Sad, []string{"sad", "unhappy", "cry", "crying", "depressed", "lonely", "hurt", "upset", "miserable", "heartbroken", "bad day", "alone"}},
	{Angry, []string{"angry", "furious", "mad", "annoyed", "hate", "rage", "pissed", "fed up", "sick of"}},
	{Excited, []string{"excited", "can't wait", "wow", "amazing", "incredible", "omg", "unbelievable", "hype", "thrilled"}},
	{Tender, []string{"gentle", "soft", "calm", "quiet", "peaceful", "slowly", "relax", "cozy", "warm"}},
	{Comfort, []string{"don't worry", "it's okay", "i'm here", "here for you", "you're safe", "take it easy", "breathe", "hug", "support"}},
}

var punctuationBoost = map[Label]int{
	Happy:   2,
	Excited: 3,
}

// Analyze infers the mood from the user message and the reply. The reply
// wins when it carries a mood; otherwise the user's mood is mapped to the
// tone the reply should take.
func Analyze(userUtterance, replyUtterance string) Decision {
	userScore := scoreText(userUtterance)
	replyScore := scoreText(replyUtterance)

	final := replyScore
	if final.Score == 0 && userScore.Score > 0 {
		final = coerceFromUser(userScore)
	}

	if final.Score == 0 {
		return Decision{Mood: Neutral, Scale: 3, Score: 0}
	}

	scale := 2 + float32(final.Score)/4
	switch final.Mood {
	case Excited:
		scale++
	case Comfort, Tender:
		scale = float32(math.Min(3.5, float64(scale)))
	}
	if scale < 1 {
		scale = 1
	}
	if scale > 5 {
		scale = 5
	}

	return Decision{Mood: final.Mood, Scale: scale, Score: final.Score}
}

func scoreText(s string) Decision {
	if strings.TrimSpace(s) == "" {
		return Decision{Mood: Neutral}
	}

	m := text.NewMatcher(s)
	scores := make(map[Label]int, len(keywordBuckets))
	for _, b := range keywordBuckets {
		for _, kw := range b.keywords {
			if m.Has(kw) {
				scores[b.label] += 3
			}
		}
	}

	if exclamations := strings.Count(s, "!"); exclamations > 0 {
		scores[Excited] += exclamations * punctuationBoost[Excited]
		if exclamations == 1 {
			scores[Happy] += punctuationBoost[Happy]
		}
	}

	best := Neutral
	bestScore := 0
	for _, b := range keywordBuckets {
		if v := scores[b.label]; v > bestScore {
			bestScore = v
			best = b.label
		}
	}
	if bestScore == 0 {
		return Decision{Mood: Neutral}
	}
	return Decision{Mood: best, Score: bestScore}
}

func coerceFromUser(user Decision) Decision {
	switch user.Mood {
	case Sad:
		return Decision{Mood: Comfort, Score: user.Score}
	case Angry:
		return Decision{Mood: Tender, Score: user.Score}
	default:
		return user
	}
}
