package uncertainty

import "strings"

// DefaultPhrases are the literal markers an answer is scanned for. Matching
// is exact-substring on the lower-cased text; the list is deliberately
// closed, answers hedging in other words are not flagged.
var DefaultPhrases = []string{
	"i don't know",
	"i do not know",
	"i'm not sure",
	"i am not sure",
	"no idea",
	"i cannot provide",
	"i can't provide",
	"i'm unable to",
	"i am unable to",
	"i don't have information",
	"i do not have information",
	"i'm not familiar",
	"i am not familiar",
}

// Classifier decides whether an answer expresses a lack of knowledge.
type Classifier struct {
	phrases []string
}

// NewClassifier builds a classifier over phrases, falling back to
// DefaultPhrases when none are given. Phrases are matched lower-cased.
func NewClassifier(phrases []string) *Classifier {
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		lowered = append(lowered, p)
	}
	return &Classifier{phrases: lowered}
}

// Uncertain reports whether text contains any uncertainty phrase. Pure and
// total; first match short-circuits.
func (c *Classifier) Uncertain(text string) bool {
	if c == nil {
		return false
	}
	lowered := strings.ToLower(text)
	for _, p := range c.phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
