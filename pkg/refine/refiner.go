package refine

import "strings"

// stopWords is the closed set stripped from queries before refinement.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "do": {}, "does": {}, "did": {}, "can": {},
	"could": {}, "will": {}, "would": {}, "should": {}, "i": {}, "you": {},
	"he": {}, "she": {}, "it": {}, "we": {}, "they": {}, "me": {}, "my": {},
	"your": {}, "of": {}, "to": {}, "in": {}, "on": {}, "at": {}, "for": {},
	"with": {}, "and": {}, "or": {}, "but": {}, "what": {}, "which": {},
	"who": {}, "how": {}, "when": {}, "where": {}, "why": {}, "please": {},
	"tell": {}, "give": {}, "show": {},
}

// anaphoricCues mark a terse follow-up that leans on prior context.
var anaphoricCues = []string{"more", "about it", "that", "this"}

const (
	shortQueryTokens   = 3
	maxContextTokens   = 5
	maxContextTurns    = 2
	strippedRatioBound = 0.7
)

// Refiner folds conversational context into terse follow-up queries before
// they are handed to the search collaborator. Pure and stateless.
type Refiner struct{}

func NewRefiner() *Refiner { return &Refiner{} }

// Refine produces the search query for rawQuery given the user's prior
// turns, most recent last. It never fails; when refinement collapses to an
// empty string the raw query is returned unchanged.
func (r *Refiner) Refine(rawQuery string, priorUserTurns []string) string {
	stripped := stripStopWords(rawQuery)
	context := contextKeywords(rawQuery, priorUserTurns)

	query := stripped
	switch {
	case len(strings.Fields(stripped)) <= shortQueryTokens && hasAnaphoricCue(rawQuery) && context != "":
		query = prependContext(context, stripped)
	case context != "" && float64(len(stripped)) < strippedRatioBound*float64(len(rawQuery)):
		// Aggressive stripping on a short follow-up loses the subject, so
		// borrow it from the recent turns.
		query = prependContext(context, stripped)
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return strings.TrimSpace(rawQuery)
	}
	return query
}

// contextKeywords collects stripped keywords from up to the two most recent
// prior user turns that differ from the current query.
func contextKeywords(rawQuery string, priorUserTurns []string) string {
	var parts []string
	for i := len(priorUserTurns) - 1; i >= 0 && len(parts) < maxContextTurns; i-- {
		turn := priorUserTurns[i]
		if strings.EqualFold(strings.TrimSpace(turn), strings.TrimSpace(rawQuery)) {
			continue
		}
		if s := stripStopWords(turn); s != "" {
			parts = append(parts, s)
		}
	}
	// Most recent turn first.
	return strings.TrimSpace(strings.Join(parts, " "))
}

func prependContext(context, query string) string {
	tokens := strings.Fields(context)
	if len(tokens) > maxContextTokens {
		tokens = tokens[:maxContextTokens]
	}
	return strings.TrimSpace(strings.Join(tokens, " ") + " " + query)
}

func hasAnaphoricCue(q string) bool {
	lowered := strings.ToLower(q)
	for _, cue := range anaphoricCues {
		if strings.Contains(lowered, cue) {
			return true
		}
	}
	return false
}

func stripStopWords(s string) string {
	var kept []string
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		trimmed := strings.Trim(tok, ".,!?;:\"'()[]")
		if trimmed == "" {
			continue
		}
		if _, ok := stopWords[trimmed]; ok {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}
