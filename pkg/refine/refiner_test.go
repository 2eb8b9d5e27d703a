package refine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefine_AnaphoricFollowUpBorrowsContext(t *testing.T) {
	r := NewRefiner()
	out := r.Refine("tell me more about it", []string{"What is quantum entanglement"})

	require.Contains(t, out, "quantum")
	require.Contains(t, out, "entanglement")
	// Context keywords come ahead of the anaphoric remainder.
	assert.Less(t, strings.Index(out, "quantum"), strings.Index(out, "more"))
}

func TestRefine_NoPriorTurnsStripsStopWords(t *testing.T) {
	r := NewRefiner()
	assert.Equal(t, "weather tomorrow paris", r.Refine("what is the weather tomorrow in Paris", nil))
}

func TestRefine_AllStopWordsFallsBackToRawQuery(t *testing.T) {
	r := NewRefiner()
	assert.Equal(t, "what is it", r.Refine("what is it", nil))
}

func TestRefine_ContextLimitedToTwoMostRecentTurns(t *testing.T) {
	r := NewRefiner()
	prior := []string{
		"history of rome",
		"orbital mechanics basics",
		"quantum entanglement explained",
	}
	out := r.Refine("tell me more about that", prior)
	assert.Contains(t, out, "quantum")
	assert.NotContains(t, out, "rome")
}

func TestRefine_SkipsPriorTurnEqualToQuery(t *testing.T) {
	r := NewRefiner()
	out := r.Refine("more about that", []string{"black holes", "more about that"})
	assert.Contains(t, out, "black")
}

func TestRefine_PrependsAtMostFiveContextTokens(t *testing.T) {
	r := NewRefiner()
	out := r.Refine("more about it", []string{"alpha beta gamma delta epsilon zeta eta"})
	tokens := strings.Fields(out)
	// 5 context tokens plus the stripped remainder "more about".
	require.Len(t, tokens, 7)
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta", "epsilon"}, tokens[:5])
}

func TestRefine_Deterministic(t *testing.T) {
	r := NewRefiner()
	a := r.Refine("tell me more", []string{"rust borrow checker"})
	b := r.Refine("tell me more", []string{"rust borrow checker"})
	assert.Equal(t, a, b)
}
