package uncertainty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Defaults(t *testing.T) {
	c := NewClassifier(nil)

	cases := []struct {
		text string
		want bool
	}{
		{"I'm not sure about that.", true},
		{"The capital is Paris.", false},
		{"I DON'T KNOW", true},
		{"Honestly, no idea what that refers to.", true},
		{"I cannot provide medical advice.", true},
		{"It might rain tomorrow.", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, c.Uncertain(tc.text), "text: %q", tc.text)
	}
}

func TestClassifier_CustomPhrases(t *testing.T) {
	c := NewClassifier([]string{"cannot answer"})
	assert.True(t, c.Uncertain("Sadly I CANNOT ANSWER that."))
	// Custom lists replace the defaults entirely.
	assert.False(t, c.Uncertain("I don't know."))
}

func TestClassifier_NilReceiverIsTotal(t *testing.T) {
	var c *Classifier
	assert.False(t, c.Uncertain("I don't know"))
}
