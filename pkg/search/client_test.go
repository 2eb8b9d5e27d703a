package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "quantum entanglement", in["query"])
		_ = json.NewEncoder(w).Encode(map[string]string{
			"searchResultsMarkdown": "## Findings\n\nEntangled particles stay correlated.",
		})
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	out, err := c.Search(context.Background(), "quantum entanglement")
	require.NoError(t, err)
	assert.Contains(t, out, "correlated")
}

func TestSearch_NonSuccessStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "q")
	require.Error(t, err)
}

func TestUsable(t *testing.T) {
	cases := []struct {
		result string
		want   bool
	}{
		{"real findings", true},
		{"", false},
		{"   ", false},
		{"Unable to find current information on that.", false},
		{"An error occurred while searching the web.", false},
		{"  Unable to find current information.", false},
		// The sentinels are matched as prefixes, not anywhere in the text.
		{"Results: Unable to find current information was the old message.", true},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, Usable(tc.result), "result: %q", tc.result)
	}
}
