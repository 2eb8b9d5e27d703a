package describe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "data:application/pdf;base64,AAAA", in["data"])
		_ = json.NewEncoder(w).Encode(map[string]string{"summary": "A short report."})
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "")
	require.NoError(t, err)
	out, err := c.SummarizeDocument(context.Background(), "data:application/pdf;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "A short report.", out)
}

func TestDescribeImage_UnconfiguredEndpointFails(t *testing.T) {
	c, err := NewClient("http://localhost/summary", "")
	require.NoError(t, err)
	_, err = c.DescribeImage(context.Background(), "data:image/png;base64,AAAA")
	require.Error(t, err)
}

func TestNewClient_RequiresAnEndpoint(t *testing.T) {
	_, err := NewClient("", " ")
	require.Error(t, err)
}
