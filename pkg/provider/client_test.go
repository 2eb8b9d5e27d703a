package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_PostsRequestAndReturnsBody(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "sk-test")
	require.NoError(t, err)

	body, err := c.Stream(context.Background(), ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{TextMessage("user", "hi")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = body.Close() })

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: [DONE]\n\n", string(raw))

	assert.True(t, got.Stream, "stream must be forced on")
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestStream_MissingCredentialFailsBeforeNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "")
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential")
	assert.False(t, called)
}

func TestStream_UpstreamErrorMessageSurfacesVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "sk-bad")
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Equal(t, "Incorrect API key provided", err.Error())
}

func TestStream_NonJSONErrorBodyFallsBackToStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "sk")
	require.NoError(t, err)
	_, err = c.Stream(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestImageMessage_MultiPartShape(t *testing.T) {
	m := ImageMessage("user", "what is this", "data:image/png;base64,AAAA")
	parts, ok := m.Content.([]ContentPart)
	require.True(t, ok)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "data:image/png;base64,AAAA", parts[1].ImageURL.URL)
}
