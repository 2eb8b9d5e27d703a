package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Message is one role/content pair sent to the generation endpoint. Content
// is either a plain string or, for image-bearing turns, a []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart is one element of a multi-part message content.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// TextMessage builds a plain text message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: text}
}

// ImageMessage builds a multi-part message carrying a caption and an inline
// image data URI.
func ImageMessage(role, caption, dataURI string) Message {
	return Message{Role: role, Content: []ContentPart{
		{Type: "text", Text: caption},
		{Type: "image_url", ImageURL: &ImageURL{URL: dataURI}},
	}}
}

// ChatRequest is the generation endpoint's request shape.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to an OpenAI-style chat completion endpoint.
type Client struct {
	baseURL    string
	credential string
	httpClient *http.Client
}

// NewClient builds a client for baseURL. The credential may be empty here;
// Stream rejects requests without one before touching the network.
func NewClient(baseURL, credential string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("provider: base URL is empty")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		credential: credential,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Stream POSTs req with stream enabled and returns the raw event-stream body
// on success. The caller owns closing the returned body.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	if c == nil {
		return nil, errors.New("provider: nil client")
	}
	if strings.TrimSpace(c.credential) == "" {
		return nil, errors.New("provider: missing credential, configure an API key first")
	}
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "provider: encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "provider: build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.credential)

	log.Debug().Str("component", "provider").Str("model", req.Model).Int("messages", len(req.Messages)).Msg("issuing generation request")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "provider: request failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		return nil, errors.New(upstreamError(resp))
	}
	if resp.Body == nil {
		return nil, errors.New("provider: response has no body")
	}
	return resp.Body, nil
}

// upstreamError surfaces the endpoint's own message verbatim when present.
func upstreamError(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil {
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
			return env.Error.Message
		}
	}
	return fmt.Sprintf("provider returned status %d", resp.StatusCode)
}
