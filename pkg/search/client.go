package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sentinel phrases the collaborator returns in-band instead of an error.
// Recognition is exact-prefix on the trimmed result, unusable results are
// appended to the answer as a note rather than triggering a second round.
const (
	SentinelNoResults   = "Unable to find current information"
	SentinelSearchError = "An error occurred while searching"
)

// FallbackNote is appended to the primary answer when the collaborator
// produced nothing usable at all.
const FallbackNote = "Web search did not return any additional information."

// Searcher is the collaborator contract consumed by the orchestrator.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Client calls the HTTP search collaborator.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ Searcher = &Client{}

func NewClient(endpoint string) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("search: endpoint is empty")
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Search submits query and returns the collaborator's markdown findings,
// which may be one of the sentinel failure phrases.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	if c == nil {
		return "", errors.New("search: nil client")
	}
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return "", errors.Wrap(err, "search: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "search: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug().Str("component", "search").Str("query", query).Msg("calling search collaborator")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "search: request failed")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("search: collaborator returned status %d", resp.StatusCode)
	}
	var out struct {
		SearchResultsMarkdown string `json:"searchResultsMarkdown"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", errors.Wrap(err, "search: decode response")
	}
	return out.SearchResultsMarkdown, nil
}

// Usable reports whether a search result carries real findings rather than
// being empty or one of the known failure sentinels.
func Usable(result string) bool {
	trimmed := strings.TrimSpace(result)
	if trimmed == "" {
		return false
	}
	return !strings.HasPrefix(trimmed, SentinelNoResults) && !strings.HasPrefix(trimmed, SentinelSearchError)
}
