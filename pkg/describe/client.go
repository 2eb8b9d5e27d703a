package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client wraps the two single-shot collaborators that turn an uploaded
// attachment into text: document summary and image description. Both are
// plain request/response calls with no orchestration behind them.
type Client struct {
	summaryEndpoint  string
	describeEndpoint string
	httpClient       *http.Client
}

func NewClient(summaryEndpoint, describeEndpoint string) (*Client, error) {
	if strings.TrimSpace(summaryEndpoint) == "" && strings.TrimSpace(describeEndpoint) == "" {
		return nil, errors.New("describe: no endpoints configured")
	}
	return &Client{
		summaryEndpoint:  summaryEndpoint,
		describeEndpoint: describeEndpoint,
		httpClient:       &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// SummarizeDocument sends a base64 data URI of a document and returns the
// collaborator's summary.
func (c *Client) SummarizeDocument(ctx context.Context, dataURI string) (string, error) {
	if c == nil {
		return "", errors.New("describe: nil client")
	}
	if c.summaryEndpoint == "" {
		return "", errors.New("describe: summary endpoint not configured")
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, c.summaryEndpoint, dataURI, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// DescribeImage sends a base64 image data URI and returns the
// collaborator's description.
func (c *Client) DescribeImage(ctx context.Context, dataURI string) (string, error) {
	if c == nil {
		return "", errors.New("describe: nil client")
	}
	if c.describeEndpoint == "" {
		return "", errors.New("describe: describe endpoint not configured")
	}
	var out struct {
		Description string `json:"description"`
	}
	if err := c.post(ctx, c.describeEndpoint, dataURI, &out); err != nil {
		return "", err
	}
	return out.Description, nil
}

func (c *Client) post(ctx context.Context, endpoint, dataURI string, out any) error {
	body, err := json.Marshal(map[string]string{"data": dataURI})
	if err != nil {
		return errors.Wrap(err, "describe: encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "describe: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "describe: request failed")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("describe: collaborator returned status %d", resp.StatusCode)
	}
	return errors.Wrap(json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out), "describe: decode response")
}
