// Package semantic implements the similarity strategy against a
// remote semantic-comparison service.
package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"codehosp/internal/verify/comparator"
	"codehosp/pkg/utils/logger"
)

const failedVerdict = "Comparison failed"

// Config holds the remote comparison service settings.
type Config struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Client calls the remote service and degrades to a zero score when
// the service is unreachable. It never surfaces transport errors to
// the comparator.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a semantic comparison client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("comparator base url is required")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

var _ comparator.Strategy = (*Client)(nil)

type compareRequest struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

type compareResponse struct {
	CompositeScore float64 `json:"composite_score"`
	Result         string  `json:"result"`
}

// Score posts both outputs and returns the service's composite score
// and verdict. Any failure yields (0, "Comparison failed").
func (c *Client) Score(ctx context.Context, actual, expected string) (float64, string) {
	payload, err := json.Marshal(compareRequest{Expected: expected, Actual: actual})
	if err != nil {
		return 0, failedVerdict
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return 0, failedVerdict
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warnf(ctx, "semantic comparison unavailable: %v", err)
		return 0, failedVerdict
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warnf(ctx, "semantic comparison returned status %d", resp.StatusCode)
		return 0, failedVerdict
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, failedVerdict
	}

	var decoded compareResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return 0, failedVerdict
	}
	if decoded.CompositeScore < 0 || decoded.CompositeScore > 1 {
		logger.Warnf(ctx, "semantic comparison score out of range: %f", decoded.CompositeScore)
		return 0, failedVerdict
	}
	return decoded.CompositeScore, decoded.Result
}
