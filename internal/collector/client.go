package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nao1215/phishscan/internal/model"
)

// maxErrorDetail caps how much of an error response body is kept.
const maxErrorDetail = 4 * 1024

// UploadRequest is the body sent to the collector.
type UploadRequest struct {
	Reports []model.Report `json:"reports"`
}

// UploadResponse is the body returned by the collector.
type UploadResponse struct {
	OK     bool   `json:"ok"`
	Stored int    `json:"stored"`
	Error  string `json:"error,omitempty"`
}

// Client uploads reports to a collector.
type Client struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client, for example one routed through Tor.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cl *Client) {
		cl.userAgent = ua
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// NewClient creates a Client with a 30 second timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload posts reports to endpoint in a single request.
// It returns the count acknowledged by the collector, falling back to
// len(reports) when a successful response has no parseable body.
// A 2xx body that says "ok": false is still a failure.
// Every failure is an *UploadError. Nothing is retried.
func (c *Client) Upload(ctx context.Context, endpoint string, reports []model.Report) (int, error) {
	if reports == nil {
		reports = []model.Report{}
	}
	body, err := json.Marshal(UploadRequest{Reports: reports})
	if err != nil {
		return 0, &UploadError{Err: fmt.Errorf("failed to encode reports: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, &UploadError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &UploadError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorDetail)) //nolint:errcheck // best effort

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(data))
		var r UploadResponse
		if json.Unmarshal(data, &r) == nil && r.Error != "" {
			detail = r.Error
		}
		return 0, &UploadError{StatusCode: resp.StatusCode, Detail: detail}
	}

	stored := len(reports)
	var ack struct {
		OK     *bool  `json:"ok"`
		Stored int    `json:"stored"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(data, &ack) == nil && ack.OK != nil {
		if !*ack.OK {
			return 0, &UploadError{StatusCode: resp.StatusCode, Detail: ack.Error}
		}
		stored = ack.Stored
	}
	c.logger.Debug("reports uploaded", "endpoint", endpoint, "sent", len(reports), "stored", stored)
	return stored, nil
}
