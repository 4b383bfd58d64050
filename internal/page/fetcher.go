// Package page fetches a single web page and reduces it to the signals the
// classifier consumes.
package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nao1215/phishscan/internal/feature"
	"github.com/nao1215/phishscan/internal/model"
	"github.com/nao1215/phishscan/internal/tor"
)

// DefaultUserAgent mimics a desktop browser; phishing kits often serve a
// harmless page to obvious bots.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

var (
	// ErrUnsupportedScheme is returned for URLs other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme: only http and https can be fetched")

	// ErrOnionWithoutTor is returned for .onion URLs when the fetcher does
	// not route through Tor.
	ErrOnionWithoutTor = errors.New("onion addresses can only be fetched through Tor (use --tor)")

	// ErrInvalidOnionAddress is returned for .onion hosts that are not valid
	// v3 addresses. Tor would spend its full timeout failing to reach them.
	ErrInvalidOnionAddress = errors.New("invalid v3 onion address")
)

// Fetcher downloads pages.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	viaTor      bool
	logger      *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets how many body bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithTor marks the client as routed through Tor, which allows .onion URLs.
func WithTor(viaTor bool) Option {
	return func(f *Fetcher) {
		f.viaTor = viaTor
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher using client. A nil client means a plain
// HTTP client with a 30 second timeout.
func NewFetcher(client *http.Client, opts ...Option) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	f := &Fetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: model.MaxPageSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads rawURL and parses it when the response is HTML.
// Non-2xx responses are returned as pages, not errors: phishing pages are
// sometimes served with error statuses.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*model.Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrUnsupportedScheme
	}
	if tor.IsOnionHost(u.Hostname()) {
		if !f.viaTor {
			return nil, ErrOnionWithoutTor
		}
		if !tor.IsValidV3Address(u.Hostname()) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidOnionAddress, u.Hostname())
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	// Read one byte past the limit to detect truncation.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	p := &model.Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if int64(len(body)) > f.maxBodySize {
		body = body[:f.maxBodySize]
		p.Truncated = true
	}
	p.Raw = body
	p.ComputeHash()

	if p.IsHTML() {
		doc, err := feature.ParseDocument(bytes.NewReader(body))
		if err == nil {
			p.Title = doc.Title
			p.FormCount = doc.Signals.FormCount
			p.HasPasswordInput = doc.Signals.HasPasswordInput
		}
	}

	f.logger.Debug("fetched page",
		"url", rawURL,
		"final_url", p.FinalURL,
		"status", p.StatusCode,
		"bytes", len(body),
		"duration", time.Since(start))
	return p, nil
}

// Signals returns the DOM signals of p.
func Signals(p *model.Page) feature.DOMSignals {
	if p == nil {
		return feature.DOMSignals{}
	}
	return feature.DOMSignals{FormCount: p.FormCount, HasPasswordInput: p.HasPasswordInput}
}
