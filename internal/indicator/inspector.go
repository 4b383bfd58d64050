package indicator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nao1215/phishscan/internal/model"
)

// Check looks for one kind of evidence in a Document.
type Check interface {
	// Name identifies the check in logs.
	Name() string

	// Inspect returns the indicators found in doc.
	Inspect(doc *Document) []model.Indicator
}

// Inspector runs a set of checks against fetched pages.
type Inspector struct {
	checks []Check
	logger *slog.Logger
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Inspector) {
		i.logger = logger
	}
}

// WithChecks replaces the built-in checks.
func WithChecks(checks ...Check) Option {
	return func(i *Inspector) {
		i.checks = checks
	}
}

// New creates an Inspector with every built-in check registered.
func New(opts ...Option) *Inspector {
	i := &Inspector{
		checks: []Check{
			NewFormCheck(),
			NewScriptCheck(),
			NewRedirectCheck(),
			NewIframeCheck(),
			NewResourceCheck(),
			NewTitleCheck(),
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Register adds a check.
func (i *Inspector) Register(c Check) {
	i.checks = append(i.checks, c)
}

// Inspect parses page and runs every check. Pages that are nil or not HTML
// yield no indicators. The result is ordered by severity, highest first,
// with duplicates removed.
func (i *Inspector) Inspect(ctx context.Context, page *model.Page) ([]model.Indicator, error) {
	if page == nil || !page.IsHTML() || len(page.Raw) == 0 {
		return nil, nil
	}

	pageURL := page.FinalURL
	if pageURL == "" {
		pageURL = page.URL
	}
	doc, err := Parse(page.Raw, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	var found []model.Indicator
	for _, c := range i.checks {
		if err := ctx.Err(); err != nil {
			return found, err
		}
		got := c.Inspect(doc)
		if len(got) > 0 {
			i.logger.Debug("indicators found", "check", c.Name(), "url", pageURL, "count", len(got))
		}
		found = append(found, got...)
	}

	found = deduplicate(found)
	slices.SortStableFunc(found, func(a, b model.Indicator) int {
		return cmp.Compare(b.Severity, a.Severity)
	})
	return found, nil
}

// deduplicate keeps the first indicator for each type and evidence pair.
func deduplicate(indicators []model.Indicator) []model.Indicator {
	seen := make(map[string]struct{}, len(indicators))
	result := make([]model.Indicator, 0, len(indicators))
	for _, ind := range indicators {
		key := ind.Type + "|" + ind.Evidence
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, ind)
	}
	return result
}
