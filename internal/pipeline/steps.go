package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/phishscan/internal/feature"
	"github.com/nao1215/phishscan/internal/forest"
	"github.com/nao1215/phishscan/internal/model"
	"github.com/nao1215/phishscan/internal/page"
)

// PageFetcher downloads a page for analysis.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*model.Page, error)
}

// ThresholdSource supplies the block and warn thresholds.
type ThresholdSource interface {
	Thresholds(ctx context.Context) (forest.Thresholds, error)
}

// ReportQueue receives reports for flagged pages.
type ReportQueue interface {
	Append(ctx context.Context, r model.Report) error
}

// PageInspector looks for phishing indicators in a fetched page.
type PageInspector interface {
	Inspect(ctx context.Context, page *model.Page) ([]model.Indicator, error)
}

// AnalysisStore records finished analyses.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, a *model.Analysis) error
}

// StaticThresholds is a ThresholdSource that always returns itself.
type StaticThresholds forest.Thresholds

// Thresholds implements ThresholdSource.
func (t StaticThresholds) Thresholds(_ context.Context) (forest.Thresholds, error) {
	return forest.Thresholds(t), nil
}

// FetchStep downloads the page so DOM signals can be extracted. A failed
// fetch is not fatal: the page is classified on its URL alone.
type FetchStep struct {
	fetcher PageFetcher
	logger  *slog.Logger
}

// NewFetchStep creates a FetchStep.
func NewFetchStep(fetcher PageFetcher, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, a *model.Analysis) error {
	p, err := s.fetcher.Fetch(ctx, a.URL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("fetch failed, classifying on URL only", "url", a.URL, "error", err)
		a.Error = fmt.Sprintf("fetch: %v", err)
		return nil
	}
	a.Page = p
	return nil
}

// IndicatorStep attaches page indicators to the analysis. Indicators are
// informational and a failed inspection is only logged.
type IndicatorStep struct {
	inspector PageInspector
	logger    *slog.Logger
}

// NewIndicatorStep creates an IndicatorStep.
func NewIndicatorStep(inspector PageInspector, logger *slog.Logger) *IndicatorStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndicatorStep{inspector: inspector, logger: logger}
}

// Name returns the step name.
func (s *IndicatorStep) Name() string {
	return "indicators"
}

// Do executes the indicator step.
func (s *IndicatorStep) Do(ctx context.Context, a *model.Analysis) error {
	if a.Page == nil {
		return nil
	}
	found, err := s.inspector.Inspect(ctx, a.Page)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		s.logger.Warn("page inspection failed", "url", a.URL, "error", err)
		return nil
	}
	a.Indicators = found
	return nil
}

// ExtractStep computes the feature map from the URL and any fetched page.
// When the fetch followed redirects, the final URL is the one scored.
type ExtractStep struct {
	logger *slog.Logger
}

// NewExtractStep creates an ExtractStep.
func NewExtractStep(logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extract step.
func (s *ExtractStep) Do(_ context.Context, a *model.Analysis) error {
	target := a.URL
	if a.Page != nil && a.Page.FinalURL != "" {
		target = a.Page.FinalURL
	}

	features, err := feature.Extract(target, page.Signals(a.Page))
	if err != nil {
		if errors.Is(err, feature.ErrMalformedURL) {
			s.logger.Info("cannot classify page", "url", target, "error", err)
			a.MarkUnclassifiable(err.Error())
			return nil
		}
		return fmt.Errorf("failed to extract features: %w", err)
	}
	a.Features = features
	a.Classifiable = true
	return nil
}

// ClassifyStep scores the features with the forest model and assigns a tier.
// The model is loaded on first use.
type ClassifyStep struct {
	classifier *forest.Classifier
	thresholds ThresholdSource
}

// NewClassifyStep creates a ClassifyStep. A nil thresholds source uses
// forest.DefaultThresholds.
func NewClassifyStep(loader *forest.Loader, thresholds ThresholdSource) *ClassifyStep {
	if thresholds == nil {
		thresholds = StaticThresholds(forest.DefaultThresholds())
	}
	return &ClassifyStep{classifier: forest.NewClassifier(loader), thresholds: thresholds}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do executes the classify step.
func (s *ClassifyStep) Do(ctx context.Context, a *model.Analysis) error {
	if !a.Classifiable {
		return nil
	}

	result, err := s.classifier.Classify(ctx, a.Features)
	if err != nil {
		var loadErr *forest.LoadError
		if errors.As(err, &loadErr) {
			return err
		}
		return fmt.Errorf("failed to classify: %w", err)
	}

	t, err := s.thresholds.Thresholds(ctx)
	if err != nil {
		return err
	}
	assessment := forest.Assess(result.Score, t)

	a.Votes = result.Votes
	a.Score = result.Score
	a.Label = result.Label
	a.SafetyPercent = assessment.SafetyPercent
	a.Tier = string(assessment.Tier)
	a.Flagged = assessment.Flagged
	return nil
}

// ReportStep queues a report for flagged pages.
type ReportStep struct {
	queue  ReportQueue
	logger *slog.Logger
}

// NewReportStep creates a ReportStep.
func NewReportStep(queue ReportQueue, logger *slog.Logger) *ReportStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportStep{queue: queue, logger: logger}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return "report"
}

// Do executes the report step.
func (s *ReportStep) Do(ctx context.Context, a *model.Analysis) error {
	if !a.Flagged {
		return nil
	}

	r, err := model.NewReport(a.URL, a.Score, model.ReportExtra{
		Features: a.Features,
		Votes:    a.Votes,
		Reason:   a.Tier,
	})
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := s.queue.Append(ctx, r); err != nil {
		return err
	}
	a.ReportID = r.ID
	s.logger.Info("queued suspect report", "url", a.URL, "score", a.Score, "id", r.ID)
	return nil
}

// HistoryStep saves the analysis to the local history.
type HistoryStep struct {
	store AnalysisStore
}

// NewHistoryStep creates a HistoryStep.
func NewHistoryStep(store AnalysisStore) *HistoryStep {
	return &HistoryStep{store: store}
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do executes the history step.
func (s *HistoryStep) Do(ctx context.Context, a *model.Analysis) error {
	return s.store.SaveAnalysis(ctx, a)
}
