package model

import "time"

// Analysis is the result of running the classification pipeline on a URL.
type Analysis struct {
	// URL is the input URL as given by the caller.
	URL string `json:"url"`

	// AnalyzedAt is when the pipeline started.
	AnalyzedAt time.Time `json:"analyzed_at"`

	// Page holds the fetched document when fetching was enabled.
	Page *Page `json:"page,omitempty"`

	// Features is nil when the URL could not be classified.
	Features map[string]float64 `json:"features,omitempty"`

	// Classifiable is false when feature extraction failed. Such pages are
	// never flagged.
	Classifiable bool `json:"classifiable"`

	// Reason explains why the page could not be classified.
	Reason string `json:"reason,omitempty"`

	Votes         map[int]int `json:"votes,omitempty"`
	Score         float64     `json:"score"`
	Label         int         `json:"label"`
	SafetyPercent int         `json:"safety_percent"`
	Tier          string      `json:"tier,omitempty"`

	// Indicators is page evidence found next to the score. It requires a
	// fetched page.
	Indicators []Indicator `json:"indicators,omitempty"`

	// Flagged is true when the score reached the warning threshold.
	Flagged bool `json:"flagged"`

	// ReportID is set when the analysis produced a queued report.
	ReportID string `json:"report_id,omitempty"`

	// Error records a failure in a later pipeline step, such as fetching.
	Error string `json:"error,omitempty"`

	// Steps lists the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`
}

// NewAnalysis creates an Analysis for url with the current time.
func NewAnalysis(url string) *Analysis {
	return &Analysis{
		URL:        url,
		AnalyzedAt: time.Now().UTC(),
	}
}

// MarkUnclassifiable records that no score could be computed for the page.
func (a *Analysis) MarkUnclassifiable(reason string) {
	a.Classifiable = false
	a.Reason = reason
	a.Features = nil
	a.Votes = nil
	a.Score = 0
	a.Label = 0
	a.Flagged = false
}
