package report

import (
	"io"

	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/forest"
	"github.com/nao1215/phishscan/internal/model"
)

// Writer renders results to an output.
type Writer interface {
	// WriteAnalyses renders classification results.
	WriteAnalyses(analyses []*model.Analysis) error

	// WriteReports renders the queued reports, newest first.
	WriteReports(reports []model.Report) error

	// WriteHistory renders stored analyses, newest first.
	WriteHistory(entries []database.AnalysisMetadata) error
}

// MultiWriter writes to several Writers, stopping at the first error.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteAnalyses implements Writer.
func (m *MultiWriter) WriteAnalyses(analyses []*model.Analysis) error {
	for _, w := range m.writers {
		if err := w.WriteAnalyses(analyses); err != nil {
			return err
		}
	}
	return nil
}

// WriteReports implements Writer.
func (m *MultiWriter) WriteReports(reports []model.Report) error {
	for _, w := range m.writers {
		if err := w.WriteReports(reports); err != nil {
			return err
		}
	}
	return nil
}

// WriteHistory implements Writer.
func (m *MultiWriter) WriteHistory(entries []database.AnalysisMetadata) error {
	for _, w := range m.writers {
		if err := w.WriteHistory(entries); err != nil {
			return err
		}
	}
	return nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// Summary counts analyses per outcome.
type Summary struct {
	Total          int `json:"total"`
	Unsafe         int `json:"unsafe"`
	Suspicious     int `json:"suspicious"`
	LikelySafe     int `json:"likely_safe"`
	Unclassifiable int `json:"unclassifiable"`
	Queued         int `json:"queued"`
}

// Summarize counts analyses. Nil entries are skipped.
func Summarize(analyses []*model.Analysis) Summary {
	var s Summary
	for _, a := range analyses {
		if a == nil {
			continue
		}
		s.Total++
		if a.ReportID != "" {
			s.Queued++
		}
		if !a.Classifiable {
			s.Unclassifiable++
			continue
		}
		switch forest.Tier(a.Tier) {
		case forest.TierUnsafe:
			s.Unsafe++
		case forest.TierSuspicious:
			s.Suspicious++
		default:
			s.LikelySafe++
		}
	}
	return s
}

// Flagged reports whether any analysis reached the warning threshold.
func (s Summary) Flagged() bool {
	return s.Unsafe+s.Suspicious > 0
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
