package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/model"
)

// JSONWriter outputs JSON documents.
type JSONWriter struct {
	baseWriter

	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AnalysesDocument is the JSON shape of WriteAnalyses.
type AnalysesDocument struct {
	Summary  Summary           `json:"summary"`
	Analyses []*model.Analysis `json:"analyses"`
}

// historyEntry is the JSON shape of one history row.
type historyEntry struct {
	ID        int64   `json:"id"`
	URL       string  `json:"url"`
	Timestamp string  `json:"timestamp"`
	Score     float64 `json:"score"`
	Tier      string  `json:"tier,omitempty"`
}

// WriteAnalyses implements Writer.
func (w *JSONWriter) WriteAnalyses(analyses []*model.Analysis) error {
	if analyses == nil {
		analyses = []*model.Analysis{}
	}
	return w.writeJSON(AnalysesDocument{Summary: Summarize(analyses), Analyses: analyses})
}

// WriteReports implements Writer. The output has the collector upload shape.
func (w *JSONWriter) WriteReports(reports []model.Report) error {
	if reports == nil {
		reports = []model.Report{}
	}
	return w.writeJSON(struct {
		Reports []model.Report `json:"reports"`
	}{Reports: reports})
}

// WriteHistory implements Writer.
func (w *JSONWriter) WriteHistory(entries []database.AnalysisMetadata) error {
	out := make([]historyEntry, len(entries))
	for i, e := range entries {
		out[i] = historyEntry{
			ID:        e.ID,
			URL:       e.URL,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Score:     e.Score,
			Tier:      e.Tier,
		}
	}
	return w.writeJSON(struct {
		History []historyEntry `json:"history"`
	}{History: out})
}

func (w *JSONWriter) writeJSON(v any) error {
	enc := json.NewEncoder(w.output)
	if w.indent != "" {
		enc.SetIndent("", w.indent)
	}
	return enc.Encode(v)
}
