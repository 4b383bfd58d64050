package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/model"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// SimpleWriter outputs human-readable text.
type SimpleWriter struct {
	baseWriter

	// verbose adds the feature values of each analysis.
	verbose bool

	printer *message.Printer
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		printer:    message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteAnalyses implements Writer.
func (w *SimpleWriter) WriteAnalyses(analyses []*model.Analysis) error {
	var sb strings.Builder
	for _, a := range analyses {
		if a == nil {
			continue
		}
		w.writeAnalysis(&sb, a)
	}

	if len(analyses) > 1 {
		s := Summarize(analyses)
		sb.WriteString(strings.Repeat("-", 70))
		sb.WriteString("\n")
		w.printer.Fprintf(&sb, "%d analyzed: %d unsafe, %d suspicious, %d likely safe, %d unclassifiable, %d queued\n",
			s.Total, s.Unsafe, s.Suspicious, s.LikelySafe, s.Unclassifiable, s.Queued)
	}

	_, err := io.WriteString(w.output, sb.String())
	return err
}

func (w *SimpleWriter) writeAnalysis(sb *strings.Builder, a *model.Analysis) {
	fmt.Fprintf(sb, "URL:      %s\n", a.URL)

	if !a.Classifiable {
		fmt.Fprintf(sb, "Verdict:  cannot classify (%s)\n", a.Reason)
	} else {
		fmt.Fprintf(sb, "Verdict:  %s (%d%% safe)\n", a.Tier, a.SafetyPercent)
		fmt.Fprintf(sb, "Score:    %.2f (%d phishing / %d legitimate votes)\n", a.Score, a.Votes[1], a.Votes[0])
	}

	if p := a.Page; p != nil {
		password := "no"
		if p.HasPasswordInput {
			password = "yes"
		}
		fmt.Fprintf(sb, "Page:     HTTP %d, %d form(s), password input: %s\n", p.StatusCode, p.FormCount, password)
		if p.Title != "" {
			fmt.Fprintf(sb, "Title:    %s\n", truncateString(p.Title, 60))
		}
		if p.FinalURL != "" && p.FinalURL != a.URL {
			fmt.Fprintf(sb, "Redirect: %s\n", p.FinalURL)
		}
	}
	if a.ReportID != "" {
		fmt.Fprintf(sb, "Report:   queued as %s\n", a.ReportID)
	}
	if a.Error != "" {
		fmt.Fprintf(sb, "Error:    %s\n", a.Error)
	}
	if len(a.Indicators) > 0 {
		sb.WriteString("Indicators:\n")
		for _, ind := range a.Indicators {
			fmt.Fprintf(sb, "  [%s] %s", ind.SeverityText, ind.Title)
			if ind.Evidence != "" {
				fmt.Fprintf(sb, ": %s", truncateString(ind.Evidence, 60))
			}
			sb.WriteString("\n")
		}
	}

	if w.verbose && len(a.Features) > 0 {
		names := make([]string, 0, len(a.Features))
		for name := range a.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString("Features:\n")
		for _, name := range names {
			fmt.Fprintf(sb, "  %-22s %g\n", name, a.Features[name])
		}
	}
	sb.WriteString("\n")
}

// WriteReports implements Writer.
func (w *SimpleWriter) WriteReports(reports []model.Report) error {
	var sb strings.Builder
	if len(reports) == 0 {
		sb.WriteString("No queued reports.\n")
	} else {
		w.printer.Fprintf(&sb, "%d queued report(s), newest first:\n\n", len(reports))
		for _, r := range reports {
			fmt.Fprintf(&sb, "  %s  %.2f  %s\n", r.TS.Format(timeLayout), r.Score, r.URL)
			fmt.Fprintf(&sb, "      id: %s\n", r.ID)
		}
	}
	_, err := io.WriteString(w.output, sb.String())
	return err
}

// WriteHistory implements Writer.
func (w *SimpleWriter) WriteHistory(entries []database.AnalysisMetadata) error {
	var sb strings.Builder
	if len(entries) == 0 {
		sb.WriteString("No analyses recorded.\n")
	} else {
		for _, e := range entries {
			tier := e.Tier
			if tier == "" {
				tier = "-"
			}
			fmt.Fprintf(&sb, "#%-5d %s  %-12s %.2f  %s\n", e.ID, e.Timestamp.Format(timeLayout), tier, e.Score, e.URL)
		}
	}
	_, err := io.WriteString(w.output, sb.String())
	return err
}
