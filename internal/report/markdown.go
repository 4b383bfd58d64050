package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/phishscan/internal/database"
	"github.com/nao1215/phishscan/internal/model"
)

// MarkdownWriter outputs GitHub flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// WriteAnalyses implements Writer.
func (w *MarkdownWriter) WriteAnalyses(analyses []*model.Analysis) error {
	md := markdown.NewMarkdown(w.output)
	s := Summarize(analyses)

	md.H1("Phishing Scan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows: [][]string{
			{"🔴 Unsafe", strconv.Itoa(s.Unsafe)},
			{"🟡 Suspicious", strconv.Itoa(s.Suspicious)},
			{"🟢 Likely safe", strconv.Itoa(s.LikelySafe)},
			{"⚪ Cannot classify", strconv.Itoa(s.Unclassifiable)},
			{"**Total**", "**" + strconv.Itoa(s.Total) + "**"},
		},
	})
	md.PlainText("")

	if s.Total > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, s)

	md.H2("Results")
	md.PlainText("")
	if s.Total == 0 {
		md.PlainText("No URLs were analyzed.")
		md.PlainText("")
	} else {
		w.writeResultsTable(md, analyses)
	}
	w.writeIndicators(md, analyses)

	w.writeFooter(md)
	return md.Build()
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdicts"),
		piechart.WithShowData(true),
	)
	for _, slice := range []struct {
		label string
		count int
	}{
		{"Unsafe", s.Unsafe},
		{"Suspicious", s.Suspicious},
		{"Likely safe", s.LikelySafe},
		{"Cannot classify", s.Unclassifiable},
	} {
		if slice.count > 0 {
			chart.LabelAndIntValue(slice.label, uint64(slice.count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s Summary) {
	switch {
	case s.Unsafe > 0:
		md.Cautionf("%d page(s) look like phishing. Do not enter credentials on them.", s.Unsafe)
	case s.Suspicious > 0:
		md.Warningf("%d page(s) are suspicious and were queued for review.", s.Suspicious)
	case s.Unclassifiable > 0 && s.Unclassifiable == s.Total:
		md.Note("None of the URLs could be classified.")
	default:
		md.Tip("No phishing indicators found.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeResultsTable(md *markdown.Markdown, analyses []*model.Analysis) {
	rows := make([][]string, 0, len(analyses))
	for _, a := range analyses {
		if a == nil {
			continue
		}
		verdict, safety, score := "Cannot classify", "-", "-"
		if a.Classifiable {
			verdict = a.Tier
			safety = strconv.Itoa(a.SafetyPercent) + "%"
			score = fmt.Sprintf("%.2f", a.Score)
		}
		queued := "-"
		if a.ReportID != "" {
			queued = "yes"
		}
		rows = append(rows, []string{
			"`" + truncateString(a.URL, 60) + "`",
			verdict,
			safety,
			score,
			queued,
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Verdict", "Safety", "Score", "Queued"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, a := range analyses {
		if a == nil {
			continue
		}
		if a.Reason != "" {
			md.Details(a.URL, a.Reason)
		} else if a.Error != "" {
			md.Details(a.URL, a.Error)
		}
	}
}

func (w *MarkdownWriter) writeIndicators(md *markdown.Markdown, analyses []*model.Analysis) {
	var rows [][]string
	for _, a := range analyses {
		if a == nil {
			continue
		}
		for _, ind := range a.Indicators {
			rows = append(rows, []string{
				"`" + truncateString(a.URL, 60) + "`",
				ind.SeverityText,
				ind.Title,
				truncateString(ind.Evidence, 60),
			})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Indicators")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Severity", "Indicator", "Evidence"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteReports implements Writer.
func (w *MarkdownWriter) WriteReports(reports []model.Report) error {
	md := markdown.NewMarkdown(w.output)
	md.H1("Queued Reports")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No queued reports.")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			r.TS.Format(timeLayout),
			"`" + truncateString(r.URL, 60) + "`",
			fmt.Sprintf("%.2f", r.Score),
			"`" + r.ID + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Time", "URL", "Score", "ID"},
		Rows:   rows,
	})
	md.PlainText("")
	w.writeFooter(md)
	return md.Build()
}

// WriteHistory implements Writer.
func (w *MarkdownWriter) WriteHistory(entries []database.AnalysisMetadata) error {
	md := markdown.NewMarkdown(w.output)
	md.H1("Analysis History")
	md.PlainText("")

	if len(entries) == 0 {
		md.PlainText("No analyses recorded.")
		md.PlainText("")
		return md.Build()
	}

	rows := make([][]string, len(entries))
	for i, e := range entries {
		tier := e.Tier
		if tier == "" {
			tier = "-"
		}
		rows[i] = []string{
			strconv.FormatInt(e.ID, 10),
			e.Timestamp.Format(timeLayout),
			"`" + truncateString(e.URL, 60) + "`",
			tier,
			fmt.Sprintf("%.2f", e.Score),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Time", "URL", "Verdict", "Score"},
		Rows:   rows,
	})
	md.PlainText("")
	return md.Build()
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [phishscan](https://github.com/nao1215/phishscan)*")
}
