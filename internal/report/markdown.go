package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/urlscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing, for example as a
// ticket comment when a reported link is triaged.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("urlscan Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + escapeCode(report.URL) + "`"},
			{"Domain", orDash(report.Domain)},
			{"Scan Date", report.ScannedAt.Format("2006-01-02 15:04:05 MST")},
			{"Risk Score", strconv.Itoa(report.RiskScore) + "/100"},
			{"Verdict", verdictBadge(report.Verdict)},
			{"ML Confidence", confidenceText(report)},
		},
	})
	md.PlainText("")

	w.writeAlert(md, report.Verdict, report.RiskScore)

	md.H2("Reasons")
	md.PlainText("")
	md.BulletList(report.Reasons...)
	md.PlainText("")

	if report.Features != nil {
		w.writeFeatures(md, report.Features)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs a batch summary in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.BatchSummary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("urlscan Batch Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Verdict", "Count"},
		Rows: [][]string{
			{verdictBadge(model.VerdictMalicious), strconv.Itoa(summary.MaliciousCount)},
			{verdictBadge(model.VerdictSuspicious), strconv.Itoa(summary.SuspiciousCount)},
			{verdictBadge(model.VerdictSafe), strconv.Itoa(summary.SafeCount)},
			{"**Total**", "**" + strconv.Itoa(summary.Total) + "**"},
		},
	})
	md.PlainText("")

	if summary.Total > 0 {
		w.writePieChart(md, summary)
	}

	switch {
	case summary.MaliciousCount > 0:
		md.Cautionf("%d of %d URLs are malicious. Block them before they reach users.",
			summary.MaliciousCount, summary.Total)
	case summary.SuspiciousCount > 0:
		md.Warningf("%d of %d URLs are suspicious and should be reviewed.",
			summary.SuspiciousCount, summary.Total)
	default:
		md.Tip("No suspicious URLs detected.")
	}
	md.PlainText("")

	md.H2("Results")
	md.PlainText("")

	rows := make([][]string, len(summary.Reports))
	for i, r := range summary.Reports {
		rows[i] = []string{
			"`" + escapeCode(truncateString(r.URL, 60)) + "`",
			strconv.Itoa(r.RiskScore),
			verdictBadge(r.Verdict),
			confidenceText(r),
			truncateString(strings.Join(r.Reasons, "; "), 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Score", "Verdict", "ML", "Reasons"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writePieChart writes a mermaid pie chart of the verdict distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.BatchSummary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdict Distribution"),
		piechart.WithShowData(true),
	)

	if summary.MaliciousCount > 0 {
		chart.LabelAndIntValue("Malicious", uint64(summary.MaliciousCount))
	}
	if summary.SuspiciousCount > 0 {
		chart.LabelAndIntValue("Suspicious", uint64(summary.SuspiciousCount))
	}
	if summary.SafeCount > 0 {
		chart.LabelAndIntValue("Safe", uint64(summary.SafeCount))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes a GitHub alert matching the verdict.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, v model.Verdict, score int) {
	info := model.GetVerdictInfo(v)
	switch v {
	case model.VerdictMalicious:
		md.Cautionf("Risk score %d. %s %s", score, info.Summary, info.Recommendation)
	case model.VerdictSuspicious:
		md.Warningf("Risk score %d. %s %s", score, info.Summary, info.Recommendation)
	default:
		md.Tip(info.Summary + " " + info.Recommendation)
	}
	md.PlainText("")
}

// writeFeatures writes the feature vector in a collapsible section.
func (w *MarkdownWriter) writeFeatures(md *markdown.Markdown, fv *model.FeatureVector) {
	values := fv.Values()
	lines := make([]string, len(values))
	for i, name := range model.FeatureNames {
		lines[i] = name + ": " + formatFloat(values[i])
	}
	md.Details("Features", strings.Join(lines, "<br>"))
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by urlscan*")
}

// verdictBadge returns the verdict name with a colored marker.
func verdictBadge(v model.Verdict) string {
	switch v {
	case model.VerdictMalicious:
		return "🔴 Malicious"
	case model.VerdictSuspicious:
		return "🟡 Suspicious"
	case model.VerdictSafe:
		return "🟢 Safe"
	default:
		return "⚪ Unknown"
	}
}

// escapeCode keeps a URL from closing its inline code span or a table cell.
func escapeCode(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	return strings.ReplaceAll(s, "|", "%7C")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen runes with ellipsis.
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
