package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/urlscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose adds the feature vector and pipeline steps to the output.
	verbose bool
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
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "URLSCAN REPORT")
	w.writeReport(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// WriteSummary outputs a batch summary followed by a one-line entry per URL.
func (w *SimpleWriter) WriteSummary(summary *model.BatchSummary) (int, error) {
	var sb strings.Builder

	w.writeBanner(&sb, "URLSCAN BATCH REPORT")

	sb.WriteString(fmt.Sprintf("URLs Scanned:  %d\n", summary.Total))
	sb.WriteString(fmt.Sprintf("Average Score: %.2f\n", summary.AverageScore))
	sb.WriteString(fmt.Sprintf("Highest Score: %d\n", summary.HighestScore))
	sb.WriteString("\n")

	w.writeSection(&sb, "VERDICT SUMMARY")
	sb.WriteString(fmt.Sprintf("  MALICIOUS:  %d\n", summary.MaliciousCount))
	sb.WriteString(fmt.Sprintf("  SUSPICIOUS: %d\n", summary.SuspiciousCount))
	sb.WriteString(fmt.Sprintf("  SAFE:       %d\n", summary.SafeCount))
	sb.WriteString("\n")

	w.writeSection(&sb, "RESULTS")
	for _, r := range summary.Reports {
		sb.WriteString(fmt.Sprintf("  [%s] %3d  %-10s  %s\n",
			verdictIndicator(r.Verdict), r.RiskScore, strings.ToUpper(r.Verdict.String()), r.URL))
		if w.verbose {
			for _, reason := range r.Reasons {
				sb.WriteString(fmt.Sprintf("             - %s\n", reason))
			}
		}
	}
	sb.WriteString("\n")

	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeReport writes the body of a single report.
func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.ScanReport) {
	writeField(sb, "URL", report.URL)
	if report.Domain != "" {
		writeField(sb, "Domain", report.Domain)
	}
	writeField(sb, "Scan Date", report.ScannedAt.Format("2006-01-02 15:04:05 MST"))
	writeField(sb, "Risk Score", strconv.Itoa(report.RiskScore)+"/100")
	writeField(sb, "Verdict", "["+verdictIndicator(report.Verdict)+"] "+strings.ToUpper(report.Verdict.String()))
	writeField(sb, "ML Confidence", confidenceText(report))
	writeField(sb, "Time", fmt.Sprintf("%.2f ms", report.ProcessingTimeMS))
	if report.ErrorMessage != "" {
		writeField(sb, "Error", report.ErrorMessage)
	}
	sb.WriteString("\n")

	w.writeSection(sb, "REASONS")
	for _, reason := range report.Reasons {
		sb.WriteString(fmt.Sprintf("  * %s\n", reason))
	}
	sb.WriteString("\n")

	info := model.GetVerdictInfo(report.Verdict)
	w.writeSection(sb, "RECOMMENDATION")
	sb.WriteString(fmt.Sprintf("  %s\n  %s\n\n", info.Summary, info.Recommendation))

	if w.verbose && report.Features != nil {
		w.writeSection(sb, "FEATURES")
		values := report.Features.Values()
		for i, name := range model.FeatureNames {
			sb.WriteString(fmt.Sprintf("  %-26s %s\n", name, formatFloat(values[i])))
		}
		sb.WriteString("\n")
	}
}

// writeBanner writes the report title.
func (w *SimpleWriter) writeBanner(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	pad := max(0, (70-len(title))/2)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

// writeSection writes a section header.
func (w *SimpleWriter) writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by urlscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// writeField writes one aligned "Label: value" line.
func writeField(sb *strings.Builder, label, value string) {
	sb.WriteString(fmt.Sprintf("%-15s%s\n", label+":", value))
}

// verdictIndicator returns a visual indicator for the verdict.
func verdictIndicator(v model.Verdict) string {
	switch v {
	case model.VerdictMalicious:
		return "!!!"
	case model.VerdictSuspicious:
		return "!"
	case model.VerdictSafe:
		return "ok"
	default:
		return "?"
	}
}

// formatFloat prints integers without a fraction and everything else with
// two decimals.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
