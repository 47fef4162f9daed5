package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/urlscan/internal/config"
	"github.com/nao1215/urlscan/internal/database"
	"github.com/nao1215/urlscan/internal/model"
	"github.com/nao1215/urlscan/internal/server"
)

// Constants for risk direction.
const (
	riskDirectionWorsened  = "worsened"
	riskDirectionImproved  = "improved"
	riskDirectionUnchanged = "unchanged"
)

// defaultHistoryLimit is the number of recent scans listed without a filter.
const defaultHistoryLimit = 20

// historyTimeFormat is used for every timestamp printed by history.
const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command reads scan results stored by 'urlscan scan --save'.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show and compare stored scan results",
		Long: `History displays scan results saved with 'urlscan scan --save'.

Without arguments it lists the most recent scans. With a URL it lists every
scan of that URL, and with --compare it shows how the latest scan differs
from the previous one:
- Change of the risk score and verdict
- New reasons that appeared since the previous scan
- Resolved reasons that are no longer present

Examples:
  # List the 20 most recent scans
  urlscan history

  # List every scan of a URL
  urlscan history https://example.com/login

  # List every scan of a registrable domain
  urlscan history --domain example.com

  # Compare the latest two scans of a URL
  urlscan history --compare https://example.com/login

  # Compare the latest scan with a specific earlier scan
  urlscan history --compare --with-scan-id 5 https://example.com/login

  # Verdict statistics over all stored scans
  urlscan history --stats`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	// Selection flags
	cmd.Flags().StringP("domain", "d", "",
		"List scans of a registrable domain")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Number of recent scans to list when no URL or domain is given")
	cmd.Flags().Bool("stats", false,
		"Show verdict statistics over all stored scans")

	// Comparison flags
	cmd.Flags().Bool("compare", false,
		"Compare the latest scan of the URL with an earlier one")
	cmd.Flags().Int64P("with-scan-id", "i", 0,
		"Compare with a specific scan by ID (implies --compare)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output in Markdown format")
	cmd.Flags().String("db-dir", "",
		"Directory of the scan history database (default: $XDG_DATA_HOME/urlscan)")

	return cmd
}

// historyOptions are the parsed history flags.
type historyOptions struct {
	target     string
	domain     string
	limit      int
	stats      bool
	compare    bool
	withScanID int64
	format     outputFormat
}

// outputFormat selects how history results are rendered.
type outputFormat int

const (
	formatText outputFormat = iota
	formatJSON
	formatMarkdown
)

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildHistoryConfig(cmd, args)
	if err != nil {
		return err
	}

	// Arguments are validated before the database is opened.
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	return runHistory(cmd.Context(), cmd.OutOrStdout(), db, opts)
}

// buildHistoryConfig parses history flags.
func buildHistoryConfig(cmd *cobra.Command, args []string) (*config.Config, historyOptions, error) {
	var opts historyOptions

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, opts, err
	}
	if err := applyString(cmd, "db-dir", &cfg.DBDir); err != nil {
		return nil, opts, err
	}

	if opts.domain, err = cmd.Flags().GetString("domain"); err != nil {
		return nil, opts, err
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return nil, opts, err
	}
	if opts.stats, err = cmd.Flags().GetBool("stats"); err != nil {
		return nil, opts, err
	}
	if opts.compare, err = cmd.Flags().GetBool("compare"); err != nil {
		return nil, opts, err
	}
	if opts.withScanID, err = cmd.Flags().GetInt64("with-scan-id"); err != nil {
		return nil, opts, err
	}
	if opts.withScanID != 0 {
		opts.compare = true
	}

	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, opts, err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, opts, err
	}
	switch {
	case jsonOutput && markdownOutput:
		return nil, opts, config.ErrConflictingReportFormats
	case jsonOutput:
		opts.format = formatJSON
	case markdownOutput:
		opts.format = formatMarkdown
	}

	if len(args) == 1 {
		opts.target, err = server.NormalizeURL(args[0])
		if err != nil {
			return nil, opts, fmt.Errorf("invalid URL %q: %w", args[0], err)
		}
	}

	if opts.compare && opts.target == "" {
		return nil, opts, errors.New("a URL is required to compare scans")
	}
	if opts.limit <= 0 {
		return nil, opts, errors.New("--limit must be positive")
	}

	return cfg, opts, nil
}

// runHistory dispatches to the selected history view.
func runHistory(ctx context.Context, out io.Writer, db *database.ScanDB, opts historyOptions) error {
	switch {
	case opts.stats:
		return showStats(ctx, out, db, opts.format)
	case opts.compare:
		return runComparison(ctx, out, db, opts)
	case opts.target != "":
		records, err := db.GetURLHistory(ctx, opts.target)
		if err != nil {
			return fmt.Errorf("failed to get scan history: %w", err)
		}
		return listHistory(out, "Scan history for "+opts.target, records, opts.format)
	case opts.domain != "":
		records, err := db.GetDomainHistory(ctx, opts.domain)
		if err != nil {
			return fmt.Errorf("failed to get scan history: %w", err)
		}
		return listHistory(out, "Scan history for domain "+opts.domain, records, opts.format)
	default:
		records, err := db.ListRecentScans(ctx, opts.limit)
		if err != nil {
			return fmt.Errorf("failed to list scans: %w", err)
		}
		return listHistory(out, "Recent scans", records, opts.format)
	}
}

// HistoryEntry is the JSON form of a stored scan.
type HistoryEntry struct {
	ID           int64     `json:"id"`
	ScanID       string    `json:"scan_id"`
	URL          string    `json:"url"`
	Domain       string    `json:"domain,omitempty"`
	RiskScore    int       `json:"risk_score"`
	Verdict      string    `json:"verdict"`
	MLConfidence *float64  `json:"ml_confidence,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func newHistoryEntry(r database.ScanRecord) HistoryEntry {
	return HistoryEntry{
		ID:           r.ID,
		ScanID:       r.ScanID,
		URL:          r.URL,
		Domain:       r.Domain,
		RiskScore:    r.RiskScore,
		Verdict:      r.Verdict.String(),
		MLConfidence: r.MLConfidence,
		Timestamp:    r.Timestamp,
	}
}

// listHistory prints stored scans, newest first.
func listHistory(out io.Writer, title string, records []database.ScanRecord, format outputFormat) error {
	switch format {
	case formatJSON:
		entries := make([]HistoryEntry, len(records))
		for i, r := range records {
			entries[i] = newHistoryEntry(r)
		}
		return writeIndentedJSON(out, entries)

	case formatMarkdown:
		md := markdown.NewMarkdown(out)
		md.H1(title)
		md.PlainText("")
		if len(records) == 0 {
			md.PlainText("No scans found.")
			return md.Build()
		}
		rows := make([][]string, len(records))
		for i, r := range records {
			rows[i] = []string{
				strconv.FormatInt(r.ID, 10),
				r.Timestamp.Format(historyTimeFormat),
				strconv.Itoa(r.RiskScore),
				r.Verdict.String(),
				formatConfidence(r.MLConfidence),
				"`" + r.URL + "`",
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"ID", "Date", "Score", "Verdict", "ML", "URL"},
			Rows:   rows,
		})
		return md.Build()
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No scans found.")
		fmt.Fprintln(out, "\nUse 'urlscan scan --save <url>' to store scan results.")
		return nil
	}

	fmt.Fprintf(out, "%s (%d scans):\n\n", title, len(records))
	fmt.Fprintf(out, "  %-6s  %-19s  %-5s  %-10s  %-4s  %s\n", "ID", "Date", "Score", "Verdict", "ML", "URL")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))
	for _, r := range records {
		fmt.Fprintf(out, "  %-6d  %-19s  %-5d  %-10s  %-4s  %s\n",
			r.ID,
			r.Timestamp.Format(historyTimeFormat),
			r.RiskScore,
			r.Verdict.String(),
			formatConfidence(r.MLConfidence),
			r.URL,
		)
	}
	return nil
}

// StatsResult is the JSON form of the verdict statistics.
type StatsResult struct {
	Total          int            `json:"total"`
	DistinctURLs   int            `json:"distinct_urls"`
	AverageScore   float64        `json:"average_score"`
	WithClassifier int            `json:"with_classifier"`
	ByVerdict      map[string]int `json:"by_verdict"`
}

// showStats prints verdict statistics over every stored scan.
func showStats(ctx context.Context, out io.Writer, db *database.ScanDB, format outputFormat) error {
	stats, err := db.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	result := StatsResult{
		Total:          stats.Total,
		DistinctURLs:   stats.DistinctURLs,
		AverageScore:   stats.AverageScore,
		WithClassifier: stats.WithClassifier,
		ByVerdict:      make(map[string]int, 3),
	}
	verdicts := []model.Verdict{model.VerdictMalicious, model.VerdictSuspicious, model.VerdictSafe}
	for _, v := range verdicts {
		result.ByVerdict[v.String()] = stats.ByVerdict[v]
	}

	switch format {
	case formatJSON:
		return writeIndentedJSON(out, result)

	case formatMarkdown:
		rows := make([][]string, 0, len(verdicts)+4)
		for _, v := range verdicts {
			rows = append(rows, []string{v.String(), strconv.Itoa(stats.ByVerdict[v])})
		}
		rows = append(rows,
			[]string{"**Total**", "**" + strconv.Itoa(stats.Total) + "**"},
			[]string{"Distinct URLs", strconv.Itoa(stats.DistinctURLs)},
			[]string{"Average score", strconv.FormatFloat(stats.AverageScore, 'f', 2, 64)},
			[]string{"Scored with classifier", strconv.Itoa(stats.WithClassifier)},
		)
		md := markdown.NewMarkdown(out)
		md.H1("Scan Statistics")
		md.PlainText("")
		md.Table(markdown.TableSet{Header: []string{"Metric", "Value"}, Rows: rows})
		return md.Build()
	}

	fmt.Fprintln(out, "Scan Statistics")
	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintf(out, "%-24s %d\n", "Total scans:", stats.Total)
	fmt.Fprintf(out, "%-24s %d\n", "Distinct URLs:", stats.DistinctURLs)
	fmt.Fprintf(out, "%-24s %.2f\n", "Average score:", stats.AverageScore)
	fmt.Fprintf(out, "%-24s %d\n", "Scored with classifier:", stats.WithClassifier)
	fmt.Fprintln(out)
	for _, v := range verdicts {
		fmt.Fprintf(out, "  %-12s %d\n", strings.ToUpper(v.String())+":", stats.ByVerdict[v])
	}
	return nil
}

// ComparisonResult holds the result of comparing two scans of one URL.
type ComparisonResult struct {
	// URL is the compared URL.
	URL string `json:"url"`

	// PreviousScan describes the earlier scan.
	PreviousScan ScanMetadata `json:"previous_scan"`

	// CurrentScan describes the latest scan.
	CurrentScan ScanMetadata `json:"current_scan"`

	// NewReasons are reasons present only in the current scan.
	NewReasons []string `json:"new_reasons,omitempty"`

	// ResolvedReasons are reasons present only in the previous scan.
	ResolvedReasons []string `json:"resolved_reasons,omitempty"`

	// UnchangedCount is the number of reasons present in both scans.
	UnchangedCount int `json:"unchanged_count"`

	// RiskChange describes the overall change in risk.
	RiskChange RiskChange `json:"risk_change"`
}

// ScanMetadata contains metadata about a scan for comparison display.
type ScanMetadata struct {
	ID           int64     `json:"id"`
	DateScanned  time.Time `json:"date_scanned"`
	RiskScore    int       `json:"risk_score"`
	Verdict      string    `json:"verdict"`
	MLConfidence *float64  `json:"ml_confidence,omitempty"`
}

// RiskChange describes the change in risk between scans.
type RiskChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	// ScoreDelta is the current score minus the previous score.
	ScoreDelta int `json:"score_delta"`

	// VerdictChanged is true when the verdicts differ.
	VerdictChanged bool `json:"verdict_changed"`
}

// runComparison compares the latest scan of opts.target with an earlier one.
func runComparison(ctx context.Context, out io.Writer, db *database.ScanDB, opts historyOptions) error {
	records, err := db.GetURLHistory(ctx, opts.target)
	if err != nil {
		return fmt.Errorf("failed to get scan history: %w", err)
	}

	if len(records) == 0 {
		return fmt.Errorf("no scan history found for %s", opts.target)
	}
	if len(records) < 2 && opts.withScanID == 0 {
		return fmt.Errorf("at least 2 scans are required for comparison (found %d)", len(records))
	}

	// Records are newest first.
	current := records[0]
	var previous database.ScanRecord
	if opts.withScanID != 0 {
		idx := slices.IndexFunc(records, func(r database.ScanRecord) bool { return r.ID == opts.withScanID })
		if idx < 0 {
			return fmt.Errorf("scan with ID %d not found for %s", opts.withScanID, opts.target)
		}
		if idx == 0 {
			return fmt.Errorf("scan ID %d is the latest scan; choose an earlier one", opts.withScanID)
		}
		previous = records[idx]
	} else {
		previous = records[1]
	}

	currentReport, err := loadReport(ctx, db, current.ID)
	if err != nil {
		return err
	}
	previousReport, err := loadReport(ctx, db, previous.ID)
	if err != nil {
		return err
	}

	result := compareScans(previous, previousReport, current, currentReport)

	switch opts.format {
	case formatJSON:
		return writeIndentedJSON(out, result)
	case formatMarkdown:
		return outputComparisonMarkdown(out, result)
	default:
		return outputComparisonText(out, result)
	}
}

func loadReport(ctx context.Context, db *database.ScanDB, id int64) (*model.ScanReport, error) {
	report, err := db.GetScanReportByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan with ID %d: %w", id, err)
	}
	if report == nil {
		return nil, fmt.Errorf("scan with ID %d not found", id)
	}
	return report, nil
}

// compareScans compares two stored scans and their reports.
func compareScans(prevRec database.ScanRecord, prev *model.ScanReport, curRec database.ScanRecord, cur *model.ScanReport) *ComparisonResult {
	result := &ComparisonResult{
		URL:          cur.URL,
		PreviousScan: newScanMetadata(prevRec),
		CurrentScan:  newScanMetadata(curRec),
	}

	for _, reason := range cur.Reasons {
		if !slices.Contains(prev.Reasons, reason) {
			result.NewReasons = append(result.NewReasons, reason)
		}
	}
	for _, reason := range prev.Reasons {
		if slices.Contains(cur.Reasons, reason) {
			result.UnchangedCount++
		} else {
			result.ResolvedReasons = append(result.ResolvedReasons, reason)
		}
	}

	result.RiskChange = calculateRiskChange(result.PreviousScan, result.CurrentScan)
	return result
}

func newScanMetadata(r database.ScanRecord) ScanMetadata {
	return ScanMetadata{
		ID:           r.ID,
		DateScanned:  r.Timestamp,
		RiskScore:    r.RiskScore,
		Verdict:      r.Verdict.String(),
		MLConfidence: r.MLConfidence,
	}
}

// calculateRiskChange calculates the change in risk between two scans.
func calculateRiskChange(previous, current ScanMetadata) RiskChange {
	change := RiskChange{
		ScoreDelta:     current.RiskScore - previous.RiskScore,
		VerdictChanged: current.Verdict != previous.Verdict,
	}

	switch {
	case change.ScoreDelta < 0:
		change.Direction = riskDirectionImproved
	case change.ScoreDelta > 0:
		change.Direction = riskDirectionWorsened
	default:
		change.Direction = riskDirectionUnchanged
	}
	return change
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(out io.Writer, result *ComparisonResult) error {
	md := markdown.NewMarkdown(out)

	md.H1("Scan Comparison")
	md.PlainText("")
	md.PlainTextf("`%s`", result.URL)
	md.PlainText("")

	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Risk Status:** %s", formatRiskDirection(result.RiskChange.Direction))
	md.PlainText("")

	prev, cur := result.PreviousScan, result.CurrentScan
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Scan ID", strconv.FormatInt(prev.ID, 10), strconv.FormatInt(cur.ID, 10), "-"},
			{"Date", prev.DateScanned.Format("2006-01-02 15:04"), cur.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Risk Score", strconv.Itoa(prev.RiskScore), strconv.Itoa(cur.RiskScore), formatDelta(result.RiskChange.ScoreDelta)},
			{"Verdict", prev.Verdict, cur.Verdict, verdictChangeText(result.RiskChange.VerdictChanged)},
			{"ML Confidence", formatConfidence(prev.MLConfidence), formatConfidence(cur.MLConfidence), "-"},
		},
	})
	md.PlainText("")

	if len(result.NewReasons) > 0 {
		md.H2(fmt.Sprintf("New Reasons (%d)", len(result.NewReasons)))
		md.PlainText("")
		md.BulletList(result.NewReasons...)
		md.PlainText("")
	}

	if len(result.ResolvedReasons) > 0 {
		md.H2(fmt.Sprintf("Resolved Reasons (%d)", len(result.ResolvedReasons)))
		md.PlainText("")
		resolved := make([]string, len(result.ResolvedReasons))
		for i, r := range result.ResolvedReasons {
			resolved[i] = "~~" + r + "~~"
		}
		md.BulletList(resolved...)
		md.PlainText("")
	}

	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainTextf("*%d reasons unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	fmt.Fprintf(out, "Scan Comparison: %s\n", result.URL)
	fmt.Fprintln(out, strings.Repeat("=", 60))

	fmt.Fprintf(out, "\nRisk Status: %s\n", formatRiskDirection(result.RiskChange.Direction))

	prev, cur := result.PreviousScan, result.CurrentScan
	fmt.Fprintf(out, "\nPrevious scan: #%d %s\n", prev.ID, prev.DateScanned.Format(historyTimeFormat))
	fmt.Fprintf(out, "Current scan:  #%d %s\n", cur.ID, cur.DateScanned.Format(historyTimeFormat))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 50))
	fmt.Fprintf(out, "  %-14s  %-10d  %-10d  %-10s\n", "Risk Score",
		prev.RiskScore, cur.RiskScore, formatDelta(result.RiskChange.ScoreDelta))
	fmt.Fprintf(out, "  %-14s  %-10s  %-10s  %-10s\n", "Verdict",
		prev.Verdict, cur.Verdict, verdictChangeText(result.RiskChange.VerdictChanged))
	fmt.Fprintf(out, "  %-14s  %-10s  %-10s  %-10s\n", "ML Confidence",
		formatConfidence(prev.MLConfidence), formatConfidence(cur.MLConfidence), "-")

	if len(result.NewReasons) > 0 {
		fmt.Fprintf(out, "\nNew Reasons (%d):\n", len(result.NewReasons))
		for _, r := range result.NewReasons {
			fmt.Fprintf(out, "  [+] %s\n", r)
		}
	}

	if len(result.ResolvedReasons) > 0 {
		fmt.Fprintf(out, "\nResolved Reasons (%d):\n", len(result.ResolvedReasons))
		for _, r := range result.ResolvedReasons {
			fmt.Fprintf(out, "  [-] %s\n", r)
		}
	}

	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d reasons\n", result.UnchangedCount)
	}

	return nil
}

// formatRiskDirection formats the risk change direction for display.
func formatRiskDirection(direction string) string {
	switch direction {
	case riskDirectionImproved:
		return "IMPROVED (risk decreased)"
	case riskDirectionWorsened:
		return "WORSENED (risk increased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}

func verdictChangeText(changed bool) string {
	if changed {
		return "changed"
	}
	return "-"
}

// formatConfidence renders a classifier confidence, "-" when absent.
func formatConfidence(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func writeIndentedJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

