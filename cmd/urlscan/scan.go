package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/urlscan/internal/config"
	"github.com/nao1215/urlscan/internal/database"
	"github.com/nao1215/urlscan/internal/model"
	"github.com/nao1215/urlscan/internal/scan"
	"github.com/nao1215/urlscan/internal/server"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url...]",
		Short: "Score one or more URLs for phishing and malware risk",
		Long: `Scan scores URLs without fetching them.

Each URL is checked for:
- Length, dots, hyphens and special characters
- Raw IP address hosts and missing HTTPS
- Phishing keywords and deep subdomain nesting
- URL shortening services

When a trained model exists it refines the score. Use --no-ml to score with
the rule table only.

Examples:
  # Scan a single URL
  urlscan scan https://example.com/login

  # Scan several URLs; the scheme defaults to https://
  urlscan scan example.com bit.ly/abc http://192.168.1.1/verify

  # Scan every URL listed in a file, one per line
  urlscan scan --list urls.txt

  # Output a Markdown report to a file
  urlscan scan --markdown -o report.md --list urls.txt

  # Keep the results for 'urlscan history'
  urlscan scan --save https://example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Input flags
	cmd.Flags().StringP("list", "l", "",
		"File with one URL per line (blank lines and # comments are ignored)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent scans")

	// Classifier flags
	cmd.Flags().Bool("no-ml", false,
		"Score with the rule table only")
	cmd.Flags().String("model", "",
		"Classifier snapshot path (default: $XDG_DATA_HOME/urlscan/model.json)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP("save", "s", false,
		"Save results to the scan history database")
	cmd.Flags().String("db-dir", "",
		"Directory of the scan history database (default: $XDG_DATA_HOME/urlscan)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.ValidateScan(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runScan(ctx, cmd.OutOrStdout(), cfg, logger)
}

// buildScanConfig creates a Config from the config file and scan flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if err := applyInt(cmd, "batch", &cfg.BatchSize); err != nil {
		return nil, err
	}
	if err := applyBool(cmd, "no-ml", &cfg.DisableClassifier); err != nil {
		return nil, err
	}
	if err := applyString(cmd, "model", &cfg.ModelPath); err != nil {
		return nil, err
	}
	if err := applyBool(cmd, "save", &cfg.SaveToDB); err != nil {
		return nil, err
	}
	if err := applyString(cmd, "db-dir", &cfg.DBDir); err != nil {
		return nil, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	listFile, err := cmd.Flags().GetString("list")
	if err != nil {
		return nil, err
	}

	targets := append([]string(nil), args...)
	if listFile != "" {
		listed, err := readTargetList(listFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, listed...)
	}

	// Targets are validated the same way the API validates them.
	for i, target := range targets {
		normalized, err := server.NormalizeURL(target)
		if err != nil {
			return nil, fmt.Errorf("invalid URL %q: %w", target, err)
		}
		targets[i] = normalized
	}
	cfg.Targets = targets

	return cfg, nil
}

// readTargetList reads one URL per line from path.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided list file is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return targets, nil
}

// runScan scores cfg.Targets and writes the report.
// A single target produces a single-URL report; several targets produce a
// batch summary.
func runScan(ctx context.Context, stdout io.Writer, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	var db *database.ScanDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	scanner := scan.NewScanner(
		scan.WithCapability(loadCapability(cfg, logger)),
		scan.WithScannerLogger(logger),
	)

	out, closeOut, err := openOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer closeOut() //nolint:errcheck // the writer error is reported below
	writer := newReportWriter(cfg, out)

	if len(cfg.Targets) == 1 {
		r, err := scanner.Scan(ctx, cfg.Targets[0])
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		saveReports(ctx, db, []*model.ScanReport{r}, logger)
		if _, err := writer.Write(r); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}

	bp := scan.NewBatchProcessor(scanner,
		scan.WithConcurrency(cfg.BatchSize),
		scan.WithBatchLogger(logger),
	)
	reports, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return fmt.Errorf("batch scan failed: %w", err)
	}

	summary := model.NewBatchSummary(reports)
	saveReports(ctx, db, summary.Reports, logger)
	if _, err := writer.WriteSummary(summary); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveReports stores reports in the history database.
// If db is nil, this function is a no-op. Failures are logged and do not
// fail the scan.
func saveReports(ctx context.Context, db *database.ScanDB, reports []*model.ScanReport, logger *slog.Logger) {
	if db == nil {
		return
	}
	n, err := db.SaveScans(ctx, reports)
	if err != nil {
		logger.Error("failed to save scan reports", "error", err)
		return
	}
	logger.Info("scan reports saved to database", "count", n)
}
