package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/urlscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ScanDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newReport builds a finished report without running the scanner.
func newReport(url, domain string, score int, confidence *float64) *model.ScanReport {
	r := model.NewScanReport(url)
	r.Domain = domain
	r.RiskScore = score
	r.Verdict = model.VerdictFor(score)
	r.Reasons = []string{model.NoSuspiciousPatternsReason}
	r.MLConfidence = confidence
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path %s", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected error to mention the missing database, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		id, err := db1.SaveScan(ctx, newReport("https://example.com", "example.com", 0, nil))
		if err != nil {
			t.Fatalf("failed to save scan: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		report, err := db2.GetScanReportByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to get report: %v", err)
		}
		if report == nil || report.URL != "https://example.com" {
			t.Errorf("expected stored report to persist, got %+v", report)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestSaveScan tests storing and reading back scan reports.
func TestSaveScan(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	confidence := 0.87
	original := newReport("http://192.168.1.1/login/verify/account", "", 83, &confidence)
	original.Reasons = []string{"Contains IP address instead of domain name"}

	id, err := db.SaveScan(ctx, original)
	if err != nil {
		t.Fatalf("failed to save scan: %v", err)
	}

	t.Run("full report round trip", func(t *testing.T) {
		t.Parallel()

		report, err := db.GetScanReportByID(ctx, id)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.ID != original.ID || report.RiskScore != 83 || report.Verdict != model.VerdictMalicious {
			t.Errorf("unexpected report %+v", report)
		}
		if report.MLConfidence == nil || *report.MLConfidence != confidence {
			t.Errorf("expected confidence %v, got %v", confidence, report.MLConfidence)
		}
		if len(report.Reasons) != 1 || report.Reasons[0] != original.Reasons[0] {
			t.Errorf("unexpected reasons %v", report.Reasons)
		}
	})

	t.Run("missing ID returns nil", func(t *testing.T) {
		t.Parallel()

		report, err := db.GetScanReportByID(ctx, id+1000)
		if err != nil || report != nil {
			t.Errorf("expected nil, nil; got %v, %v", report, err)
		}
	})

	t.Run("record columns", func(t *testing.T) {
		t.Parallel()

		records, err := db.GetURLHistory(ctx, original.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		rec := records[0]
		if rec.ScanID != original.ID || rec.Domain != "" || rec.Verdict != model.VerdictMalicious {
			t.Errorf("unexpected record %+v", rec)
		}
		if rec.MLConfidence == nil || *rec.MLConfidence != confidence {
			t.Errorf("expected confidence column, got %v", rec.MLConfidence)
		}
		if rec.Timestamp.IsZero() {
			t.Error("expected a parsed timestamp")
		}
	})
}

// TestHistory tests URL, domain and recent listings.
func TestHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	reports := []*model.ScanReport{
		newReport("https://login.example.com/a", "example.com", 40, nil),
		newReport("https://www.example.com/", "example.com", 0, nil),
		newReport("https://login.example.com/a", "example.com", 75, nil),
		newReport("https://other.org/", "other.org", 10, nil),
		nil,
	}
	saved, err := db.SaveScans(ctx, reports)
	if err != nil {
		t.Fatalf("failed to save scans: %v", err)
	}
	if saved != 4 {
		t.Fatalf("expected 4 saved scans, got %d", saved)
	}

	t.Run("URL history is newest first", func(t *testing.T) {
		t.Parallel()

		records, err := db.GetURLHistory(ctx, "  https://login.example.com/a ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].RiskScore != 75 || records[1].RiskScore != 40 {
			t.Errorf("expected newest first, got %d then %d", records[0].RiskScore, records[1].RiskScore)
		}
	})

	t.Run("domain history", func(t *testing.T) {
		t.Parallel()

		records, err := db.GetDomainHistory(ctx, "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("expected 3 records, got %d", len(records))
		}
	})

	t.Run("recent scans with limit", func(t *testing.T) {
		t.Parallel()

		records, err := db.ListRecentScans(ctx, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 || records[0].URL != "https://other.org/" {
			t.Errorf("unexpected records %+v", records)
		}

		all, err := db.ListRecentScans(ctx, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("expected 4 records without limit, got %d", len(all))
		}
	})

	t.Run("stats", func(t *testing.T) {
		t.Parallel()

		stats, err := db.Stats(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Total != 4 || stats.DistinctURLs != 3 || stats.WithClassifier != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if stats.AverageScore != 31.25 {
			t.Errorf("expected average 31.25, got %v", stats.AverageScore)
		}
		if stats.ByVerdict[model.VerdictSafe] != 2 ||
			stats.ByVerdict[model.VerdictSuspicious] != 1 ||
			stats.ByVerdict[model.VerdictMalicious] != 1 {
			t.Errorf("unexpected verdict counts %v", stats.ByVerdict)
		}
	})
}

// TestStatsEmpty tests statistics over an empty database.
func TestStatsEmpty(t *testing.T) {
	t.Parallel()

	stats, err := setupTestDB(t).Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Total != 0 || stats.AverageScore != 0 || len(stats.ByVerdict) != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

// TestSamples tests labeled sample storage.
func TestSamples(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, s := range []struct {
		url   string
		label int
	}{
		{"https://www.google.com", 0},
		{"http://192.168.1.1/login", 1},
		{"https://github.com", 0},
		{"https://www.google.com", 1}, // relabel
	} {
		if err := db.AddSample(ctx, s.url, s.label); err != nil {
			t.Fatalf("failed to add sample %s: %v", s.url, err)
		}
	}

	t.Run("invalid label", func(t *testing.T) {
		t.Parallel()

		if err := db.AddSample(ctx, "https://x.example", 2); !errors.Is(err, ErrInvalidLabel) {
			t.Errorf("expected ErrInvalidLabel, got %v", err)
		}
	})

	t.Run("list keeps insertion order and latest label", func(t *testing.T) {
		t.Parallel()

		urls, labels, err := db.ListSamples(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantURLs := []string{"https://www.google.com", "http://192.168.1.1/login", "https://github.com"}
		wantLabels := []int{1, 1, 0}
		if len(urls) != len(wantURLs) {
			t.Fatalf("expected %d samples, got %d", len(wantURLs), len(urls))
		}
		for i := range wantURLs {
			if urls[i] != wantURLs[i] || labels[i] != wantLabels[i] {
				t.Errorf("sample %d: got (%s, %d), want (%s, %d)", i, urls[i], labels[i], wantURLs[i], wantLabels[i])
			}
		}
	})

	t.Run("count", func(t *testing.T) {
		t.Parallel()

		benign, malicious, err := db.CountSamples(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if benign != 1 || malicious != 2 {
			t.Errorf("expected 1 benign and 2 malicious, got %d and %d", benign, malicious)
		}
	})
}

// TestParseTimestamp tests the supported SQLite timestamp formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		wantZero bool
	}{
		{"2025-01-15 10:30:00", false},
		{"2025-01-15T10:30:00Z", false},
		{"2025-01-15T10:30:00+09:00", false},
		{"not a time", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			if got := parseTimestamp(tt.input); got.IsZero() != tt.wantZero {
				t.Errorf("parseTimestamp(%q) = %v, wantZero %v", tt.input, got, tt.wantZero)
			}
		})
	}
}
