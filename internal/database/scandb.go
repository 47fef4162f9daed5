package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/urlscan/internal/feature"
	"github.com/nao1215/urlscan/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "urlscan.db"

// ErrInvalidLabel is returned when a training sample label is not 0 or 1.
var ErrInvalidLabel = errors.New("invalid label: must be 0 (benign) or 1 (malicious)")

// ScanDB provides SQLite-based storage for scan history and labeled samples.
//
// Design decision: We keep scans and samples in one database file so that a
// user can promote a scanned URL to a training sample without juggling
// files, and so that backup is a single copy.
type ScanDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ScanDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ScanDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ScanDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc creates it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	sdb := &ScanDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := sdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return sdb, nil
}

// Path returns the database file path.
func (sdb *ScanDB) Path() string {
	return sdb.dbPath
}

// Close closes the database connection.
func (sdb *ScanDB) Close() error {
	return sdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (sdb *ScanDB) createTables() error {
	schema := `
	-- Scans store one row per scanned URL with the full report as JSON
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id TEXT NOT NULL,
		url TEXT NOT NULL,
		url_hash TEXT NOT NULL,
		domain TEXT,
		risk_score INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		ml_confidence REAL,
		report_json TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_scans_url_hash ON scans(url_hash);
	CREATE INDEX IF NOT EXISTS idx_scans_domain ON scans(domain);
	CREATE INDEX IF NOT EXISTS idx_scans_timestamp ON scans(timestamp);

	-- Samples are labeled URLs used to train the classifier
	CREATE TABLE IF NOT EXISTS samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		label INTEGER NOT NULL CHECK (label IN (0, 1)),
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := sdb.db.ExecContext(context.Background(), schema)
	return err
}

// ScanRecord is the summary of one stored scan.
// It is used for listing history without decoding the full report.
type ScanRecord struct {
	// ID is the database row ID.
	ID int64

	// ScanID is the report ID assigned by the scanner.
	ScanID string

	// URL is the scanned URL.
	URL string

	// Domain is the registrable domain, empty for IP hosts.
	Domain string

	// RiskScore is the final risk score.
	RiskScore int

	// Verdict is the final verdict.
	Verdict model.Verdict

	// MLConfidence is nil when no classifier took part.
	MLConfidence *float64

	// Timestamp is when the scan was stored.
	Timestamp time.Time
}

// SaveScan stores a scan report and returns its row ID.
func (sdb *ScanDB) SaveScan(ctx context.Context, report *model.ScanReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	var confidence sql.NullFloat64
	if report.MLConfidence != nil {
		confidence = sql.NullFloat64{Float64: *report.MLConfidence, Valid: true}
	}

	query := `
	INSERT INTO scans (scan_id, url, url_hash, domain, risk_score, verdict, ml_confidence, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sdb.db.ExecContext(ctx, query,
		report.ID,
		report.URL,
		feature.Fingerprint(report.URL),
		report.Domain,
		report.RiskScore,
		report.Verdict.String(),
		confidence,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan: %w", err)
	}

	return result.LastInsertId()
}

// SaveScans stores many reports in one transaction. Nil reports are skipped.
func (sdb *ScanDB) SaveScans(ctx context.Context, reports []*model.ScanReport) (int, error) {
	tx, err := sdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO scans (scan_id, url, url_hash, domain, risk_score, verdict, ml_confidence, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	saved := 0
	for _, report := range reports {
		if report == nil {
			continue
		}
		reportJSON, err := json.Marshal(report)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize report for %s: %w", report.URL, err)
		}
		var confidence sql.NullFloat64
		if report.MLConfidence != nil {
			confidence = sql.NullFloat64{Float64: *report.MLConfidence, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			report.ID,
			report.URL,
			feature.Fingerprint(report.URL),
			report.Domain,
			report.RiskScore,
			report.Verdict.String(),
			confidence,
			string(reportJSON),
		); err != nil {
			return 0, fmt.Errorf("failed to save scan of %s: %w", report.URL, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit scans: %w", err)
	}
	return saved, nil
}

const recordColumns = `id, scan_id, url, domain, risk_score, verdict, ml_confidence, timestamp`

// GetURLHistory returns the stored scans of a URL, newest first.
// URLs are matched by fingerprint, so surrounding whitespace is ignored.
func (sdb *ScanDB) GetURLHistory(ctx context.Context, rawURL string) ([]ScanRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM scans
	WHERE url_hash = ?
	ORDER BY timestamp DESC, id DESC`
	return sdb.queryRecords(ctx, query, feature.Fingerprint(rawURL))
}

// GetDomainHistory returns the stored scans of every URL under a registrable
// domain, newest first.
func (sdb *ScanDB) GetDomainHistory(ctx context.Context, domain string) ([]ScanRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM scans
	WHERE domain = ?
	ORDER BY timestamp DESC, id DESC`
	return sdb.queryRecords(ctx, query, domain)
}

// ListRecentScans returns the latest scans, newest first.
// A non-positive limit returns every scan.
func (sdb *ScanDB) ListRecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM scans
	ORDER BY timestamp DESC, id DESC`
	if limit <= 0 {
		return sdb.queryRecords(ctx, query)
	}
	return sdb.queryRecords(ctx, query+` LIMIT ?`, limit)
}

func (sdb *ScanDB) queryRecords(ctx context.Context, query string, args ...any) ([]ScanRecord, error) {
	rows, err := sdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var (
			rec        ScanRecord
			domain     sql.NullString
			verdict    string
			confidence sql.NullFloat64
			timestamp  string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.ScanID,
			&rec.URL,
			&domain,
			&rec.RiskScore,
			&verdict,
			&confidence,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.Domain = domain.String
		if v, err := model.ParseVerdict(verdict); err == nil {
			rec.Verdict = v
		}
		if confidence.Valid {
			c := confidence.Float64
			rec.MLConfidence = &c
		}
		rec.Timestamp = parseTimestamp(timestamp)
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetScanReportByID retrieves a full scan report by its row ID.
// It returns nil and no error when the row does not exist.
func (sdb *ScanDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	query := `SELECT report_json FROM scans WHERE id = ?`

	var reportJSON string
	err := sdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// VerdictStats summarizes every stored scan.
type VerdictStats struct {
	// Total is the number of stored scans.
	Total int

	// ByVerdict counts scans per verdict.
	ByVerdict map[model.Verdict]int

	// AverageScore is the mean risk score, 0 when there are no scans.
	AverageScore float64

	// DistinctURLs is the number of different URLs scanned.
	DistinctURLs int

	// WithClassifier is the number of scans a classifier took part in.
	WithClassifier int
}

// Stats computes summary statistics over the stored scans.
func (sdb *ScanDB) Stats(ctx context.Context) (*VerdictStats, error) {
	stats := &VerdictStats{
		ByVerdict: make(map[model.Verdict]int),
	}

	row := sdb.db.QueryRowContext(ctx, `
	SELECT COUNT(*), COALESCE(AVG(risk_score), 0), COUNT(DISTINCT url_hash), COUNT(ml_confidence)
	FROM scans
	`)
	if err := row.Scan(&stats.Total, &stats.AverageScore, &stats.DistinctURLs, &stats.WithClassifier); err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	rows, err := sdb.db.QueryContext(ctx, `SELECT verdict, COUNT(*) FROM scans GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("failed to count verdicts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan verdict count: %w", err)
		}
		v, err := model.ParseVerdict(name)
		if err != nil {
			continue // Skip rows written by a newer version
		}
		stats.ByVerdict[v] = count
	}

	return stats, rows.Err()
}

// AddSample stores a labeled URL for training. Adding a URL that already
// exists replaces its label.
func (sdb *ScanDB) AddSample(ctx context.Context, rawURL string, label int) error {
	if label != 0 && label != 1 {
		return ErrInvalidLabel
	}

	query := `
	INSERT INTO samples (url, label) VALUES (?, ?)
	ON CONFLICT(url) DO UPDATE SET
		label = excluded.label,
		timestamp = CURRENT_TIMESTAMP
	`
	if _, err := sdb.db.ExecContext(ctx, query, rawURL, label); err != nil {
		return fmt.Errorf("failed to add sample: %w", err)
	}
	return nil
}

// ListSamples returns every labeled URL in insertion order, as parallel
// slices ready for training.
func (sdb *ScanDB) ListSamples(ctx context.Context) ([]string, []int, error) {
	rows, err := sdb.db.QueryContext(ctx, `SELECT url, label FROM samples ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	var (
		urls   []string
		labels []int
	)
	for rows.Next() {
		var (
			u     string
			label int
		)
		if err := rows.Scan(&u, &label); err != nil {
			return nil, nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		urls = append(urls, u)
		labels = append(labels, label)
	}

	return urls, labels, rows.Err()
}

// CountSamples returns the number of labeled URLs per label.
func (sdb *ScanDB) CountSamples(ctx context.Context) (benign, malicious int, err error) {
	row := sdb.db.QueryRowContext(ctx, `
	SELECT COALESCE(SUM(label = 0), 0), COALESCE(SUM(label = 1), 0) FROM samples
	`)
	if err := row.Scan(&benign, &malicious); err != nil {
		return 0, 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return benign, malicious, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
