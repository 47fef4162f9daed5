package model

import (
	"time"

	"github.com/google/uuid"
)

// NoSuspiciousPatternsReason is the single reason reported when no rule fires.
const NoSuspiciousPatternsReason = "No suspicious patterns detected"

// ScoreResult is the output of the rule scorer: a clamped risk score and the
// reasons that produced it, in rule-evaluation order.
type ScoreResult struct {
	// RiskScore is in [0, 100].
	RiskScore int `json:"risk_score"`

	// Reasons is never empty; see NoSuspiciousPatternsReason.
	Reasons []string `json:"reasons"`

	// Verdict is derived from RiskScore.
	Verdict Verdict `json:"verdict"`
}

// ScanReport is the result of scanning a single URL.
// Its JSON form is the response body of the scan API.
//
// Design decision: We use a single flat struct that the scan steps fill in
// one after another, the same way a pipeline accumulates state. Fields the
// caller did not ask for (features, domain) are still recorded so that the
// database keeps a complete picture of each scan.
type ScanReport struct {
	// ID uniquely identifies this scan.
	ID string `json:"id"`

	// URL is the scanned URL exactly as handed to the scanner.
	URL string `json:"url"`

	// Domain is the registrable domain (eTLD+1) of the URL host, when it has one.
	Domain string `json:"domain,omitempty"`

	// RiskScore is the final risk score in [0, 100].
	RiskScore int `json:"risk_score"`

	// Verdict is derived from the final RiskScore.
	Verdict Verdict `json:"verdict"`

	// Reasons explains the score, in rule-evaluation order.
	Reasons []string `json:"reasons"`

	// MLConfidence is the classifier's probability that the URL is malicious.
	// Nil when no trained classifier took part in the scan.
	MLConfidence *float64 `json:"ml_confidence,omitempty"`

	// ProcessingTimeMS is the wall-clock time of the scan in milliseconds.
	ProcessingTimeMS float64 `json:"processing_time_ms"`

	// Features is the feature vector the score was computed from.
	Features *FeatureVector `json:"features,omitempty"`

	// ScannedAt is when the scan started.
	ScannedAt time.Time `json:"scanned_at"`

	// Cached is true when the report was served from the result cache.
	Cached bool `json:"cached,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"-"`

	// Error contains any non-fatal error recorded during the scan.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// NewScanReport creates an empty report for the given URL.
func NewScanReport(url string) *ScanReport {
	return &ScanReport{
		ID:        uuid.NewString(),
		URL:       url,
		Reasons:   make([]string, 0),
		ScannedAt: time.Now(),
	}
}

// AddReason appends a reason, keeping insertion order.
func (r *ScanReport) AddReason(reason string) {
	r.Reasons = append(r.Reasons, reason)
}

// HasMLConfidence reports whether a classifier contributed to the report.
func (r *ScanReport) HasMLConfidence() bool {
	return r.MLConfidence != nil
}

// Result returns the score, reasons and verdict as a ScoreResult.
func (r *ScanReport) Result() ScoreResult {
	reasons := make([]string, len(r.Reasons))
	copy(reasons, r.Reasons)
	return ScoreResult{
		RiskScore: r.RiskScore,
		Reasons:   reasons,
		Verdict:   r.Verdict,
	}
}

// ClampScore bounds a score to [MinRiskScore, MaxRiskScore].
func ClampScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}
