package model

import "time"

// BatchSummary aggregates the results of scanning many URLs.
//
// Design decision: We create a separate summary rather than letting each
// writer count verdicts itself because:
// 1. Text, JSON and Markdown output all need the same numbers
// 2. It can be serialized to JSON for tools that want a quick overview
// 3. It keeps counting logic out of presentation code
type BatchSummary struct {
	// GeneratedAt is when the summary was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Total is the number of reports summarized.
	Total int `json:"total"`

	// SafeCount is the number of safe verdicts.
	SafeCount int `json:"safe_count"`

	// SuspiciousCount is the number of suspicious verdicts.
	SuspiciousCount int `json:"suspicious_count"`

	// MaliciousCount is the number of malicious verdicts.
	MaliciousCount int `json:"malicious_count"`

	// AverageScore is the mean final risk score.
	AverageScore float64 `json:"average_score"`

	// HighestScore is the largest final risk score seen.
	HighestScore int `json:"highest_score"`

	// Reports holds the summarized reports in input order.
	Reports []*ScanReport `json:"reports"`
}

// NewBatchSummary builds a summary over the given reports.
// Nil entries (scans that never produced a report) are skipped.
func NewBatchSummary(reports []*ScanReport) *BatchSummary {
	s := &BatchSummary{
		GeneratedAt: time.Now(),
		Reports:     make([]*ScanReport, 0, len(reports)),
	}

	sum := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Reports = append(s.Reports, r)
		s.Total++
		sum += r.RiskScore
		if r.RiskScore > s.HighestScore {
			s.HighestScore = r.RiskScore
		}

		switch r.Verdict {
		case VerdictSafe:
			s.SafeCount++
		case VerdictSuspicious:
			s.SuspiciousCount++
		case VerdictMalicious:
			s.MaliciousCount++
		}
	}

	if s.Total > 0 {
		s.AverageScore = float64(sum) / float64(s.Total)
	}

	return s
}

// CountFor returns the number of reports with the given verdict.
func (s *BatchSummary) CountFor(v Verdict) int {
	switch v {
	case VerdictSafe:
		return s.SafeCount
	case VerdictSuspicious:
		return s.SuspiciousCount
	case VerdictMalicious:
		return s.MaliciousCount
	default:
		return 0
	}
}

// HasThreats reports whether any URL was suspicious or malicious.
func (s *BatchSummary) HasThreats() bool {
	return s.SuspiciousCount+s.MaliciousCount > 0
}
