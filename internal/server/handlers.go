package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/nao1215/urlscan/internal/model"
	"github.com/nao1215/urlscan/internal/scan"
)

// ScanRequest is the body of POST /scan-url.
type ScanRequest struct {
	URL string `json:"url"`
}

// ScanResponse is returned by both scan endpoints. MLConfidence is null
// when no trained classifier took part.
type ScanResponse struct {
	URL              string   `json:"url"`
	RiskScore        int      `json:"risk_score"`
	Verdict          string   `json:"verdict"`
	Reasons          []string `json:"reasons"`
	MLConfidence     *float64 `json:"ml_confidence"`
	ProcessingTimeMS float64  `json:"processing_time_ms"`
	Cached           bool     `json:"cached,omitempty"`
}

// NewScanResponse converts a report to the API shape.
func NewScanResponse(report *model.ScanReport) ScanResponse {
	return ScanResponse{
		URL:              report.URL,
		RiskScore:        report.RiskScore,
		Verdict:          report.Verdict.String(),
		Reasons:          report.Reasons,
		MLConfidence:     report.MLConfidence,
		ProcessingTimeMS: math.Round(report.ProcessingTimeMS*100) / 100,
		Cached:           report.Cached,
	}
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string  `json:"status"`
	MLModelLoaded bool    `json:"ml_model_loaded"`
	Classifier    string  `json:"classifier"`
	CacheEnabled  bool    `json:"cache_enabled"`
	Timestamp     float64 `json:"timestamp"`
}

// errorResponse is the body of every 4xx and 5xx answer.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Malicious URL Detection API",
		"version": s.version,
		"endpoints": map[string]string{
			"/scan-url": "POST - Scan a URL for malicious content",
			"/health":   "GET - Health check endpoint",
			"/metrics":  "GET - Prometheus metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.scanner.Capability().State()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		MLModelLoaded: state == scan.Trained,
		Classifier:    state.String(),
		CacheEnabled:  s.cacheEnabled,
		Timestamp:     unixSeconds(s.now()),
	})
}

func (s *Server) handleTestConnection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
		"message":   "Backend is reachable",
		"timestamp": unixSeconds(s.now()),
	})
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScanGet(w http.ResponseWriter, r *http.Request) {
	s.scanAndRespond(w, r, r.URL.Query().Get("url"))
}

func (s *Server) handleScanPost(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.scanAndRespond(w, r, req.URL)
}

// scanAndRespond validates the URL, answers from the cache when possible and
// otherwise runs the scanner and stores the result.
func (s *Server) scanAndRespond(w http.ResponseWriter, r *http.Request, raw string) {
	target, err := NormalizeURL(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	if report, ok := s.lookup(ctx, target); ok {
		writeJSON(w, http.StatusOK, NewScanResponse(report))
		return
	}

	report, err := s.scanner.Scan(ctx, target)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "Internal server error: "+err.Error())
		return
	}

	s.store(ctx, target, report)
	writeJSON(w, http.StatusOK, NewScanResponse(report))
}

// lookup reads the cache. Errors are logged and treated as a miss.
func (s *Server) lookup(ctx context.Context, target string) (*model.ScanReport, bool) {
	if !s.cacheEnabled {
		return nil, false
	}
	report, ok, err := s.cache.Get(ctx, target)
	if err != nil {
		s.logger.Warn("cache lookup failed, scanning", "url", target, "error", err)
	}
	s.lookups.CacheLookup(ok)
	return report, ok
}

// store writes the cache. Errors are logged and otherwise ignored.
func (s *Server) store(ctx context.Context, target string, report *model.ScanReport) {
	if !s.cacheEnabled {
		return
	}
	if err := s.cache.Set(ctx, target, report); err != nil {
		s.logger.Warn("cache store failed", "url", target, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
