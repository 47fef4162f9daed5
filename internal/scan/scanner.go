package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/urlscan/internal/model"
)

// Recorder receives scan measurements. The metrics package implements it
// with Prometheus collectors.
type Recorder interface {
	// ObserveScan is called once per completed scan.
	ObserveScan(verdict model.Verdict, elapsed time.Duration)

	// ClassifierFailed is called when a prediction error was swallowed.
	ClassifierFailed()
}

type nopRecorder struct{}

func (nopRecorder) ObserveScan(model.Verdict, time.Duration) {}
func (nopRecorder) ClassifierFailed()                        {}

// Scanner scores URLs with the full pipeline.
// A Scanner is safe for concurrent use; every Scan builds its own pipeline.
type Scanner struct {
	capability Capability
	recorder   Recorder
	logger     *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithCapability sets the classifier capability. The default is
// Unavailable, which scores with the rule table only.
func WithCapability(c Capability) ScannerOption {
	return func(s *Scanner) {
		s.capability = c
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ScannerOption {
	return func(s *Scanner) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithScannerLogger sets the logger.
func WithScannerLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		capability: NoClassifier(),
		recorder:   nopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capability returns the classifier capability of the scanner.
func (s *Scanner) Capability() Capability {
	return s.capability
}

// Pipeline builds the step sequence used by Scan.
func (s *Scanner) Pipeline() *Pipeline {
	p := NewPipeline(WithLogger(s.logger))
	p.AddSteps(
		NewFeatureStep(),
		NewHeuristicStep(),
		NewClassifierStep(s.capability,
			WithClassifierLogger(s.logger),
			WithClassifierRecorder(s.recorder),
		),
		NewVerdictStep(),
	)
	return p
}

// Scan scores one URL. The URL must already be validated by the caller.
// An error is only returned when ctx is cancelled; the partial report is
// returned with it.
func (s *Scanner) Scan(ctx context.Context, rawURL string) (*model.ScanReport, error) {
	report := model.NewScanReport(rawURL)
	start := time.Now()

	err := s.Pipeline().Execute(ctx, report)

	elapsed := time.Since(start)
	report.ProcessingTimeMS = float64(elapsed.Microseconds()) / 1000
	if err != nil {
		return report, err
	}

	s.recorder.ObserveScan(report.Verdict, elapsed)
	s.logger.Debug("scan finished",
		"url", report.URL,
		"risk_score", report.RiskScore,
		"verdict", report.Verdict.String(),
		"classifier", s.capability.State().String(),
	)
	return report, nil
}
