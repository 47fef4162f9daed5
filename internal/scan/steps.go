package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/nao1215/urlscan/internal/feature"
	"github.com/nao1215/urlscan/internal/heuristic"
	"github.com/nao1215/urlscan/internal/model"
)

// MaxClassifierBoost is the largest amount a malicious prediction can add
// to the heuristic score.
const MaxClassifierBoost = 20

// errNoFeatures is returned by steps that run before FeatureStep.
var errNoFeatures = errors.New("feature vector has not been extracted")

// FeatureStep extracts the feature vector of the report URL.
type FeatureStep struct{}

// NewFeatureStep creates a FeatureStep.
func NewFeatureStep() *FeatureStep {
	return &FeatureStep{}
}

// Name returns the step name.
func (s *FeatureStep) Name() string {
	return "features"
}

// Do extracts features and the registrable domain.
func (s *FeatureStep) Do(_ context.Context, report *model.ScanReport) error {
	fv := feature.Extract(report.URL)
	report.Features = &fv
	report.Domain = feature.RegistrableDomain(report.URL)
	return nil
}

// HeuristicStep applies the rule table to the extracted features.
type HeuristicStep struct{}

// NewHeuristicStep creates a HeuristicStep.
func NewHeuristicStep() *HeuristicStep {
	return &HeuristicStep{}
}

// Name returns the step name.
func (s *HeuristicStep) Name() string {
	return "heuristic"
}

// Do sets the heuristic risk score and reasons.
func (s *HeuristicStep) Do(_ context.Context, report *model.ScanReport) error {
	if report.Features == nil {
		return errNoFeatures
	}
	score, reasons := heuristic.Score(*report.Features)
	report.RiskScore = score
	report.Reasons = reasons
	return nil
}

// ClassifierStep lets a trained classifier adjust the heuristic score.
//
// A malicious prediction adds min(20, round(p*20)) to the score; a benign
// prediction only adds a reason. The sum is not clamped here; VerdictStep
// clamps once at the end.
type ClassifierStep struct {
	capability Capability
	recorder   Recorder
	logger     *slog.Logger
}

// ClassifierStepOption configures a ClassifierStep.
type ClassifierStepOption func(*ClassifierStep)

// WithClassifierLogger sets the logger used for prediction failures.
func WithClassifierLogger(logger *slog.Logger) ClassifierStepOption {
	return func(s *ClassifierStep) {
		s.logger = logger
	}
}

// WithClassifierRecorder sets the recorder notified of prediction failures.
func WithClassifierRecorder(r Recorder) ClassifierStepOption {
	return func(s *ClassifierStep) {
		s.recorder = r
	}
}

// NewClassifierStep creates a ClassifierStep for the given capability.
func NewClassifierStep(capability Capability, opts ...ClassifierStepOption) *ClassifierStep {
	s := &ClassifierStep{
		capability: capability,
		recorder:   nopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ClassifierStep) Name() string {
	return "classifier"
}

// Do blends the classifier prediction into the report.
// It never returns an error: a failing classifier leaves the heuristic
// result untouched.
func (s *ClassifierStep) Do(_ context.Context, report *model.ScanReport) error {
	if s.capability.State() != Trained || report.Features == nil {
		return nil
	}

	p, label, err := s.capability.Predict(*report.Features)
	if err != nil {
		s.logger.Warn("classifier prediction failed, using heuristic score",
			"url", report.URL,
			"error", err,
		)
		s.recorder.ClassifierFailed()
		return nil
	}

	ApplyPrediction(report, p, label)
	return nil
}

// ApplyPrediction records a classifier prediction in the report.
func ApplyPrediction(report *model.ScanReport, p float64, label int) {
	confidence := p
	report.MLConfidence = &confidence

	if label == 1 {
		report.RiskScore += Boost(p)
		report.AddReason(fmt.Sprintf("ML model indicates malicious (confidence: %.2f)", p))
		return
	}
	report.AddReason(fmt.Sprintf("ML model indicates benign (confidence: %.2f)", 1-p))
}

// Boost returns the score added for a malicious prediction with probability p.
func Boost(p float64) int {
	return min(MaxClassifierBoost, int(math.Round(p*MaxClassifierBoost)))
}

// VerdictStep clamps the final score and sets the verdict.
type VerdictStep struct{}

// NewVerdictStep creates a VerdictStep.
func NewVerdictStep() *VerdictStep {
	return &VerdictStep{}
}

// Name returns the step name.
func (s *VerdictStep) Name() string {
	return "verdict"
}

// Do sets the verdict from the final score.
func (s *VerdictStep) Do(_ context.Context, report *model.ScanReport) error {
	report.RiskScore = model.ClampScore(report.RiskScore)
	report.Verdict = model.VerdictFor(report.RiskScore)
	return nil
}
