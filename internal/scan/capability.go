package scan

import (
	"errors"

	"github.com/nao1215/urlscan/internal/model"
)

// ErrClassifierNotReady is returned by Capability.Predict when the
// capability is not Trained.
var ErrClassifierNotReady = errors.New("classifier is not available or not trained")

// Predictor is the part of a classifier the pipeline needs.
// *classifier.Classifier implements it.
type Predictor interface {
	// IsTrained reports whether PredictFeatures can succeed.
	IsTrained() bool

	// PredictFeatures returns P(malicious) and the hard label.
	PredictFeatures(fv model.FeatureVector) (float64, int, error)
}

// CapabilityState describes how far the classifier can take part in a scan.
type CapabilityState int

const (
	// Unavailable means no classifier is configured.
	Unavailable CapabilityState = iota

	// Untrained means a classifier exists but has no model yet.
	Untrained

	// Trained means the classifier can predict.
	Trained
)

// String returns the state name used in logs and the health endpoint.
func (s CapabilityState) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case Untrained:
		return "untrained"
	case Trained:
		return "trained"
	default:
		return "unknown"
	}
}

// Capability wraps an optional Predictor.
// The zero value is Unavailable.
type Capability struct {
	predictor Predictor
}

// NoClassifier returns an Unavailable capability.
func NoClassifier() Capability {
	return Capability{}
}

// WithPredictor returns a capability backed by p.
// A nil p gives an Unavailable capability.
func WithPredictor(p Predictor) Capability {
	return Capability{predictor: p}
}

// State reports the current state. A classifier trained or loaded after the
// capability was created is seen as Trained from then on.
func (c Capability) State() CapabilityState {
	switch {
	case c.predictor == nil:
		return Unavailable
	case !c.predictor.IsTrained():
		return Untrained
	default:
		return Trained
	}
}

// Predict runs the classifier. It returns ErrClassifierNotReady unless the
// capability is Trained.
func (c Capability) Predict(fv model.FeatureVector) (float64, int, error) {
	if c.State() != Trained {
		return 0, 0, ErrClassifierNotReady
	}
	return c.predictor.PredictFeatures(fv)
}
