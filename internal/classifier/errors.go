package classifier

import "errors"

// Classifier errors.
// Callers check them with errors.Is; the returned errors wrap them with detail.
var (
	// ErrConfiguration is returned by New for an unknown variant or invalid option.
	ErrConfiguration = errors.New("invalid classifier configuration")

	// ErrInvalidState is returned when Predict or Save is called before the
	// classifier has been trained or loaded.
	ErrInvalidState = errors.New("classifier is not trained")

	// ErrNotFound is returned by Load when the model file does not exist.
	ErrNotFound = errors.New("model file not found")

	// ErrInvalidInput is returned by Train for unusable training data.
	ErrInvalidInput = errors.New("invalid training data")

	// ErrIncompatibleModel is returned by Load when the file is not a model
	// snapshot this build can read.
	ErrIncompatibleModel = errors.New("incompatible model file")
)
