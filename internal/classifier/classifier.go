package classifier

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/urlscan/internal/feature"
	"github.com/nao1215/urlscan/internal/model"
)

// Variant names the estimator behind a Classifier.
type Variant string

const (
	// VariantRandomForest is an ensemble of decision trees.
	VariantRandomForest Variant = "random_forest"

	// VariantLogisticRegression is a linear model.
	VariantLogisticRegression Variant = "logistic_regression"
)

// Default hyperparameters.
const (
	DefaultSeed         = 42
	DefaultTrees        = 100
	DefaultMaxDepth     = 10
	DefaultIterations   = 1000
	DefaultTestFraction = 0.2
)

// ParseVariant converts a variant name to a Variant.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantRandomForest, VariantLogisticRegression:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown model variant %q", ErrConfiguration, s)
	}
}

// estimator is a fitted binary model.
type estimator interface {
	// probability returns P(malicious) for one feature row.
	probability(x []float64) float64
}

// fitted is an immutable trained state published through an atomic pointer.
type fitted struct {
	variant   Variant
	est       estimator
	trainedAt time.Time
}

// Classifier is a trainable binary URL classifier.
// Predict is safe for concurrent use, also while Train runs.
type Classifier struct {
	variant    Variant
	seed       uint64
	trees      int
	maxDepth   int
	iterations int
	logger     *slog.Logger

	// mu serializes Train and Load.
	mu      sync.Mutex
	current atomic.Pointer[fitted]
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithSeed sets the seed for all random choices during training.
func WithSeed(seed uint64) Option {
	return func(c *Classifier) {
		c.seed = seed
	}
}

// WithTrees sets the number of trees of a random forest.
func WithTrees(n int) Option {
	return func(c *Classifier) {
		c.trees = n
	}
}

// WithMaxDepth sets the maximum depth of each tree.
func WithMaxDepth(depth int) Option {
	return func(c *Classifier) {
		c.maxDepth = depth
	}
}

// WithIterations sets the gradient descent iterations of logistic regression.
func WithIterations(n int) Option {
	return func(c *Classifier) {
		c.iterations = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

// New creates an untrained classifier of the given variant.
// It returns ErrConfiguration for an unknown variant or a non-positive
// hyperparameter.
func New(variant Variant, opts ...Option) (*Classifier, error) {
	if _, err := ParseVariant(string(variant)); err != nil {
		return nil, err
	}

	c := &Classifier{
		variant:    variant,
		seed:       DefaultSeed,
		trees:      DefaultTrees,
		maxDepth:   DefaultMaxDepth,
		iterations: DefaultIterations,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.trees <= 0 || c.maxDepth <= 0 || c.iterations <= 0 {
		return nil, fmt.Errorf("%w: trees, max depth and iterations must be positive", ErrConfiguration)
	}
	return c, nil
}

// Variant returns the variant of the active model, or the configured variant
// when the classifier is untrained.
func (c *Classifier) Variant() Variant {
	if f := c.current.Load(); f != nil {
		return f.variant
	}
	return c.variant
}

// IsTrained reports whether Predict can be called.
func (c *Classifier) IsTrained() bool {
	return c.current.Load() != nil
}

// TrainedAt returns when the active model was fitted.
// The zero time is returned for an untrained classifier.
func (c *Classifier) TrainedAt() time.Time {
	if f := c.current.Load(); f != nil {
		return f.trainedAt
	}
	return time.Time{}
}

// Train fits a new model on labeled URLs and makes it active.
// Labels are 0 for benign and 1 for malicious. A stratified testFraction of
// the data is held out to measure test accuracy.
func (c *Classifier) Train(urls []string, labels []int, testFraction float64) (TrainResult, error) {
	if err := validateTrainingData(urls, labels, testFraction); err != nil {
		return TrainResult{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	x := make([][]float64, len(urls))
	for i, u := range urls {
		x[i] = feature.Extract(u).Values()
	}

	rng := rand.New(rand.NewPCG(c.seed, c.seed)) //nolint:gosec // reproducible split, not security sensitive
	trainIdx, testIdx := stratifiedSplit(labels, testFraction, rng)
	xTrain, yTrain := subset(x, labels, trainIdx)
	xTest, yTest := subset(x, labels, testIdx)

	var est estimator
	switch c.variant {
	case VariantRandomForest:
		est = fitForest(xTrain, yTrain, forestParams{
			trees:    c.trees,
			maxDepth: c.maxDepth,
			seed:     c.seed,
		})
	case VariantLogisticRegression:
		est = fitLogistic(xTrain, yTrain, logisticParams{
			iterations: c.iterations,
			c:          1.0,
		})
	}

	trainPred := predictAll(est, xTrain)
	testPred := predictAll(est, xTest)

	result := TrainResult{
		Variant:       c.variant,
		TrainAccuracy: accuracy(yTrain, trainPred),
		TestAccuracy:  accuracy(yTest, testPred),
		TrainSize:     len(trainIdx),
		TestSize:      len(testIdx),
		Report:        newClassificationReport(yTest, testPred),
	}

	c.current.Store(&fitted{variant: c.variant, est: est, trainedAt: time.Now()})

	c.logger.Info("classifier trained",
		"variant", string(c.variant),
		"samples", len(urls),
		"train_accuracy", result.TrainAccuracy,
		"test_accuracy", result.TestAccuracy,
		"duration", time.Since(start))

	return result, nil
}

// Predict returns the probability that the URL is malicious and the hard
// label (1 when the probability is above 0.5).
// It returns ErrInvalidState before the classifier is trained.
func (c *Classifier) Predict(rawURL string) (float64, int, error) {
	return c.PredictFeatures(feature.Extract(rawURL))
}

// PredictFeatures is Predict for an already extracted feature vector.
func (c *Classifier) PredictFeatures(fv model.FeatureVector) (float64, int, error) {
	f := c.current.Load()
	if f == nil {
		return 0, 0, ErrInvalidState
	}

	p := f.est.probability(fv.Values())
	return p, labelFor(p), nil
}

func labelFor(p float64) int {
	if p > 0.5 {
		return 1
	}
	return 0
}

func predictAll(est estimator, x [][]float64) []int {
	out := make([]int, len(x))
	for i, row := range x {
		out[i] = labelFor(est.probability(row))
	}
	return out
}

func validateTrainingData(urls []string, labels []int, testFraction float64) error {
	if len(urls) == 0 {
		return fmt.Errorf("%w: no URLs", ErrInvalidInput)
	}
	if len(urls) != len(labels) {
		return fmt.Errorf("%w: %d URLs but %d labels", ErrInvalidInput, len(urls), len(labels))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return fmt.Errorf("%w: test fraction %v must be between 0 and 1", ErrInvalidInput, testFraction)
	}

	var counts [2]int
	for i, l := range labels {
		if l != 0 && l != 1 {
			return fmt.Errorf("%w: label %d at index %d is not 0 or 1", ErrInvalidInput, l, i)
		}
		counts[l]++
	}
	// Each class needs one sample on each side of the split.
	if counts[0] < 2 || counts[1] < 2 {
		return fmt.Errorf("%w: need at least 2 benign and 2 malicious URLs, got %d and %d",
			ErrInvalidInput, counts[0], counts[1])
	}
	return nil
}
