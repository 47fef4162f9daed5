package classifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClassifier(t *testing.T, variant Variant, opts ...Option) *Classifier {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	c, err := New(variant, opts...)
	require.NoError(t, err)
	return c
}

func trainSample(t *testing.T, c *Classifier) TrainResult {
	t.Helper()
	urls, labels := SampleDataset()
	res, err := c.Train(urls, labels, DefaultTestFraction)
	require.NoError(t, err)
	return res
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("known variants", func(t *testing.T) {
		t.Parallel()
		for _, v := range []Variant{VariantRandomForest, VariantLogisticRegression} {
			c, err := New(v)
			require.NoError(t, err)
			assert.Equal(t, v, c.Variant())
			assert.False(t, c.IsTrained())
			assert.True(t, c.TrainedAt().IsZero())
		}
	})

	t.Run("unknown variant", func(t *testing.T) {
		t.Parallel()
		_, err := New(Variant("svm"))
		require.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("non-positive hyperparameter", func(t *testing.T) {
		t.Parallel()
		_, err := New(VariantRandomForest, WithTrees(0))
		require.ErrorIs(t, err, ErrConfiguration)
	})
}

func TestParseVariant(t *testing.T) {
	t.Parallel()

	v, err := ParseVariant("logistic_regression")
	require.NoError(t, err)
	assert.Equal(t, VariantLogisticRegression, v)

	_, err = ParseVariant("naive_bayes")
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestUntrainedClassifier(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, VariantRandomForest)

	_, _, err := c.Predict("https://example.com")
	require.ErrorIs(t, err, ErrInvalidState)

	err = c.Save(filepath.Join(t.TempDir(), "model.json"))
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, VariantRandomForest)
	err := c.Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.ErrorIs(t, err, ErrNotFound)
	assert.False(t, c.IsTrained())
}

func TestTrain(t *testing.T) {
	t.Parallel()

	for _, variant := range []Variant{VariantRandomForest, VariantLogisticRegression} {
		t.Run(string(variant), func(t *testing.T) {
			t.Parallel()

			c := newTestClassifier(t, variant)
			res := trainSample(t, c)

			assert.True(t, c.IsTrained())
			assert.Equal(t, variant, res.Variant)
			assert.Equal(t, 24, res.TrainSize)
			assert.Equal(t, 6, res.TestSize)
			assert.GreaterOrEqual(t, res.TrainAccuracy, 0.9)
			assert.GreaterOrEqual(t, res.TestAccuracy, 0.0)
			assert.LessOrEqual(t, res.TestAccuracy, 1.0)
			assert.Equal(t, 3, res.Report.Classes[0].Support)
			assert.Equal(t, 3, res.Report.Classes[1].Support)
			assert.InDelta(t, res.TestAccuracy, res.Report.Accuracy, 1e-12)
			assert.Contains(t, res.Report.String(), "Malicious")

			pBad, label, err := c.Predict("http://10.0.0.1/login/verify/secure-account-update")
			require.NoError(t, err)
			assert.GreaterOrEqual(t, pBad, 0.0)
			assert.LessOrEqual(t, pBad, 1.0)
			assert.Equal(t, labelFor(pBad), label)

			pGood, _, err := c.Predict("https://www.google.com")
			require.NoError(t, err)
			assert.Greater(t, pBad, pGood)
		})
	}
}

func TestTrainIsReproducible(t *testing.T) {
	t.Parallel()

	for _, variant := range []Variant{VariantRandomForest, VariantLogisticRegression} {
		t.Run(string(variant), func(t *testing.T) {
			t.Parallel()

			first := trainSample(t, newTestClassifier(t, variant))
			second := trainSample(t, newTestClassifier(t, variant))

			assert.Equal(t, first.TrainAccuracy, second.TrainAccuracy)
			assert.Equal(t, first.TestAccuracy, second.TestAccuracy)
			assert.Equal(t, first.Report, second.Report)
		})
	}

	t.Run("same probabilities", func(t *testing.T) {
		t.Parallel()

		a := newTestClassifier(t, VariantRandomForest)
		b := newTestClassifier(t, VariantRandomForest)
		trainSample(t, a)
		trainSample(t, b)

		url := "https://secure-update.example-bank.com/confirm"
		pa, _, err := a.Predict(url)
		require.NoError(t, err)
		pb, _, err := b.Predict(url)
		require.NoError(t, err)
		assert.Equal(t, pa, pb)
	})
}

func TestTrainInvalidInput(t *testing.T) {
	t.Parallel()

	urls, labels := SampleDataset()

	testCases := []struct {
		name     string
		urls     []string
		labels   []int
		fraction float64
	}{
		{"empty", nil, nil, 0.2},
		{"length mismatch", urls, labels[:10], 0.2},
		{"label out of range", []string{"a", "b", "c", "d"}, []int{0, 1, 2, 1}, 0.2},
		{"single class", urls[:15], labels[:15], 0.2},
		{"zero fraction", urls, labels, 0},
		{"full fraction", urls, labels, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClassifier(t, VariantLogisticRegression)
			_, err := c.Train(tc.urls, tc.labels, tc.fraction)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.False(t, c.IsTrained())
		})
	}
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	for _, variant := range []Variant{VariantRandomForest, VariantLogisticRegression} {
		t.Run(string(variant), func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "models", "model.json")
			trained := newTestClassifier(t, variant)
			trainSample(t, trained)
			require.NoError(t, trained.Save(path))

			// A classifier built for the other variant adopts the saved one.
			loaded := newTestClassifier(t, VariantRandomForest)
			require.NoError(t, loaded.Load(path))
			assert.True(t, loaded.IsTrained())
			assert.Equal(t, variant, loaded.Variant())
			assert.True(t, trained.TrainedAt().Equal(loaded.TrainedAt()))

			for _, url := range []string{
				"https://www.google.com",
				"http://123.45.67.89/account/validate",
				"https://bit.ly/3xYz",
			} {
				want, wantLabel, err := trained.Predict(url)
				require.NoError(t, err)
				got, gotLabel, err := loaded.Predict(url)
				require.NoError(t, err)
				assert.InDelta(t, want, got, 1e-12, url)
				assert.Equal(t, wantLabel, gotLabel, url)
			}
		})
	}
}

func TestLoadIncompatible(t *testing.T) {
	t.Parallel()

	source := newTestClassifier(t, VariantLogisticRegression)
	trainSample(t, source)
	good := filepath.Join(t.TempDir(), "good.json")
	require.NoError(t, source.Save(good))

	data, err := os.ReadFile(good)
	require.NoError(t, err)

	mutate := func(t *testing.T, fn func(s *snapshot)) string {
		t.Helper()
		var s snapshot
		require.NoError(t, json.Unmarshal(data, &s))
		fn(&s)
		out, err := json.Marshal(s)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "model.json")
		require.NoError(t, os.WriteFile(path, out, 0o600))
		return path
	}

	testCases := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"not json", func(t *testing.T) string {
			path := filepath.Join(t.TempDir(), "model.json")
			require.NoError(t, os.WriteFile(path, []byte("\x80\x04pickle"), 0o600))
			return path
		}},
		{"wrong format", func(t *testing.T) string {
			return mutate(t, func(s *snapshot) { s.Format = "other" })
		}},
		{"future version", func(t *testing.T) string {
			return mutate(t, func(s *snapshot) { s.Version = SnapshotVersion + 1 })
		}},
		{"different features", func(t *testing.T) string {
			return mutate(t, func(s *snapshot) { s.FeatureNames = s.FeatureNames[:8] })
		}},
		{"unknown variant", func(t *testing.T) string {
			return mutate(t, func(s *snapshot) { s.Variant = "svm" })
		}},
		{"short weights", func(t *testing.T) string {
			return mutate(t, func(s *snapshot) {
				s.Payload = json.RawMessage(`{"weights":[1],"bias":0,"mean":[0],"scale":[1]}`)
			})
		}},
		{"forest with cycle", func(t *testing.T) string {
			return mutate(t, func(s *snapshot) {
				s.Variant = VariantRandomForest
				s.Payload = json.RawMessage(`{"trees":[{"nodes":[{"f":0,"t":1,"l":0,"r":0,"p":0.5}]}]}`)
			})
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := newTestClassifier(t, VariantLogisticRegression)
			err := c.Load(tc.path(t))
			require.ErrorIs(t, err, ErrIncompatibleModel)
			assert.False(t, c.IsTrained())
		})
	}
}

func TestPredictDuringRetrain(t *testing.T) {
	t.Parallel()

	c := newTestClassifier(t, VariantRandomForest, WithTrees(10))
	trainSample(t, c)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				p, _, err := c.Predict("http://192.168.1.1/login")
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, p, 0.0)
			}
		}()
	}

	urls, labels := SampleDataset()
	for range 3 {
		_, err := c.Train(urls, labels, 0.2)
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestStratifiedSplit(t *testing.T) {
	t.Parallel()

	_, labels := SampleDataset()
	rng := rand.New(rand.NewPCG(DefaultSeed, DefaultSeed))
	train, test := stratifiedSplit(labels, 0.2, rng)

	assert.Len(t, train, 24)
	assert.Len(t, test, 6)

	seen := make(map[int]bool)
	var testClasses [2]int
	for _, i := range test {
		seen[i] = true
		testClasses[labels[i]]++
	}
	for _, i := range train {
		assert.False(t, seen[i], "index %d in both sets", i)
		seen[i] = true
	}
	assert.Len(t, seen, len(labels))
	assert.Equal(t, [2]int{3, 3}, testClasses)

	t.Run("tiny classes keep one sample on each side", func(t *testing.T) {
		t.Parallel()
		rng := rand.New(rand.NewPCG(1, 1))
		train, test := stratifiedSplit([]int{0, 0, 1, 1}, 0.1, rng)
		assert.Len(t, train, 2)
		assert.Len(t, test, 2)
	})
}

func TestClassificationReport(t *testing.T) {
	t.Parallel()

	yTrue := []int{0, 0, 0, 1, 1, 1}
	yPred := []int{0, 0, 1, 1, 1, 0}

	r := newClassificationReport(yTrue, yPred)

	assert.InDelta(t, 4.0/6.0, r.Accuracy, 1e-12)
	assert.Equal(t, 6, r.Support)
	for _, c := range r.Classes {
		assert.InDelta(t, 2.0/3.0, c.Precision, 1e-12, c.Label)
		assert.InDelta(t, 2.0/3.0, c.Recall, 1e-12, c.Label)
		assert.InDelta(t, 2.0/3.0, c.F1, 1e-12, c.Label)
		assert.Equal(t, 3, c.Support)
	}

	empty := newClassificationReport([]int{0}, []int{0})
	assert.Zero(t, empty.Classes[1].Precision)
	assert.Zero(t, empty.Classes[1].F1)
}
