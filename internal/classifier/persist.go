package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/nao1215/urlscan/internal/model"
)

// Snapshot format identifiers.
const (
	// SnapshotFormat names the file format.
	SnapshotFormat = "urlscan-model"

	// SnapshotVersion is bumped whenever the payload layout changes.
	SnapshotVersion = 1
)

// snapshot is the on-disk envelope of a trained model.
type snapshot struct {
	Format       string          `json:"format"`
	Version      int             `json:"version"`
	Variant      Variant         `json:"variant"`
	FeatureNames []string        `json:"feature_names"`
	TrainedAt    time.Time       `json:"trained_at"`
	Payload      json.RawMessage `json:"payload"`
}

// Save writes the active model to path.
// It returns ErrInvalidState when the classifier is untrained.
//
// The file is written to a temporary name and renamed into place, so a
// reader never sees a partial snapshot.
func (c *Classifier) Save(path string) error {
	f := c.current.Load()
	if f == nil {
		return ErrInvalidState
	}

	payload, err := json.Marshal(f.est)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	data, err := json.Marshal(snapshot{
		Format:       SnapshotFormat,
		Version:      SnapshotVersion,
		Variant:      f.variant,
		FeatureNames: model.FeatureNames[:],
		TrainedAt:    f.trainedAt,
		Payload:      payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".urlscan-model-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary model file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	c.logger.Info("classifier saved", "path", path, "variant", string(f.variant))
	return nil
}

// Load reads a snapshot written by Save and makes it the active model.
// It returns ErrNotFound when path does not exist and ErrIncompatibleModel
// when the file is not a snapshot this build understands.
func (c *Classifier) Load(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("failed to read model: %w", err)
	}

	f, err := decodeSnapshot(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(f)

	c.logger.Info("classifier loaded",
		"path", path,
		"variant", string(f.variant),
		"trained_at", f.trainedAt)
	return nil
}

func decodeSnapshot(data []byte) (*fitted, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompatibleModel, err)
	}
	if s.Format != SnapshotFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ErrIncompatibleModel, s.Format)
	}
	if s.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: version %d, this build reads version %d", ErrIncompatibleModel, s.Version, SnapshotVersion)
	}
	if !slices.Equal(s.FeatureNames, model.FeatureNames[:]) {
		return nil, fmt.Errorf("%w: feature layout %v does not match %v", ErrIncompatibleModel, s.FeatureNames, model.FeatureNames)
	}

	var est estimator
	switch s.Variant {
	case VariantRandomForest:
		var f forest
		if err := json.Unmarshal(s.Payload, &f); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncompatibleModel, err)
		}
		if err := f.validate(model.FeatureCount); err != nil {
			return nil, err
		}
		est = &f
	case VariantLogisticRegression:
		var m logistic
		if err := json.Unmarshal(s.Payload, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIncompatibleModel, err)
		}
		if err := m.validate(model.FeatureCount); err != nil {
			return nil, err
		}
		est = &m
	default:
		return nil, fmt.Errorf("%w: unknown variant %q", ErrIncompatibleModel, s.Variant)
	}

	return &fitted{variant: s.Variant, est: est, trainedAt: s.TrainedAt}, nil
}
