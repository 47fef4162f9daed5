package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/urlscan/internal/classifier"
	"github.com/nao1215/urlscan/internal/config"
	"github.com/nao1215/urlscan/internal/database"
	"github.com/nao1215/urlscan/internal/server"
)

// Training data sources.
const (
	sourceBuiltin  = "built-in sample dataset"
	sourceDatabase = "sample database"
)

// errMissingLabel is returned when --add-sample is used without --label.
var errMissingLabel = errors.New("--add-sample requires --label 0 (benign) or 1 (malicious)")

// NewTrainCmd creates the train command.
func NewTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the URL classifier and save the model",
		Long: `Train fits the classifier on labeled URLs and saves the model.

Training data comes from one of:
- The built-in sample dataset (default)
- A CSV file of url,label rows (--csv); label 0 is benign, 1 is malicious
- Labeled samples stored with --add-sample (--from-db)

A stratified share of the data (--test-fraction) is held out and the
per-class precision, recall and F1 on it are printed.

Examples:
  # Train a random forest on the built-in samples
  urlscan train

  # Train logistic regression on your own data
  urlscan train --variant logistic_regression --csv labeled.csv

  # Store a labeled sample, then train on all stored samples
  urlscan train --add-sample http://paypal-verify.example.tk --label 1
  urlscan train --from-db`,
		Args: cobra.NoArgs,
		RunE: runTrainCmd,
	}

	cmd.Flags().String("variant", config.DefaultModelVariant,
		"Classifier variant (random_forest or logistic_regression)")
	cmd.Flags().Uint64("seed", config.DefaultSeed,
		"Seed of the train/test split and the forest")
	cmd.Flags().Float64("test-fraction", config.DefaultTestFraction,
		"Share of the data held out for evaluation")
	cmd.Flags().String("model", "",
		"Output model path (default: $XDG_DATA_HOME/urlscan/model.json)")

	cmd.Flags().String("csv", "",
		"CSV file with url,label rows")
	cmd.Flags().Bool("from-db", false,
		"Train on samples stored in the database")
	cmd.Flags().String("add-sample", "",
		"Store a labeled URL in the database instead of training")
	cmd.Flags().Int("label", -1,
		"Label of --add-sample (0 benign, 1 malicious)")
	cmd.Flags().String("db-dir", "",
		"Directory of the database (default: $XDG_DATA_HOME/urlscan)")

	cmd.Flags().BoolP("json", "j", false,
		"Output the training result in JSON format")

	return cmd
}

// trainOptions are the train flags that are not part of Config.
type trainOptions struct {
	csvFile    string
	fromDB     bool
	addSample  string
	label      int
	jsonOutput bool
}

// runTrainCmd executes the train command.
func runTrainCmd(cmd *cobra.Command, _ []string) error {
	cfg, opts, err := buildTrainConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	if opts.addSample != "" {
		return runAddSample(cmd.Context(), cmd.OutOrStdout(), cfg, opts)
	}
	return runTrain(cmd.Context(), cmd.OutOrStdout(), cfg, opts, logger)
}

// buildTrainConfig creates a Config and trainOptions from train flags.
func buildTrainConfig(cmd *cobra.Command) (*config.Config, trainOptions, error) {
	var opts trainOptions

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, opts, err
	}
	// Training always needs a classifier, whatever the file says.
	cfg.DisableClassifier = false

	if err := applyString(cmd, "variant", &cfg.ModelVariant); err != nil {
		return nil, opts, err
	}
	if err := applyString(cmd, "model", &cfg.ModelPath); err != nil {
		return nil, opts, err
	}
	if err := applyString(cmd, "db-dir", &cfg.DBDir); err != nil {
		return nil, opts, err
	}
	if cmd.Flags().Changed("seed") {
		if cfg.Seed, err = cmd.Flags().GetUint64("seed"); err != nil {
			return nil, opts, err
		}
	}
	if cmd.Flags().Changed("test-fraction") {
		if cfg.TestFraction, err = cmd.Flags().GetFloat64("test-fraction"); err != nil {
			return nil, opts, err
		}
	}

	if opts.csvFile, err = cmd.Flags().GetString("csv"); err != nil {
		return nil, opts, err
	}
	if opts.fromDB, err = cmd.Flags().GetBool("from-db"); err != nil {
		return nil, opts, err
	}
	if opts.addSample, err = cmd.Flags().GetString("add-sample"); err != nil {
		return nil, opts, err
	}
	if opts.label, err = cmd.Flags().GetInt("label"); err != nil {
		return nil, opts, err
	}
	if opts.jsonOutput, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, opts, err
	}

	if opts.csvFile != "" && opts.fromDB {
		return nil, opts, errors.New("--csv and --from-db are mutually exclusive")
	}
	if opts.addSample != "" && opts.label != 0 && opts.label != 1 {
		return nil, opts, errMissingLabel
	}

	return cfg, opts, nil
}

// runAddSample stores one labeled URL.
func runAddSample(ctx context.Context, out io.Writer, cfg *config.Config, opts trainOptions) error {
	target, err := server.NormalizeURL(opts.addSample)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", opts.addSample, err)
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.AddSample(ctx, target, opts.label); err != nil {
		return fmt.Errorf("failed to add sample: %w", err)
	}

	benign, malicious, err := db.CountSamples(ctx)
	if err != nil {
		return fmt.Errorf("failed to count samples: %w", err)
	}

	fmt.Fprintf(out, "Added %s as %s\n", target, strings.ToLower(classifier.ClassNames[opts.label]))
	fmt.Fprintf(out, "Stored samples: %d benign, %d malicious\n", benign, malicious)
	return nil
}

// runTrain fits, evaluates and saves the classifier.
func runTrain(ctx context.Context, out io.Writer, cfg *config.Config, opts trainOptions, logger *slog.Logger) error {
	urls, labels, source, err := loadTrainingData(ctx, cfg, opts)
	if err != nil {
		return err
	}

	variant, err := classifier.ParseVariant(cfg.ModelVariant)
	if err != nil {
		return err
	}

	clf, err := classifier.New(variant,
		classifier.WithSeed(cfg.Seed),
		classifier.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	logger.Info("training classifier",
		"variant", string(variant),
		"samples", len(urls),
		"source", source,
	)

	result, err := clf.Train(urls, labels, cfg.TestFraction)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	if err := clf.Save(cfg.ModelPath); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}

	if opts.jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Fprintf(out, "Trained %s on %d URLs (%s)\n\n", result.Variant, len(urls), source)
	fmt.Fprintf(out, "Train accuracy: %.4f (%d URLs)\n", result.TrainAccuracy, result.TrainSize)
	fmt.Fprintf(out, "Test accuracy:  %.4f (%d URLs)\n\n", result.TestAccuracy, result.TestSize)
	fmt.Fprintln(out, "Classification report:")
	fmt.Fprintln(out, result.Report.String())
	fmt.Fprintf(out, "Model saved to %s\n", cfg.ModelPath)
	return nil
}

// loadTrainingData returns the labeled URLs selected by opts and a short
// description of where they came from.
func loadTrainingData(ctx context.Context, cfg *config.Config, opts trainOptions) ([]string, []int, string, error) {
	switch {
	case opts.csvFile != "":
		urls, labels, err := readLabeledCSV(opts.csvFile)
		if err != nil {
			return nil, nil, "", err
		}
		return urls, labels, opts.csvFile, nil

	case opts.fromDB:
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return nil, nil, "", fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		urls, labels, err := db.ListSamples(ctx)
		if err != nil {
			return nil, nil, "", fmt.Errorf("failed to list samples: %w", err)
		}
		return urls, labels, sourceDatabase, nil

	default:
		urls, labels := classifier.SampleDataset()
		return urls, labels, sourceBuiltin, nil
	}
}

// readLabeledCSV reads url,label rows. A first row whose label column is
// not a number is treated as a header.
func readLabeledCSV(path string) ([]string, []int, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided training file is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open training data: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var urls []string
	var labels []int
	for line := 1; ; line++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read training data: %w", err)
		}

		label, err := strconv.Atoi(strings.TrimSpace(record[1]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, nil, fmt.Errorf("row %d: invalid label %q", line, record[1])
		}
		if label != 0 && label != 1 {
			return nil, nil, fmt.Errorf("row %d: label must be 0 or 1, got %d", line, label)
		}

		urls = append(urls, strings.TrimSpace(record[0]))
		labels = append(labels, label)
	}
	return urls, labels, nil
}
